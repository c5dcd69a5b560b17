package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStore_SaveAndLoadRun_EndTimeNullWhileRunning(t *testing.T) {
	base := t.TempDir()
	store, err := NewStore(base)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	run := Run{
		RunID:     "run-123",
		GraphHash: "gh-abc",
		StartTime: time.Unix(1, 2).UTC(),
		Tasks:     []string{"sass"},
		OptionSet: "default",
		Status:    RunRunning,
	}
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(base, ".assetweaver", "runs", "run-123", "run.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "\"end_time\": null") {
		t.Fatalf("expected end_time to be null; got: %s", data)
	}
	if !strings.Contains(string(data), "\"artifacts\": []") {
		t.Fatalf("expected artifacts array; got: %s", data)
	}

	loaded, err := store.LoadRun("run-123")
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if loaded.RunID != run.RunID || loaded.GraphHash != run.GraphHash || loaded.Tasks[0] != "sass" {
		t.Fatalf("loaded run mismatch: %+v", loaded)
	}
}

func TestStore_SaveRun_RejectsFinishedRunWithoutEndTime(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	err = store.SaveRun(Run{RunID: "r", StartTime: time.Unix(1, 0), Tasks: []string{}, Status: RunSucceeded})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestStore_LoadRun_RejectsUnknownFields(t *testing.T) {
	base := t.TempDir()
	store, err := NewStore(base)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	dir := filepath.Join(base, ".assetweaver", "runs", "r1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	body := `{"run_id":"r1","graph_hash":"","start_time":"2024-01-01T00:00:00Z","end_time":null,"tasks":[],"option_set":"","status":"running","artifacts":[],"extra":1}`
	if err := os.WriteFile(filepath.Join(dir, "run.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadRun("r1"); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestStore_SaveAndLoadFailure(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	task, stage := "sass", "compile"
	f := Failure{
		FailureClass: FailureClassStage,
		TaskID:       &task,
		Stage:        &stage,
		Location:     "src/scss/a.scss:3:5",
		ErrorCode:    "StageFailed",
		ErrorMessage: "undefined variable",
	}
	if err := store.SaveFailure("run-1", f); err != nil {
		t.Fatalf("SaveFailure: %v", err)
	}
	loaded, err := store.LoadFailure("run-1")
	if err != nil {
		t.Fatalf("LoadFailure: %v", err)
	}
	if loaded.FailureClass != FailureClassStage || *loaded.TaskID != "sass" || *loaded.Stage != "compile" || loaded.Location != f.Location {
		t.Fatalf("loaded failure mismatch: %#v", loaded)
	}
}

func TestStore_ListRunsAndPrune(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ids, err := store.ListRunIDs()
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected empty ledger, got %v, %v", ids, err)
	}

	// IDs sort opposite to start time.
	for i, id := range []string{"c", "b", "a"} {
		run := Run{RunID: id, StartTime: time.Unix(int64(i+1), 0).UTC(), Tasks: []string{}, Status: RunRunning}
		if err := store.SaveRun(run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 || runs[0].RunID != "c" || runs[2].RunID != "a" {
		t.Fatalf("unexpected order: %+v", runs)
	}

	removed, err := store.Prune(1)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	ids, err = store.ListRunIDs()
	if err != nil {
		t.Fatalf("ListRunIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != "a" {
		t.Fatalf("expected newest run kept, got %v", ids)
	}
}

func TestWriteFileAtomicDurable_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")
	if err := writeFileAtomicDurable(path, []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writeFileAtomicDurable(path, []byte("{\"a\":1}\n"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the target file, got %d entries", len(entries))
	}
	data, _ := os.ReadFile(path)
	if string(data) != "{\"a\":1}\n" {
		t.Fatalf("unexpected content %q", data)
	}
}
