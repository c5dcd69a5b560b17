package dag

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"assetweaver/internal/core"
	"assetweaver/internal/trace"
)

type scriptedRunner struct {
	fail  map[string]error
	calls []string
}

func (r *scriptedRunner) Run(_ context.Context, task core.Task) (*NodeResult, error) {
	r.calls = append(r.calls, task.Name)
	res := &NodeResult{Err: r.fail[task.Name]}
	if res.Err == nil && !task.Kind.IsAggregate() {
		res.Artifacts = []core.Artifact{{Path: "out/" + task.Name, Size: 1}}
	}
	return res, nil
}

func defaultGraph(t *testing.T) *TaskGraph {
	t.Helper()
	g, err := NewTaskGraph([]core.Task{
		styles("sass"),
		{Name: "js", Kind: core.KindScripts},
		group("default", "sass", "js"),
		{Name: "deploy", Kind: core.KindScripts, Prerequisites: []string{"default"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

func TestRunSerial_AllSucceed(t *testing.T) {
	g := defaultGraph(t)
	runner := &scriptedRunner{}
	exec, err := NewExecutor(g, runner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := exec.RunSerial(context.Background(), "default")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(runner.calls, []string{"sass", "js", "default"}) {
		t.Fatalf("unexpected run order: %v", runner.calls)
	}
	if !res.Succeeded() || res.Err() != nil {
		t.Fatalf("expected success, got %v", res.FinalState)
	}
	if _, planned := res.FinalState["deploy"]; planned {
		t.Fatalf("deploy is not part of the default plan")
	}
	if len(res.Artifacts()) != 2 {
		t.Fatalf("expected 2 artifacts, got %v", res.Artifacts())
	}
}

func TestRunSerial_FailureDoesNotStopSiblings(t *testing.T) {
	g := defaultGraph(t)
	boom := errors.New("compile failed")
	runner := &scriptedRunner{fail: map[string]error{"sass": boom}}
	rec := trace.NewRecorder()
	exec, _ := NewExecutor(g, runner)
	exec.Trace = rec

	res, err := exec.RunSerial(context.Background(), "deploy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(runner.calls, []string{"sass", "js", "default"}) {
		t.Fatalf("unexpected run order: %v", runner.calls)
	}
	want := ExecutionState{"sass": TaskFailed, "js": TaskCompleted, "default": TaskCompleted, "deploy": TaskSkipped}
	if !reflect.DeepEqual(res.FinalState, want) {
		t.Fatalf("unexpected final state: %v", res.FinalState)
	}
	if res.SkipCause["deploy"] != "sass" {
		t.Fatalf("expected deploy skipped because of sass, got %q", res.SkipCause["deploy"])
	}
	if !errors.Is(res.Err(), boom) {
		t.Fatalf("expected joined error to wrap the failure, got %v", res.Err())
	}
	if !reflect.DeepEqual(res.Failed(), []string{"sass"}) {
		t.Fatalf("unexpected failed list: %v", res.Failed())
	}

	kinds := map[string]trace.TraceEventKind{}
	for _, ev := range rec.Snapshot() {
		kinds[ev.TaskID] = ev.Kind
	}
	if kinds["sass"] != trace.EventTaskFailed || kinds["js"] != trace.EventTaskExecuted || kinds["deploy"] != trace.EventTaskSkipped {
		t.Fatalf("unexpected trace kinds: %v", kinds)
	}
}

func TestRunSerial_UnknownTarget(t *testing.T) {
	exec, _ := NewExecutor(defaultGraph(t), &scriptedRunner{})
	_, err := exec.RunSerial(context.Background(), "nope")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestRunSerial_CancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := TaskRunnerFunc(func(_ context.Context, task core.Task) (*NodeResult, error) {
		if task.Name == "sass" {
			cancel()
		}
		return &NodeResult{}, nil
	})
	exec, _ := NewExecutor(defaultGraph(t), runner)

	res, err := exec.RunSerial(ctx, "default")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res.FinalState["sass"] != TaskCompleted || res.FinalState["js"] != TaskSkipped || res.FinalState["default"] != TaskSkipped {
		t.Fatalf("unexpected final state: %v", res.FinalState)
	}
}

func TestRunSerial_RunnerErrorAborts(t *testing.T) {
	runner := TaskRunnerFunc(func(context.Context, core.Task) (*NodeResult, error) {
		return nil, errors.New("disk gone")
	})
	exec, _ := NewExecutor(defaultGraph(t), runner)
	if _, err := exec.RunSerial(context.Background(), "sass"); err == nil {
		t.Fatalf("expected error")
	}
}
