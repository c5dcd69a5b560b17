package cli

import (
	"strings"
	"testing"

	"assetweaver/internal/core"
	"assetweaver/internal/dag"
)

func TestListing_TasksFollowTheirPrerequisites(t *testing.T) {
	g, err := dag.NewTaskGraph([]core.Task{
		{Name: "default", Kind: core.KindGroup, Prerequisites: []string{"build"}},
		{Name: "build", Kind: core.KindGroup, Prerequisites: []string{"sass"}},
		{Name: "sass", Kind: core.KindStyles, Inputs: []string{"src/*.scss"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(Listing(g)), "\n")
	var names []string
	for _, l := range lines {
		names = append(names, strings.Fields(l)[0])
	}
	if strings.Join(names, " ") != "sass build default" {
		t.Fatalf("unexpected order %v", names)
	}
	if !strings.Contains(lines[0], "needs: -") || !strings.HasSuffix(lines[0], "needed by: build") {
		t.Fatalf("unexpected line %q", lines[0])
	}
	if !strings.HasSuffix(lines[2], "needed by: -") {
		t.Fatalf("unexpected line %q", lines[2])
	}
}
