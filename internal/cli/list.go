package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"assetweaver/internal/core"
	"assetweaver/internal/dag"
)

// Listing renders the declared tasks one per line: name, kind (with the
// development variant marked), prerequisites and the tasks that need it.
//
// Tasks are ordered by prerequisite depth, then declaration order, so every
// task is listed after everything it needs.
func Listing(g *dag.TaskGraph) string {
	nodes := g.Nodes()
	sort.SliceStable(nodes, func(i, j int) bool {
		di, _ := g.Depth(nodes[i].Name)
		dj, _ := g.Depth(nodes[j].Name)
		return di < dj
	})

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, n := range nodes {
		kind := string(n.Task.Kind)
		if !n.Task.Kind.IsAggregate() && n.Task.EffectiveVariant() == core.VariantDevelopment {
			kind += " (dev)"
		}
		needs, neededBy := "-", "-"
		if len(n.Task.Prerequisites) > 0 {
			needs = strings.Join(n.Task.Prerequisites, ", ")
		}
		if d := g.Dependents(n.Name); len(d) > 0 {
			neededBy = strings.Join(d, ", ")
		}
		fmt.Fprintf(w, "%s\t%s\tneeds: %s\tneeded by: %s\n", n.Name, kind, needs, neededBy)
	}
	_ = w.Flush()
	return b.String()
}
