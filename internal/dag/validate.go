package dag

// checkPrerequisites walks every task's prerequisites depth first, in
// declaration order and in the order each task lists them, the same walk
// Plan performs. It rejects the first prerequisite cycle it meets and
// records each task's depth: the longest chain of prerequisites below it.
func (g *TaskGraph) checkPrerequisites() error {
	depth := make(map[string]int, len(g.nodes))
	done := make(map[string]bool, len(g.nodes))
	onPath := make(map[string]int, len(g.nodes))
	var path []string

	var visit func(n *TaskNode) error
	visit = func(n *TaskNode) error {
		if done[n.Name] {
			return nil
		}
		if at, ok := onPath[n.Name]; ok {
			witness := append(append([]string(nil), path[at:]...), n.Name)
			return &CycleError{Path: witness}
		}
		onPath[n.Name] = len(path)
		path = append(path, n.Name)

		d := 0
		for _, p := range n.Task.Prerequisites {
			pre := g.nodesByName[p]
			if err := visit(pre); err != nil {
				return err
			}
			if depth[p]+1 > d {
				d = depth[p] + 1
			}
		}

		path = path[:len(path)-1]
		delete(onPath, n.Name)
		done[n.Name] = true
		depth[n.Name] = d
		return nil
	}

	for _, n := range g.nodes {
		if err := visit(n); err != nil {
			return err
		}
	}

	g.depth = make([]int, len(g.nodes))
	for _, n := range g.nodes {
		g.depth[n.canonicalIndex] = depth[n.Name]
	}
	return nil
}
