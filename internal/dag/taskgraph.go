package dag

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"assetweaver/internal/core"
)

// TaskGraph is an immutable, validated DAG of task definitions.
//
// Edges are derived from each task's Prerequisites. It is safe for
// concurrent read access.
type TaskGraph struct {
	nodesByName map[string]*TaskNode
	nodes       []*TaskNode // declaration order

	dependents [][]int // by canonical index, declaration order
	depth      []int   // by canonical index

	hash GraphHash
}

// NewTaskGraph builds and validates a TaskGraph.
//
// Validation runs immediately and rejects:
//   - empty or duplicate task names
//   - unknown kinds
//   - prerequisites naming unknown tasks
//   - repeated prerequisites and self-prerequisites
//   - any cycle (direct or indirect)
func NewTaskGraph(tasks []core.Task) (*TaskGraph, error) {
	if len(tasks) == 0 {
		return nil, invalidf("no tasks")
	}

	nodesByName := make(map[string]*TaskNode, len(tasks))
	nodes := make([]*TaskNode, 0, len(tasks))

	for i, t := range tasks {
		if t.Name == "" {
			return nil, invalidf("task name is required")
		}
		if _, exists := nodesByName[t.Name]; exists {
			return nil, invalidf("duplicate task name: %q", t.Name)
		}
		if !t.Kind.Valid() {
			return nil, invalidf("task %q: unknown kind %q", t.Name, t.Kind)
		}

		node := &TaskNode{Name: t.Name, Task: t, DefinitionHash: computeTaskDefHash(t), canonicalIndex: i}
		nodesByName[t.Name] = node
		nodes = append(nodes, node)
	}

	dependents := make([][]int, len(nodes))
	for _, n := range nodes {
		seen := make(map[string]struct{}, len(n.Task.Prerequisites))
		for _, p := range n.Task.Prerequisites {
			pre, ok := nodesByName[p]
			if !ok {
				return nil, invalidf("task %q: unknown prerequisite %q", n.Name, p)
			}
			if p == n.Name {
				return nil, invalidf("task %q lists itself as a prerequisite", n.Name)
			}
			if _, dup := seen[p]; dup {
				return nil, invalidf("task %q: duplicate prerequisite %q", n.Name, p)
			}
			seen[p] = struct{}{}
			dependents[pre.canonicalIndex] = append(dependents[pre.canonicalIndex], n.canonicalIndex)
		}
	}

	g := &TaskGraph{
		nodesByName: nodesByName,
		nodes:       nodes,
		dependents:  dependents,
	}
	if err := g.checkPrerequisites(); err != nil {
		return nil, err
	}
	g.hash = g.computeGraphHash()
	return g, nil
}

// Hash returns the stable identity for this graph.
func (g *TaskGraph) Hash() GraphHash { return g.hash }

// Node returns a node by name.
func (g *TaskGraph) Node(name string) (*TaskNode, bool) {
	n, ok := g.nodesByName[name]
	return n, ok
}

// Names returns the task names in declaration order.
func (g *TaskGraph) Names() []string {
	out := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.Name)
	}
	return out
}

// Nodes returns the nodes in declaration order.
func (g *TaskGraph) Nodes() []*TaskNode {
	out := make([]*TaskNode, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Dependents returns the names of tasks that list name as a prerequisite.
func (g *TaskGraph) Dependents(name string) []string {
	n, ok := g.nodesByName[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.dependents[n.canonicalIndex]))
	for _, idx := range g.dependents[n.canonicalIndex] {
		out = append(out, g.nodes[idx].Name)
	}
	return out
}

// Depth returns the length of the longest prerequisite chain below name.
// Tasks without prerequisites have depth 0.
func (g *TaskGraph) Depth(name string) (int, bool) {
	n, ok := g.nodesByName[name]
	if !ok {
		return 0, false
	}
	return g.depth[n.canonicalIndex], true
}

// Plan returns the tasks an invocation of target runs, in run order.
//
// Prerequisites are visited depth first in the order each task declares
// them; a task reached twice runs once, at its first position. The target
// is always last.
func (g *TaskGraph) Plan(target string) ([]string, error) {
	root, ok := g.nodesByName[target]
	if !ok {
		return nil, &TaskNotFoundError{Name: target, Known: g.Names()}
	}

	var out []string
	visited := make(map[string]bool, len(g.nodes))
	var visit func(n *TaskNode)
	visit = func(n *TaskNode) {
		if visited[n.Name] {
			return
		}
		visited[n.Name] = true
		for _, p := range n.Task.Prerequisites {
			visit(g.nodesByName[p])
		}
		out = append(out, n.Name)
	}
	visit(root)
	return out, nil
}

func (g *TaskGraph) computeGraphHash() GraphHash {
	h := sha256.New()

	writeField := func(data []byte) {
		length := uint64(len(data))
		lengthBytes := []byte{
			byte(length >> 56),
			byte(length >> 48),
			byte(length >> 40),
			byte(length >> 32),
			byte(length >> 24),
			byte(length >> 16),
			byte(length >> 8),
			byte(length),
		}
		h.Write(lengthBytes)
		h.Write(data)
	}

	// Definition hashes cover names and prerequisite lists, so sorting them
	// is enough to make the identity independent of declaration order.
	defs := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		defs = append(defs, string(n.DefinitionHash))
	}
	sort.Strings(defs)

	writeField([]byte{byte(len(defs))})
	for _, d := range defs {
		writeField([]byte(d))
	}

	sum := h.Sum(nil)
	return GraphHash(hex.EncodeToString(sum))
}
