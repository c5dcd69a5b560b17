package dag

import "assetweaver/internal/core"

// GraphHash is the deterministic identity of a TaskGraph.
//
// It is computed from task definition content and dependency structure and
// does not depend on the order tasks were declared in.
type GraphHash string

// TaskDefHash is the deterministic identity of a single task definition.
type TaskDefHash string

// TaskNode is an immutable node in the TaskGraph.
type TaskNode struct {
	Name           string
	Task           core.Task
	DefinitionHash TaskDefHash
	canonicalIndex int
}

// CanonicalIndex returns the node's position in declaration order.
func (n *TaskNode) CanonicalIndex() int { return n.canonicalIndex }

func (h GraphHash) String() string { return string(h) }

func (h TaskDefHash) String() string { return string(h) }
