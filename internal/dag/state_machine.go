package dag

import "fmt"

// IsTerminal reports whether the state is terminal (finished).
func IsTerminal(s TaskState) bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskSkipped:
		return true
	default:
		return false
	}
}

// IsSuccessful reports whether the state satisfies dependents.
func IsSuccessful(s TaskState) bool {
	return s == TaskCompleted
}

// Transition performs a validated transition for a single task.
//
// The caller supplies the expected prior state (from) to make races observable.
// The state map is mutated if and only if the transition is valid.
func Transition(state ExecutionState, taskName string, from, to TaskState) error {
	cur, ok := state[taskName]
	if !ok {
		return fmt.Errorf("unknown task in state: %q", taskName)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", taskName, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", taskName, from, to)
	}
	state[taskName] = to
	return nil
}

func isAllowedTransition(from, to TaskState) bool {
	switch from {
	case TaskPending:
		return to == TaskRunning || to == TaskSkipped
	case TaskRunning:
		return to == TaskCompleted || to == TaskFailed
	default:
		return false
	}
}

// BlockedBy reports the prerequisite that prevents taskName from running,
// walking prerequisites in declared order.
//
// A prerequisite blocks when it FAILED or was SKIPPED. Group and watch
// tasks complete even when their own prerequisites fail, so a completed
// aggregate prerequisite blocks when anything beneath it does; the returned
// cause is then the task that actually failed or was skipped.
//
// Aggregate tasks themselves are never blocked: callers only consult
// BlockedBy for tasks that produce output.
func BlockedBy(g *TaskGraph, state ExecutionState, taskName string) (string, bool) {
	node, ok := g.nodesByName[taskName]
	if !ok {
		return "", false
	}
	for _, p := range node.Task.Prerequisites {
		switch state[p] {
		case TaskFailed, TaskSkipped:
			return p, true
		}
		if g.nodesByName[p].Task.Kind.IsAggregate() {
			if cause, blocked := BlockedBy(g, state, p); blocked {
				return cause, true
			}
		}
	}
	return "", false
}
