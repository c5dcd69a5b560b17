package dag

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidGraph = errors.New("invalid task graph")
	ErrCycleFound   = errors.New("cycle detected")
	ErrTaskNotFound = errors.New("task not found")
)

// GraphError wraps deterministic graph validation failures.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

// TaskNotFoundError reports an invocation of a name no task declares.
type TaskNotFoundError struct {
	Name string

	// Known lists the declared task names in declaration order.
	Known []string
}

func (e *TaskNotFoundError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("task %q not found", e.Name)
	}
	return fmt.Sprintf("task %q not found (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

func (e *TaskNotFoundError) Unwrap() error { return ErrTaskNotFound }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

// CycleError reports tasks that need each other. Path starts and ends at
// the same task; each entry lists the next as a prerequisite.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) < 2 {
		return ErrCycleFound.Error()
	}
	parts := make([]string, 0, len(e.Path)-1)
	for i := 0; i+1 < len(e.Path); i++ {
		parts = append(parts, fmt.Sprintf("%q needs %q", e.Path[i], e.Path[i+1]))
	}
	return fmt.Sprintf("%s: %s", ErrCycleFound, strings.Join(parts, ", "))
}

func (e *CycleError) Unwrap() error { return ErrCycleFound }
