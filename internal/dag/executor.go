package dag

import (
	"context"
	"fmt"
	"sync"

	"assetweaver/internal/core"
	"assetweaver/internal/trace"
)

// TaskRunner executes a single task.
//
// A task failure is reported through NodeResult.Err. A non-nil error means
// the runner itself could not operate and aborts the invocation.
type TaskRunner interface {
	Run(ctx context.Context, task core.Task) (*NodeResult, error)
}

// TaskRunnerFunc adapts a function to TaskRunner.
type TaskRunnerFunc func(ctx context.Context, task core.Task) (*NodeResult, error)

func (f TaskRunnerFunc) Run(ctx context.Context, task core.Task) (*NodeResult, error) {
	return f(ctx, task)
}

// Executor runs invocation plans over a TaskGraph, one task at a time.
//
// Serial execution is what the invocation model requires: a prerequisite
// completes before the next planned task starts, and siblings run in
// declared order.
type Executor struct {
	Graph  *TaskGraph
	Runner TaskRunner

	// Trace receives executed, failed and skipped events. May be nil.
	Trace trace.Sink

	mu    sync.Mutex
	state ExecutionState
}

// NewExecutor creates an executor for g.
func NewExecutor(g *TaskGraph, runner TaskRunner) (*Executor, error) {
	if g == nil {
		return nil, fmt.Errorf("nil graph")
	}
	if runner == nil {
		return nil, fmt.Errorf("nil runner")
	}
	return &Executor{Graph: g, Runner: runner}, nil
}

// StateSnapshot returns a copy of the state of the current (or last)
// invocation.
func (e *Executor) StateSnapshot() ExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// RunSerial runs target and its prerequisite closure.
//
// Pipeline tasks whose prerequisites are blocked are SKIPPED without
// running. Group and watch tasks always run once their prerequisites are
// terminal. A failed task never stops its siblings.
//
// An unknown target yields a *TaskNotFoundError. If ctx ends between tasks,
// the remaining tasks are SKIPPED and ctx's error is returned with the
// partial result.
func (e *Executor) RunSerial(ctx context.Context, target string) (*GraphResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	plan, err := e.Graph.Plan(target)
	if err != nil {
		return nil, err
	}

	state := make(ExecutionState, len(plan))
	for _, name := range plan {
		state[name] = TaskPending
	}
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()

	res := &GraphResult{
		GraphHash: e.Graph.Hash(),
		Target:    target,
		Plan:      plan,
		Results:   make(map[string]*NodeResult, len(plan)),
		SkipCause: make(map[string]string),
	}
	finish := func() *GraphResult {
		res.FinalState = e.StateSnapshot()
		return res
	}

	for i, name := range plan {
		if err := ctx.Err(); err != nil {
			e.mu.Lock()
			for _, rest := range plan[i:] {
				_ = Transition(e.state, rest, TaskPending, TaskSkipped)
				e.record(trace.TraceEvent{Kind: trace.EventTaskSkipped, TaskID: rest, Reason: trace.ReasonCancelled})
			}
			e.mu.Unlock()
			return finish(), err
		}

		node := e.Graph.nodesByName[name]

		e.mu.Lock()
		if !node.Task.Kind.IsAggregate() {
			if cause, blocked := BlockedBy(e.Graph, e.state, name); blocked {
				if err := Transition(e.state, name, TaskPending, TaskSkipped); err != nil {
					e.mu.Unlock()
					return nil, err
				}
				res.SkipCause[name] = cause
				e.record(trace.TraceEvent{Kind: trace.EventTaskSkipped, TaskID: name, Reason: trace.ReasonUpstreamFailed, CauseTaskID: cause})
				e.mu.Unlock()
				continue
			}
		}
		if err := Transition(e.state, name, TaskPending, TaskRunning); err != nil {
			e.mu.Unlock()
			return nil, err
		}
		res.ExecutionOrder = append(res.ExecutionOrder, name)
		e.mu.Unlock()

		// The runner is called outside the lock so StateSnapshot stays live
		// during long tasks such as watch.
		nr, err := e.Runner.Run(ctx, node.Task)
		if err != nil {
			return nil, fmt.Errorf("executing %q: %w", name, err)
		}
		if nr == nil {
			return nil, fmt.Errorf("executing %q: nil result", name)
		}
		res.Results[name] = nr

		e.mu.Lock()
		to := TaskCompleted
		ev := trace.TraceEvent{Kind: trace.EventTaskExecuted, TaskID: name, Artifacts: artifactPaths(nr.Artifacts)}
		if nr.Err != nil {
			to = TaskFailed
			ev = trace.TraceEvent{Kind: trace.EventTaskFailed, TaskID: name, Reason: trace.FailureReason(nr.Err)}
		}
		if err := Transition(e.state, name, TaskRunning, to); err != nil {
			e.mu.Unlock()
			return nil, err
		}
		e.record(ev)
		e.mu.Unlock()
	}

	res = finish()
	for _, name := range plan {
		if st := res.FinalState[name]; !IsTerminal(st) {
			return nil, fmt.Errorf("task %q finished the plan in state %s", name, st)
		}
	}
	return res, nil
}

func (e *Executor) record(ev trace.TraceEvent) {
	trace.SafeRecord(e.Trace, ev)
}

func artifactPaths(as []core.Artifact) []string {
	if len(as) == 0 {
		return nil
	}
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Path)
	}
	return out
}
