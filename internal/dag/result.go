package dag

import (
	"errors"
	"time"

	"assetweaver/internal/core"
)

// NodeResult is what a TaskRunner reports for one task.
type NodeResult struct {
	// Inputs lists the files the task read, in read order.
	Inputs []string

	Artifacts []core.Artifact

	// Findings counts advisory lint findings.
	Findings int

	Duration time.Duration

	// Err is the task's failure, typically a *pipeline.StageError. A nil
	// Err marks the task COMPLETED.
	Err error
}

// GraphResult is the summary of one invocation.
type GraphResult struct {
	GraphHash GraphHash

	// Target is the invoked task.
	Target string

	// Plan is the run order computed for Target.
	Plan []string

	// FinalState is the terminal state of each planned task.
	FinalState ExecutionState

	// ExecutionOrder lists the tasks that were started, in order.
	ExecutionOrder []string

	// Results holds the runner output of every started task.
	Results map[string]*NodeResult

	// SkipCause maps a skipped task to the prerequisite that blocked it.
	SkipCause map[string]string
}

// Succeeded reports whether every planned task completed.
func (r *GraphResult) Succeeded() bool {
	if r == nil {
		return false
	}
	for _, name := range r.Plan {
		if !IsSuccessful(r.FinalState[name]) {
			return false
		}
	}
	return true
}

// Failed lists the tasks that FAILED, in execution order.
func (r *GraphResult) Failed() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, name := range r.ExecutionOrder {
		if r.FinalState[name] == TaskFailed {
			out = append(out, name)
		}
	}
	return out
}

// Err joins the failures of every failed task in execution order, or
// returns nil when nothing failed.
func (r *GraphResult) Err() error {
	if r == nil {
		return nil
	}
	var errs []error
	for _, name := range r.Failed() {
		if res := r.Results[name]; res != nil && res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Artifacts returns every artifact written during the invocation, in
// execution order.
func (r *GraphResult) Artifacts() []core.Artifact {
	if r == nil {
		return nil
	}
	var out []core.Artifact
	for _, name := range r.ExecutionOrder {
		if res := r.Results[name]; res != nil {
			out = append(out, res.Artifacts...)
		}
	}
	return out
}
