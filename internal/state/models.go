package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is the persistent record of one CLI invocation.
type Run struct {
	RunID     string     `json:"run_id"`
	GraphHash string     `json:"graph_hash"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`

	// Tasks are the invoked task names, in command-line order.
	Tasks     []string  `json:"tasks"`
	OptionSet string    `json:"option_set"`
	Status    RunStatus `json:"status"`

	// Artifacts lists every path written by the run.
	Artifacts []string `json:"artifacts"`
}

func (r Run) Validate() error {
	var errs []error
	if strings.TrimSpace(r.RunID) == "" {
		errs = append(errs, errors.New("run_id is required"))
	}
	if r.StartTime.IsZero() {
		errs = append(errs, errors.New("start_time is required"))
	}
	if r.EndTime != nil && r.EndTime.Before(r.StartTime) {
		errs = append(errs, errors.New("end_time precedes start_time"))
	}
	if r.Tasks == nil {
		errs = append(errs, errors.New("tasks must be an array (not null)"))
	}
	switch r.Status {
	case RunRunning, RunSucceeded, RunFailed:
	default:
		errs = append(errs, fmt.Errorf("invalid status %q", r.Status))
	}
	if r.Status != RunRunning && r.EndTime == nil {
		errs = append(errs, fmt.Errorf("end_time is required for status %q", r.Status))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

type FailureClass string

const (
	// FailureClassInvocation covers requests for undeclared tasks.
	FailureClassInvocation FailureClass = "invocation"
	// FailureClassConfig covers unreadable or invalid configuration.
	FailureClassConfig FailureClass = "config"
	// FailureClassStage covers a task whose stage chain failed.
	FailureClassStage FailureClass = "stage"
	// FailureClassSystem covers everything else: I/O, panics, signals.
	FailureClassSystem FailureClass = "system"
)

// Failure is the recorded reason a run did not succeed.
type Failure struct {
	FailureClass FailureClass `json:"failure_class"`
	TaskID       *string      `json:"task_id,omitempty"`
	Stage        *string      `json:"stage,omitempty"`
	Location     string       `json:"location,omitempty"`
	ErrorCode    string       `json:"error_code"`
	ErrorMessage string       `json:"error_message"`
}

func (f Failure) Validate() error {
	var errs []error
	switch f.FailureClass {
	case FailureClassInvocation, FailureClassConfig, FailureClassStage, FailureClassSystem:
	default:
		errs = append(errs, fmt.Errorf("invalid failure_class %q", f.FailureClass))
	}
	if f.TaskID != nil && strings.TrimSpace(*f.TaskID) == "" {
		errs = append(errs, errors.New("task_id must not be empty when provided"))
	}
	if f.FailureClass == FailureClassStage && (f.TaskID == nil || f.Stage == nil) {
		errs = append(errs, errors.New("stage failures require task_id and stage"))
	}
	if strings.TrimSpace(f.ErrorCode) == "" {
		errs = append(errs, errors.New("error_code is required"))
	}
	if strings.TrimSpace(f.ErrorMessage) == "" {
		errs = append(errs, errors.New("error_message is required"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
