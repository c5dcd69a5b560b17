package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FailureRecorder writes the run ledger for CLI invocations: run.json at
// start and finish, and failure.json when the run does not succeed.
type FailureRecorder struct {
	Store *Store

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (r *FailureRecorder) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// NewRunID returns a fresh run identifier.
func (r *FailureRecorder) NewRunID() string {
	return uuid.NewString()
}

// StartRun persists run with status running.
func (r *FailureRecorder) StartRun(run Run) error {
	if r == nil || r.Store == nil {
		return errors.New("Store is required")
	}
	if run.StartTime.IsZero() {
		run.StartTime = r.now()
	}
	if run.Tasks == nil {
		run.Tasks = []string{}
	}
	run.Status = RunRunning
	run.EndTime = nil
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}
	return r.Store.SaveRun(run)
}

// FinishRun marks the run finished with status, recording artifacts.
func (r *FailureRecorder) FinishRun(runID string, status RunStatus, graphHash string, artifacts []string) error {
	if r == nil || r.Store == nil {
		return errors.New("Store is required")
	}
	run, err := r.Store.LoadRun(runID)
	if err != nil {
		return err
	}
	end := r.now()
	if end.Before(run.StartTime) {
		end = run.StartTime
	}
	run.EndTime = &end
	run.Status = status
	if graphHash != "" {
		run.GraphHash = graphHash
	}
	if artifacts != nil {
		run.Artifacts = artifacts
	}
	return r.Store.SaveRun(run)
}

// RecordFailure classifies err and writes failure.json for runID.
func (r *FailureRecorder) RecordFailure(runID string, err error) error {
	if r == nil || r.Store == nil {
		return errors.New("Store is required")
	}
	f, ferr := Classify(err)
	if ferr != nil {
		return ferr
	}
	return r.Store.SaveFailure(runID, f)
}
