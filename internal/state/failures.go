package state

import (
	"errors"
	"fmt"

	"assetweaver/internal/config"
	"assetweaver/internal/dag"
	"assetweaver/internal/pipeline"
)

// SystemFailureError reports crashes, signals and I/O failures outside any
// stage.
type SystemFailureError struct {
	Code    string
	Message string
	Cause   error
}

func (e *SystemFailureError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("system failure (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("system failure: %s", e.Message)
}

func (e *SystemFailureError) Unwrap() error { return e.Cause }

// Classify maps an error to a Failure record.
//
// Stage errors take precedence over everything else; with several joined
// stage errors the first one is recorded.
func Classify(err error) (Failure, error) {
	if err == nil {
		return Failure{}, errors.New("nil error")
	}

	var se *pipeline.StageError
	if errors.As(err, &se) && se != nil {
		task, stage := se.Task, se.Stage
		msg := "stage failed"
		if se.Err != nil {
			msg = se.Err.Error()
		}
		return Failure{
			FailureClass: FailureClassStage,
			TaskID:       &task,
			Stage:        &stage,
			Location:     se.Location(),
			ErrorCode:    "StageFailed",
			ErrorMessage: msg,
		}, nil
	}

	var nf *dag.TaskNotFoundError
	if errors.As(err, &nf) && nf != nil {
		name := nf.Name
		return Failure{
			FailureClass: FailureClassInvocation,
			TaskID:       &name,
			ErrorCode:    "TaskNotFound",
			ErrorMessage: nf.Error(),
		}, nil
	}

	if errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, dag.ErrInvalidGraph) || errors.Is(err, dag.ErrCycleFound) {
		return Failure{
			FailureClass: FailureClassConfig,
			ErrorCode:    "InvalidConfig",
			ErrorMessage: err.Error(),
		}, nil
	}

	var sf *SystemFailureError
	if errors.As(err, &sf) && sf != nil {
		return Failure{
			FailureClass: FailureClassSystem,
			ErrorCode:    nonEmptyOr(sf.Code, "SystemFailure"),
			ErrorMessage: nonEmptyOr(sf.Message, sf.Error()),
		}, nil
	}

	return Failure{
		FailureClass: FailureClassSystem,
		ErrorCode:    "UnknownError",
		ErrorMessage: err.Error(),
	}, nil
}

func nonEmptyOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
