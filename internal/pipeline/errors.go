package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"assetweaver/internal/scss"
)

// StageError is a failed stage. It ends the chain of the task it belongs to
// and nothing else.
type StageError struct {
	Task  string
	Stage string

	// File, Line and Column locate the failure when the stage knows it.
	File   string
	Line   int
	Column int

	Err error
}

func (e *StageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "task %q: stage %s failed", e.Task, e.Stage)
	if loc := e.Location(); loc != "" {
		b.WriteString(": ")
		b.WriteString(loc)
	}
	if e.Err != nil {
		b.WriteString(": ")
		var cerr *scss.Error
		if errors.As(e.Err, &cerr) {
			b.WriteString(cerr.Message)
		} else {
			b.WriteString(e.Err.Error())
		}
	}
	return b.String()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage names the stage that failed.
func (e *StageError) FailedStage() string { return e.Stage }

// Location formats file:line:column, omitting unknown parts.
func (e *StageError) Location() string {
	if e.File == "" {
		return ""
	}
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("%s:%d:%d", e.File, e.Line, e.Column)
	case e.Line > 0:
		return fmt.Sprintf("%s:%d", e.File, e.Line)
	default:
		return e.File
	}
}

// fileError builds the error a stage returns for one file. Compile errors
// carry their own position and replace file.
func fileError(file string, err error) *StageError {
	se := &StageError{File: file, Err: err}
	var cerr *scss.Error
	if errors.As(err, &cerr) {
		se.File, se.Line, se.Column = cerr.File, cerr.Line, cerr.Column
	}
	return se
}
