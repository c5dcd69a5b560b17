package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"assetweaver/internal/core"
	"assetweaver/internal/jslint"
)

// Stage is one transformation in a chain.
type Stage interface {
	Name() string
	Apply(ctx context.Context, run *Run, files []File) ([]File, error)
}

// Run carries the state of one chain invocation.
type Run struct {
	Task string
	Log  zerolog.Logger

	// Inputs lists every path read by src and addsrc stages, in order.
	Inputs []string

	// Sources keeps the original content of each input for source maps.
	Sources map[string][]byte

	Findings  jslint.Findings
	Artifacts []core.Artifact
}

func (r *Run) addInput(in core.Input) {
	if r.Sources == nil {
		r.Sources = make(map[string][]byte)
	}
	r.Inputs = append(r.Inputs, in.Path)
	r.Sources[in.Path] = in.Content
}

// Result summarises a successful or failed chain invocation.
type Result struct {
	Task      string
	Inputs    []string
	Findings  jslint.Findings
	Artifacts []core.Artifact
	Duration  time.Duration
}

// Chain is the fixed stage sequence of one task.
type Chain struct {
	Task   string
	Stages []Stage
}

// StageNames lists the stages in order.
func (c *Chain) StageNames() []string {
	out := make([]string, 0, len(c.Stages))
	for _, s := range c.Stages {
		out = append(out, s.Name())
	}
	return out
}

// Run executes every stage in order. The first failure stops the chain and
// is returned as a *StageError; the partial result is returned with it.
func (c *Chain) Run(ctx context.Context, log zerolog.Logger) (*Result, error) {
	start := time.Now()
	run := &Run{Task: c.Task, Log: log.With().Str("task", c.Task).Logger()}
	result := func() *Result {
		return &Result{
			Task:      c.Task,
			Inputs:    run.Inputs,
			Findings:  run.Findings,
			Artifacts: run.Artifacts,
			Duration:  time.Since(start),
		}
	}

	var files []File
	for _, stage := range c.Stages {
		if err := ctx.Err(); err != nil {
			return result(), &StageError{Task: c.Task, Stage: stage.Name(), Err: fmt.Errorf("cancelled: %w", err)}
		}
		run.Log.Debug().Str("stage", stage.Name()).Int("files", len(files)).Msg("stage start")

		out, err := stage.Apply(ctx, run, files)
		if err != nil {
			var se *StageError
			if !errors.As(err, &se) {
				se = &StageError{Err: err}
			}
			se.Task = c.Task
			se.Stage = stage.Name()
			return result(), se
		}
		files = out
	}
	return result(), nil
}
