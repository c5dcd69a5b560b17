package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"assetweaver/internal/config"
	"assetweaver/internal/dag"
	"assetweaver/internal/orchestrator"
	"assetweaver/internal/state"
	"assetweaver/internal/trace"
)

// ledgerKeep is how many runs the ledger retains.
const ledgerKeep = 50

type CLIResult struct {
	ExitCode int

	// RunID identifies the ledger entry of this invocation.
	RunID string

	// Results holds one graph result per requested task that ran.
	Results []*dag.GraphResult

	// Listing is the --list output.
	Listing string
}

// Artifacts lists every path written by the invocation, in order.
func (r CLIResult) Artifacts() []string {
	var out []string
	for _, gr := range r.Results {
		for _, a := range gr.Artifacts() {
			out = append(out, a.Path)
		}
	}
	return out
}

// Execute loads configuration for inv, runs each requested task in order and
// records the invocation in the run ledger.
//
// Exit codes: a failed task yields ExitTaskFailure; an unknown task
// ExitInvalidInvocation; bad configuration ExitConfigError; anything else
// ExitInternalError.
func Execute(ctx context.Context, inv CLIInvocation) (res CLIResult, execErr error) {
	res.ExitCode = ExitInternalError
	logger := log.Logger

	st, err := state.NewStore(inv.WorkDir)
	if err != nil {
		return res, err
	}
	rec := &state.FailureRecorder{Store: st}
	run := state.Run{RunID: rec.NewRunID(), Tasks: inv.Tasks}
	res.RunID = run.RunID

	var recorder *trace.Recorder
	if inv.Trace.Enabled {
		recorder = trace.NewRecorder()
		defer func() {
			if run.GraphHash == "" {
				return
			}
			if err := trace.WriteFile(inv.Trace.Path, recorder.Trace(run.GraphHash)); err != nil {
				logger.Error().Err(err).Str("path", inv.Trace.Path).Msg("writing trace")
				if execErr == nil {
					res.ExitCode = ExitInternalError
					execErr = err
				}
			}
		}()
	}

	started := false
	finish := func(code int, err error) (CLIResult, error) {
		if inv.List && err == nil {
			res.ExitCode = code
			return res, nil
		}
		if !started {
			if serr := rec.StartRun(run); serr != nil {
				logger.Warn().Err(serr).Msg("recording run")
			}
		}
		status := state.RunSucceeded
		if err != nil {
			status = state.RunFailed
			if rerr := rec.RecordFailure(run.RunID, err); rerr != nil {
				logger.Warn().Err(rerr).Msg("recording failure")
			}
		}
		if ferr := rec.FinishRun(run.RunID, status, run.GraphHash, res.Artifacts()); ferr != nil {
			logger.Warn().Err(ferr).Msg("recording run")
		}
		if _, perr := st.Prune(ledgerKeep); perr != nil {
			logger.Warn().Err(perr).Msg("pruning run ledger")
		}
		res.ExitCode = code
		return res, err
	}

	getenv, err := config.Environment(inv.WorkDir)
	if err != nil {
		return finish(ExitConfigError, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err))
	}
	cfg, err := config.Load(inv.WorkDir, inv.ConfigPath, getenv)
	if err != nil {
		return finish(ExitConfigError, err)
	}
	run.OptionSet = cfg.OptionSetName

	opts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if recorder != nil {
		opts = append(opts, orchestrator.WithTrace(recorder))
	}
	orch, err := orchestrator.New(cfg, opts...)
	if err != nil {
		return finish(ExitConfigError, err)
	}
	graph := orch.Graph()
	run.GraphHash = graph.Hash().String()

	if inv.List {
		res.Listing = Listing(graph)
		return finish(ExitSuccess, nil)
	}

	for _, name := range inv.Tasks {
		if _, ok := graph.Node(name); !ok {
			return finish(ExitInvalidInvocation, &dag.TaskNotFoundError{Name: name, Known: graph.Names()})
		}
	}

	if err := rec.StartRun(run); err != nil {
		logger.Warn().Err(err).Msg("recording run")
	} else {
		started = true
	}

	defer func() {
		if r := recover(); r != nil {
			res, execErr = finish(ExitInternalError, &state.SystemFailureError{Code: "Panic", Message: fmt.Sprintf("panic: %v", r)})
		}
	}()

	var taskErrs []error
	for _, name := range inv.Tasks {
		if ctx.Err() != nil {
			break
		}
		gr, err := orch.RunTask(ctx, name)
		if gr != nil {
			res.Results = append(res.Results, gr)
		}
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return finish(ExitTaskFailure, &state.SystemFailureError{Code: "Interrupted", Message: fmt.Sprintf("task %q interrupted", name), Cause: err})
		case gr == nil:
			return finish(ExitInternalError, &state.SystemFailureError{Code: "EngineError", Message: err.Error(), Cause: err})
		default:
			taskErrs = append(taskErrs, err)
		}
	}
	if len(taskErrs) > 0 {
		return finish(ExitTaskFailure, errors.Join(taskErrs...))
	}
	return finish(ExitSuccess, nil)
}
