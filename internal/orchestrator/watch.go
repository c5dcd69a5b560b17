package orchestrator

import (
	"context"

	"assetweaver/internal/config"
	"assetweaver/internal/dag"
	"assetweaver/internal/watch"
)

// Watch reruns the bound tasks whenever a file matching a binding changes,
// until ctx ends. Task failures are reported and never end the loop.
func (o *Orchestrator) Watch(ctx context.Context, bindings []config.WatchBinding) error {
	wb := make([]watch.Binding, 0, len(bindings))
	for _, b := range bindings {
		for _, name := range b.Tasks {
			if _, ok := o.graph.Node(name); !ok {
				return &dag.TaskNotFoundError{Name: name, Known: o.graph.Names()}
			}
		}
		wb = append(wb, watch.Binding{Pattern: b.Pattern, Tasks: b.Tasks})
	}

	w, err := watch.NewWatcher(o.cfg.Root, wb, o.log,
		watch.WithIgnore(o.cfg.StyleOutputDir, o.cfg.ScriptOutputDir, o.cfg.RTLOutputDir))
	if err != nil {
		return err
	}
	sched := watch.NewScheduler(o.rerun,
		watch.WithSettle(o.settle),
		watch.WithLogger(o.log),
		watch.WithTrace(o.trace),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watchErr := make(chan error, 1)
	go func() { watchErr <- w.Run(ctx) }()

	o.log.Info().Int("bindings", len(wb)).Str("root", o.cfg.Root).Msg("watching for changes")
	if o.watchStarted != nil {
		o.watchStarted()
	}

	// The watcher closes its event channel when it stops, which also ends
	// the scheduler after in-flight runs finish.
	_ = sched.Run(ctx, w.Events())
	cancel()
	return <-watchErr
}

func (o *Orchestrator) rerun(ctx context.Context, task string) error {
	res, err := o.RunTask(ctx, task)
	if err != nil {
		return err
	}
	return res.Err()
}
