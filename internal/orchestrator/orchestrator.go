package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"assetweaver/internal/compress"
	"assetweaver/internal/config"
	"assetweaver/internal/core"
	"assetweaver/internal/css"
	"assetweaver/internal/dag"
	"assetweaver/internal/pipeline"
	"assetweaver/internal/scss"
	"assetweaver/internal/trace"
	"assetweaver/internal/watch"
)

// FailureMarker prefixes every task failure in the log so failures stand out
// in a scrolling watch session.
const FailureMarker = "✖"

// Orchestrator runs the declared tasks of one project. Its task graph and
// stage chains are fixed by New; only invocations repeat.
type Orchestrator struct {
	cfg    config.Config
	fs     billy.Filesystem
	log    zerolog.Logger
	trace  trace.Sink
	settle time.Duration
	alert  io.Writer

	graph  *dag.TaskGraph
	chains map[string]*pipeline.Chain

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// watchStarted is called once the watcher is subscribed.
	watchStarted func()
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithTrace records task events to sink.
func WithTrace(sink trace.Sink) Option {
	return func(o *Orchestrator) { o.trace = sink }
}

// WithFilesystem replaces the project filesystem rooted at cfg.Root. The
// watcher always observes the real directory.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(o *Orchestrator) { o.fs = fs }
}

// WithSettle overrides the watch settle window.
func WithSettle(d time.Duration) Option {
	return func(o *Orchestrator) { o.settle = d }
}

// WithAlert sets where the audible failure alert is written. Nil disables
// it. The default is stderr when it is a terminal.
func WithAlert(w io.Writer) Option {
	return func(o *Orchestrator) { o.alert = w }
}

// New validates cfg and builds the task graph and every stage chain.
func New(cfg config.Config, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		cfg:    cfg,
		log:    zerolog.Nop(),
		settle: watch.DefaultSettle,
		locks:  make(map[string]*sync.Mutex),
	}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		o.alert = os.Stderr
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.fs == nil {
		if cfg.Root == "" {
			return nil, fmt.Errorf("%w: project root is required", config.ErrInvalidConfig)
		}
		o.fs = osfs.New(cfg.Root)
	}

	tasks := cfg.ResolvedTasks()
	g, err := dag.NewTaskGraph(tasks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	o.graph = g

	b, err := o.builder()
	if err != nil {
		return nil, err
	}
	o.chains = make(map[string]*pipeline.Chain, len(tasks))
	for _, t := range tasks {
		chain, err := b.Build(t)
		if err != nil {
			return nil, err
		}
		if chain != nil {
			o.chains[t.Name] = chain
		}
	}
	return o, nil
}

func (o *Orchestrator) builder() (*pipeline.Builder, error) {
	opts := o.cfg.Options()
	matrix, err := o.cfg.Matrix()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	cache, err := core.NewStageCache(o.cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	var compiler pipeline.StyleCompiler
	switch o.cfg.Compiler {
	case config.CompilerCommand:
		env := map[string]string{}
		for _, k := range []string{"PATH", "HOME"} {
			if v, ok := os.LookupEnv(k); ok {
				env[k] = v
			}
		}
		compiler = &pipeline.CommandCompiler{
			Command:  o.cfg.CompilerCommand,
			Executor: core.NewExecutor(o.cfg.Root, env),
		}
	default:
		compiler = &pipeline.BuiltinCompiler{Compiler: scss.NewCompiler(o.fs, o.cfg.LoadPaths...)}
	}

	return &pipeline.Builder{
		Resolver:     core.NewInputResolver(o.fs),
		Writer:       core.NewWriter(o.fs),
		Compiler:     compiler,
		Prefixer:     css.NewPrefixer(matrix, opts.Flexbugs),
		Minifier:     compress.New(),
		Cache:        cache,
		PrefixParams: append(matrix.Queries(), "flexbugs="+strconv.FormatBool(opts.Flexbugs)),
		Styles: pipeline.StyleOutputs{
			Dir:     o.cfg.StyleOutputDir,
			Name:    o.cfg.StyleOutputName,
			RTLDir:  o.cfg.RTLOutputDir,
			RTLName: o.cfg.RTLOutputName,
			DevRTL:  opts.DevRTL,
		},
		Scripts: pipeline.ScriptOutputs{
			Dir:            o.cfg.ScriptOutputDir,
			Name:           o.cfg.ScriptOutputName,
			MinifiedSuffix: opts.MinifiedSuffix,
			VendorFirst:    opts.VendorOrder == config.VendorFirst,
		},
	}, nil
}

// Graph returns the task graph.
func (o *Orchestrator) Graph() *dag.TaskGraph { return o.graph }

// StageNames lists the fixed stage sequence of a pipeline task.
func (o *Orchestrator) StageNames(task string) []string {
	if c := o.chains[task]; c != nil {
		return c.StageNames()
	}
	return nil
}

// RunTask runs name after its prerequisites.
//
// An unknown name yields a *dag.TaskNotFoundError. Otherwise the result
// describes every planned task; the returned error joins the stage errors
// of the tasks that failed.
func (o *Orchestrator) RunTask(ctx context.Context, name string) (*dag.GraphResult, error) {
	exec, err := dag.NewExecutor(o.graph, dag.TaskRunnerFunc(o.runTask))
	if err != nil {
		return nil, err
	}
	exec.Trace = o.trace

	start := time.Now()
	o.log.Info().Str("task", name).Msg("starting")
	res, err := exec.RunSerial(ctx, name)
	if err != nil {
		return res, err
	}
	if err := res.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			o.log.Info().Str("task", name).Msg("interrupted")
			return res, err
		}
		o.log.Error().Str("task", name).Strs("failed", res.Failed()).Dur("took", time.Since(start)).Msg(FailureMarker + " finished with errors")
		return res, err
	}
	o.log.Info().Str("task", name).Dur("took", time.Since(start)).Msg("finished")
	return res, nil
}

func (o *Orchestrator) runTask(ctx context.Context, t core.Task) (*dag.NodeResult, error) {
	switch t.Kind {
	case core.KindGroup:
		return &dag.NodeResult{}, nil
	case core.KindWatch:
		if err := o.Watch(ctx, o.cfg.WatchTargets()); err != nil {
			return nil, err
		}
		return &dag.NodeResult{}, nil
	}

	chain := o.chains[t.Name]
	if chain == nil {
		return nil, fmt.Errorf("task %q has no stage chain", t.Name)
	}

	mu := o.lockFor(t.Name)
	mu.Lock()
	defer mu.Unlock()

	res, err := chain.Run(ctx, o.log)
	nr := &dag.NodeResult{Err: err}
	if res != nil {
		nr.Inputs = res.Inputs
		nr.Artifacts = res.Artifacts
		nr.Findings = len(res.Findings)
		nr.Duration = res.Duration
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			o.reportFailure(t.Name, err)
		}
		return nr, nil
	}
	o.log.Info().
		Str("task", t.Name).
		Int("inputs", len(nr.Inputs)).
		Int("artifacts", len(nr.Artifacts)).
		Int("findings", nr.Findings).
		Dur("took", nr.Duration).
		Msg("task completed")
	return nr, nil
}

// reportFailure logs a task failure with FailureMarker and rings the
// terminal bell.
func (o *Orchestrator) reportFailure(task string, err error) {
	ev := o.log.Error().Str("task", task)
	var se *pipeline.StageError
	if errors.As(err, &se) {
		ev = ev.Str("stage", se.Stage)
		if loc := se.Location(); loc != "" {
			ev = ev.Str("at", loc)
		}
	}
	ev.Err(err).Msg(FailureMarker + " task failed")
	if o.alert != nil {
		_, _ = io.WriteString(o.alert, "\a")
	}
}

func (o *Orchestrator) lockFor(task string) *sync.Mutex {
	o.locksMu.Lock()
	defer o.locksMu.Unlock()
	mu := o.locks[task]
	if mu == nil {
		mu = &sync.Mutex{}
		o.locks[task] = mu
	}
	return mu
}
