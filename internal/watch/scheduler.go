package watch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"assetweaver/internal/trace"
)

// DefaultSettle is how long the scheduler waits after the first trigger
// before running a task.
const DefaultSettle = 100 * time.Millisecond

// TaskFunc runs one task. A returned error marks that run failed; it never
// stops the scheduler.
type TaskFunc func(ctx context.Context, task string) error

// Scheduler runs triggered tasks.
//
// For each task:
//   - at most one run is in flight;
//   - triggers that arrive while a run is queued are absorbed by it;
//   - triggers that arrive while a run is in flight produce exactly one
//     follow-up run;
//   - a run starts Settle after the trigger that queued it.
//
// Different tasks run independently of each other.
type Scheduler struct {
	run    TaskFunc
	settle time.Duration
	log    zerolog.Logger
	trace  trace.Sink

	mu      sync.Mutex
	ctx     context.Context
	tasks   map[string]*taskSlot
	wg      sync.WaitGroup
	stopped bool
}

type taskSlot struct {
	timer   *time.Timer
	running bool
	again   bool
	runs    int
	fails   int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSettle overrides DefaultSettle. Zero runs on the next tick.
func WithSettle(d time.Duration) Option {
	return func(s *Scheduler) { s.settle = d }
}

// WithLogger sets the scheduler's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = log.With().Str("component", "scheduler").Logger() }
}

// WithTrace records a TaskTriggered event per trigger.
func WithTrace(sink trace.Sink) Option {
	return func(s *Scheduler) { s.trace = sink }
}

// NewScheduler creates a scheduler that runs tasks with run.
func NewScheduler(run TaskFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		run:    run,
		settle: DefaultSettle,
		log:    zerolog.Nop(),
		tasks:  make(map[string]*taskSlot),
		ctx:    context.Background(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run consumes events until ctx ends or events is closed, then waits for
// in-flight runs. Queued runs that have not started are dropped on
// cancellation.
func (s *Scheduler) Run(ctx context.Context, events <-chan Event) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			s.stop()
			s.Wait()
			return nil
		case ev, ok := <-events:
			if !ok {
				s.Wait()
				return nil
			}
			for _, task := range ev.Tasks {
				s.Trigger(task, ev.Path)
			}
		}
	}
}

// Trigger requests a run of task because path changed.
func (s *Scheduler) Trigger(task, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	trace.SafeRecord(s.trace, trace.TraceEvent{Kind: trace.EventTaskTriggered, TaskID: task, Reason: trace.ReasonFileChanged, Path: path})

	slot := s.tasks[task]
	if slot == nil {
		slot = &taskSlot{}
		s.tasks[task] = slot
	}
	switch {
	case slot.running:
		slot.again = true
		s.log.Debug().Str("task", task).Str("path", path).Msg("change during run, follow-up queued")
	case slot.timer != nil:
		s.log.Debug().Str("task", task).Str("path", path).Msg("change coalesced")
	default:
		s.queue(task, slot)
	}
}

// queue arms the settle timer. Callers hold s.mu.
func (s *Scheduler) queue(task string, slot *taskSlot) {
	s.wg.Add(1)
	slot.timer = time.AfterFunc(s.settle, func() { s.start(task) })
}

func (s *Scheduler) start(task string) {
	s.mu.Lock()
	slot := s.tasks[task]
	slot.timer = nil
	if s.stopped {
		s.mu.Unlock()
		s.wg.Done()
		return
	}
	slot.running = true
	ctx := s.ctx
	s.mu.Unlock()

	err := s.run(ctx, task)

	s.mu.Lock()
	slot.running = false
	slot.runs++
	if err != nil {
		slot.fails++
	}
	if slot.again && !s.stopped {
		slot.again = false
		s.queue(task, slot)
	}
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for _, slot := range s.tasks {
		if slot.timer != nil && slot.timer.Stop() {
			slot.timer = nil
			s.wg.Done()
		}
		slot.again = false
	}
}

// Wait blocks until no run is queued or in flight.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Runs returns how many runs of task finished, and how many of them failed.
func (s *Scheduler) Runs(task string) (runs, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot := s.tasks[task]; slot != nil {
		return slot.runs, slot.fails
	}
	return 0, 0
}
