// Package scheduler runs recurring tasks on independent fixed intervals.
//
// Each task has its own ticker. A tick that fires while the previous run of
// the same task is still in flight is dropped; different tasks never wait on
// each other. Runs are started through lifecycle.Go and a panicking task is
// logged and counted as a failure while its ticker keeps going.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/govsync/internal/logging"
)

var (
	ErrUnknownTask = errors.New("unknown task")
	ErrBusy        = errors.New("task already running")
)

// Task is one recurring operation.
type Task struct {
	Name     string
	Interval time.Duration
	// RunOnStart triggers a run as soon as the scheduler starts instead of
	// waiting for the first tick.
	RunOnStart bool
	Run        func(ctx context.Context) error
}

// Stats is a point-in-time view of a task's counters.
type Stats struct {
	Name     string `json:"name"`
	Runs     int64  `json:"runs"`
	Failures int64  `json:"failures"`
	Skipped  int64  `json:"skipped"`
	Running  bool   `json:"running"`
}

type task struct {
	Task
	running  atomic.Bool
	runs     atomic.Int64
	failures atomic.Int64
	skipped  atomic.Int64
}

type Scheduler struct {
	tasks map[string]*task
	log   logging.Logger
	wg    sync.WaitGroup
}

func New(log logging.Logger, tasks ...Task) (*Scheduler, error) {
	s := &Scheduler{tasks: make(map[string]*task, len(tasks)), log: log.With("module", "scheduler")}
	for _, t := range tasks {
		if t.Name == "" || t.Run == nil {
			return nil, fmt.Errorf("task %q: name and run func are required", t.Name)
		}
		if t.Interval <= 0 {
			return nil, fmt.Errorf("task %q: interval must be positive", t.Name)
		}
		if _, dup := s.tasks[t.Name]; dup {
			return nil, fmt.Errorf("task %q registered twice", t.Name)
		}
		s.tasks[t.Name] = &task{Task: t}
	}
	return s, nil
}

// Start launches every task's ticker. The tickers stop when ctx is done;
// Wait blocks until in-flight runs have returned.
func (s *Scheduler) Start(ctx context.Context) {
	for _, t := range s.tasks {
		t := t
		s.wg.Add(1)
		lifecycle.Go(ctx, func(ctx context.Context) error {
			defer s.wg.Done()
			s.loop(ctx, t)
			return nil
		}, lifecycle.WithErrorHandler(func(err error) {
			s.log.Error(ctx, "ticker crashed", "task", t.Name, "error", err)
		}))
	}
	s.log.Info(ctx, "scheduler started", "tasks", len(s.tasks))
}

func (s *Scheduler) loop(ctx context.Context, t *task) {
	if t.RunOnStart {
		s.trigger(ctx, t)
	}

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger(ctx, t)
		}
	}
}

// trigger starts a run of t unless one is in flight.
func (s *Scheduler) trigger(ctx context.Context, t *task) {
	if !t.running.CompareAndSwap(false, true) {
		t.skipped.Add(1)
		s.log.Warn(ctx, "previous run still in flight, skipping tick", "task", t.Name)
		return
	}

	log := s.runLogger(t)

	s.wg.Add(1)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer s.wg.Done()
		defer t.running.Store(false)
		_ = s.execute(ctx, t, log)
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		failures := t.failures.Add(1)
		log.Error(ctx, "task panicked", "error", err, "failures", failures)
	}))
}

func (s *Scheduler) runLogger(t *task) logging.Logger {
	return s.log.With("task", t.Name, "run_id", uuid.NewString())
}

func (s *Scheduler) execute(ctx context.Context, t *task, log logging.Logger) error {
	start := time.Now()
	t.runs.Add(1)
	log.Info(ctx, "task started")

	if err := safeRun(ctx, t.Run); err != nil {
		failures := t.failures.Add(1)
		log.Error(ctx, "task failed", "error", err, "failures", failures, "elapsed", time.Since(start).String())
		return err
	}
	log.Info(ctx, "task finished", "elapsed", time.Since(start).String(), "failures", t.failures.Load())
	return nil
}

func safeRun(ctx context.Context, run func(context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return run(ctx)
}

// RunNow runs the named task once in the caller's goroutine and returns its
// error. A run already in flight, ticked or manual, makes it fail with
// ErrBusy instead of overlapping.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	t, ok := s.tasks[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	if !t.running.CompareAndSwap(false, true) {
		t.skipped.Add(1)
		return fmt.Errorf("%w: %s", ErrBusy, name)
	}
	defer t.running.Store(false)
	return s.execute(ctx, t, s.runLogger(t))
}

// Wait blocks until every ticker and in-flight run has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Stats returns the counters of every task, sorted by name.
func (s *Scheduler) Stats() []Stats {
	out := make([]Stats, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, Stats{
			Name:     t.Name,
			Runs:     t.runs.Load(),
			Failures: t.failures.Load(),
			Skipped:  t.skipped.Load(),
			Running:  t.running.Load(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
