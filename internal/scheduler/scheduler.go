// Package scheduler drives collection tasks on fixed, independent cadences.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wan300/jiaotong/internal/observability"
)

// Task is one unit of scheduled work. Run must honor ctx cancellation and
// must not panic; failures are the task's own business to log and count.
type Task interface {
	Name() string
	Run(ctx context.Context)
}

// Lane groups tasks that share a cadence. Tasks within a lane run
// sequentially in declaration order; lanes run independently of each other.
type Lane struct {
	Name  string
	Every time.Duration
	Tasks []Task
}

type lane struct {
	Lane
	running atomic.Bool
}

// Scheduler runs each lane's tasks once at startup and then on every tick of
// the lane's interval. A tick that fires while the lane's previous run is
// still in flight is skipped, not queued.
type Scheduler struct {
	clock   clockwork.Clock
	lanes   []*lane
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
	wg      sync.WaitGroup
}

func New(clock clockwork.Clock, lanes []Lane, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	s := &Scheduler{
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
	for i := range lanes {
		s.lanes = append(s.lanes, &lane{Lane: lanes[i]})
	}
	return s
}

// CheckReadiness returns nil once the initial run of every lane has
// completed, or an error describing why the service is not yet ready.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("initial collection has not completed yet")
	}
	return nil
}

// Run executes the startup pass, then ticks every lane until the context is
// cancelled. It returns after all in-flight task runs have finished.
func (s *Scheduler) Run(ctx context.Context) error {
	s.metrics.SchedulerUp.Set(1)
	defer s.metrics.SchedulerUp.Set(0)

	s.logger.Info("scheduler started", "lanes", len(s.lanes))
	for _, l := range s.lanes {
		if ctx.Err() != nil {
			break
		}
		s.runLane(ctx, l)
	}
	s.ready.Store(true)

	for _, l := range s.lanes {
		s.wg.Add(1)
		go s.tickLane(ctx, l)
	}
	s.wg.Wait()

	s.logger.Info("scheduler stopped", "reason", context.Cause(ctx))
	return nil
}

func (s *Scheduler) tickLane(ctx context.Context, l *lane) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(l.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if !l.running.CompareAndSwap(false, true) {
				s.metrics.TicksSkipped.WithLabelValues(l.Name).Inc()
				s.logger.Warn("tick skipped, previous run still active",
					"lane", l.Name, "interval", l.Every)
				continue
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer l.running.Store(false)
				s.runTasks(ctx, l)
			}()
		}
	}
}

// runLane is the synchronous startup pass; the guard still makes the lane's
// state visible to any tick that fires during a long first run.
func (s *Scheduler) runLane(ctx context.Context, l *lane) {
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	defer l.running.Store(false)
	s.runTasks(ctx, l)
}

func (s *Scheduler) runTasks(ctx context.Context, l *lane) {
	start := s.clock.Now()
	for _, task := range l.Tasks {
		if ctx.Err() != nil {
			return
		}
		s.logger.Debug("running task", "lane", l.Name, "task", task.Name())
		task.Run(ctx)
	}
	s.logger.Info("lane run complete",
		"lane", l.Name, "duration", s.clock.Since(start))
}
