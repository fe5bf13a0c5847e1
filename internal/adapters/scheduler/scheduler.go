// Package scheduler drives the matchmaker on a fixed interval with gocron.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Default scheduler configuration.
const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 10
	jobName            = "matchmaking"
)

// Pairer performs one pairing attempt.
type Pairer interface {
	TryPairOnce(ctx context.Context) (bool, error)
}

// Scheduler runs ticks one at a time. Each tick keeps pairing while pairs
// are found, up to maxAttempts, so a tick always ends.
type Scheduler struct {
	pairer      Pairer
	interval    time.Duration
	maxAttempts int
	clock       clockwork.Clock
	log         logger.Logger

	mu      sync.Mutex
	sched   gocron.Scheduler
	cancel  context.CancelFunc
	stopped atomic.Bool
	ticks   atomic.Int64
	pairs   atomic.Int64
}

// New creates a Scheduler. It is not ticking until Start.
func New(pairer Pairer, opts ...Option) *Scheduler {
	s := &Scheduler{
		pairer:      pairer,
		interval:    DefaultInterval,
		maxAttempts: DefaultMaxAttempts,
		clock:       clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("scheduler")
	}
	return s
}

// Start registers the matchmaking job and starts gocron.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched != nil {
		return ErrAlreadyStarted
	}

	sched, err := gocron.NewScheduler(
		gocron.WithClock(s.clock),
		gocron.WithLogger(gocronLogger{log: s.log}),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScheduler, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.Tick(runCtx) }),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = sched.Shutdown()
		return fmt.Errorf("%w: %w", ErrScheduler, err)
	}

	s.sched = sched
	s.cancel = cancel
	s.stopped.Store(false)
	sched.Start()
	s.log.Info(ctx, "matchmaking scheduler started",
		logger.Duration("interval", s.interval), logger.Int("max_attempts", s.maxAttempts))
	return nil
}

// Stop prevents new ticks, cancels the running one and waits for it.
func (s *Scheduler) Stop() error {
	s.stopped.Store(true)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched == nil {
		return nil
	}
	s.cancel()
	err := s.sched.Shutdown()
	s.sched = nil
	s.log.Info(context.Background(), "matchmaking scheduler stopped")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrScheduler, err)
	}
	return nil
}

// Running reports whether ticks are being accepted.
func (s *Scheduler) Running() bool {
	return !s.stopped.Load()
}

// Ticks returns how many ticks ran.
func (s *Scheduler) Ticks() int64 { return s.ticks.Load() }

// Pairs returns how many matches ticks produced.
func (s *Scheduler) Pairs() int64 { return s.pairs.Load() }

// Tick runs one matchmaking round and returns the number of pairs made.
// Errors and panics are logged; the next tick retries.
func (s *Scheduler) Tick(ctx context.Context) (paired int) {
	if !s.Running() {
		s.log.Debug(ctx, "skipping matchmaking check, scheduler is stopping")
		return 0
	}

	start := s.clock.Now()
	s.ticks.Add(1)
	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, fmt.Errorf("%w: %v", ErrTickPanic, r))
		}
		s.pairs.Add(int64(paired))
		metrics.RecordSchedulerTick(float64(s.clock.Since(start).Milliseconds()), paired)
	}()

	s.log.Debug(ctx, "running matchmaking check")
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if !s.Running() || ctx.Err() != nil {
			break
		}
		ok, err := s.pairer.TryPairOnce(ctx)
		if err != nil {
			s.fail(ctx, err)
			break
		}
		if !ok {
			break
		}
		paired++
	}
	if paired > 0 {
		s.log.Info(ctx, "matchmaking tick paired players", logger.Int("matches", paired))
	}
	return paired
}

// fail logs quietly when the failure is a side effect of shutting down.
func (s *Scheduler) fail(ctx context.Context, err error) {
	if !s.Running() || ctx.Err() != nil {
		s.log.Debug(ctx, "matchmaking check interrupted during shutdown", logger.Error(err))
		return
	}
	metrics.RecordErrorByComponent("scheduler", "tick")
	s.log.Error(ctx, "error during matchmaking check", logger.Error(err))
}
