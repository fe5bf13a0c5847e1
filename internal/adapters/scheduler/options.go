package scheduler

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/arena/pkg/logger"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the time between ticks.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithMaxAttempts bounds pairing attempts per tick.
func WithMaxAttempts(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithClock sets the clock gocron and tick timing use.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}
