package queue

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/arena/pkg/logger"
)

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source used for join scores and wait times.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}
