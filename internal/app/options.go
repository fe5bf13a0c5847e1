package service

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/config"
	"github.com/okian/arena/internal/domain/matchmaking"
	"github.com/okian/arena/internal/domain/turn"
	"github.com/okian/arena/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the process configuration. Defaults to config.New().
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock injects the clock shared by every component.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithPool overrides the waiting pool chosen from configuration.
func WithPool(p repository.Pool) Option {
	return func(s *Service) {
		if p != nil {
			s.pool = p
		}
	}
}

// WithStore overrides the match store chosen from configuration.
func WithStore(st turn.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithIdentity overrides the identity service client.
func WithIdentity(id matchmaking.Identity) Option {
	return func(s *Service) {
		if id != nil {
			s.identity = id
		}
	}
}

// WithMatchCreator overrides where the matchmaker creates matches.
func WithMatchCreator(mc matchmaking.MatchCreator) Option {
	return func(s *Service) {
		if mc != nil {
			s.creator = mc
		}
	}
}

// WithReadinessRetries bounds how often Redis and Postgres are checked at startup.
func WithReadinessRetries(n uint64) Option {
	return func(s *Service) {
		s.readinessRetries = n
	}
}
