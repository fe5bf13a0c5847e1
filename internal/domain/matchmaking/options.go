package matchmaking

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/arena/pkg/logger"
)

// Option configures a Matchmaker.
type Option func(*Matchmaker)

// WithClock sets the clock used to time collaborator calls.
func WithClock(c clockwork.Clock) Option {
	return func(m *Matchmaker) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Matchmaker) {
		if l != nil {
			m.log = l
		}
	}
}
