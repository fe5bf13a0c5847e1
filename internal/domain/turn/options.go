package turn

import (
	"github.com/jonboulle/clockwork"

	"github.com/okian/arena/pkg/logger"
)

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source for match and move timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithMaxHP sets the starting hit points of both players.
func WithMaxHP(hp int) Option {
	return func(e *Engine) {
		if hp > 0 {
			e.maxHP = hp
		}
	}
}

// WithResolver installs the round resolver. Defaults to NopResolver.
func WithResolver(r RoundResolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithIDGenerator overrides uuid-based ids, mostly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
