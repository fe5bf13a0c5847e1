package client

import (
	"time"

	"github.com/okian/arena/pkg/logger"
)

// Option configures a client.
type Option func(*settings)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetries sets how often an idempotent call is retried.
func WithRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.retries = n
		}
	}
}

// WithBearerToken authenticates outgoing calls.
func WithBearerToken(token string) Option {
	return func(s *settings) {
		s.token = token
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
