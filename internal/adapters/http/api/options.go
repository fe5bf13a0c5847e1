package api

import (
	"net/http"

	"github.com/okian/arena/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithAuthenticator sets how player routes authenticate.
func WithAuthenticator(a *Authenticator) Option {
	return func(s *Server) {
		if a != nil {
			s.auth = a
		}
	}
}

// WithNotifications mounts the websocket handler at /v1/queue/ws.
func WithNotifications(h http.Handler) Option {
	return func(s *Server) {
		s.notifications = h
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}
