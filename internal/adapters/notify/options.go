package notify

import (
	"time"

	"github.com/okian/arena/pkg/logger"
)

// Option configures a Hub.
type Option func(*Hub)

// WithBufferSize sets the per-subscriber buffer.
func WithBufferSize(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.bufferSize = size
		}
	}
}

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

// WSOption configures a WebSocketHandler.
type WSOption func(*WebSocketHandler)

// WithWriteTimeout bounds a single frame write.
func WithWriteTimeout(d time.Duration) WSOption {
	return func(w *WebSocketHandler) {
		if d > 0 {
			w.writeTimeout = d
		}
	}
}

// WithPingInterval sets how often the server pings an idle client.
func WithPingInterval(d time.Duration) WSOption {
	return func(w *WebSocketHandler) {
		if d > 0 {
			w.pingInterval = d
		}
	}
}

// WithCheckOrigin overrides the upgrader origin check.
func WithCheckOrigin(fn func(origin string) bool) WSOption {
	return func(w *WebSocketHandler) {
		if fn != nil {
			w.checkOrigin = fn
		}
	}
}
