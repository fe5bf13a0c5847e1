package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second
)

// PlayerResolver extracts the authenticated player from a request.
type PlayerResolver func(r *http.Request) (string, bool)

// WebSocketHandler streams a player's topic over a websocket connection.
type WebSocketHandler struct {
	hub          *Hub
	resolve      PlayerResolver
	writeTimeout time.Duration
	pingInterval time.Duration
	checkOrigin  func(origin string) bool
	upgrader     websocket.Upgrader
	log          logger.Logger
}

// NewWebSocketHandler creates the handler. Requests without a resolvable
// player get 401 before the upgrade.
func NewWebSocketHandler(hub *Hub, resolve PlayerResolver, opts ...WSOption) *WebSocketHandler {
	w := &WebSocketHandler{
		hub:          hub,
		resolve:      resolve,
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
		checkOrigin:  func(string) bool { return true },
		log:          logger.Get().Named("websocket"),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return w.checkOrigin(r.Header.Get("Origin"))
		},
	}
	return w
}

func (w *WebSocketHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	playerID, ok := w.resolve(r)
	if !ok || playerID == "" {
		http.Error(rw, "unauthorized", http.StatusUnauthorized)
		return
	}

	sub, err := w.hub.Subscribe(playerID)
	if err != nil {
		http.Error(rw, "notifications unavailable", http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		w.log.Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	metrics.UpdateWebSocketConnections(1)
	defer metrics.UpdateWebSocketConnections(-1)
	w.log.Info(r.Context(), "player subscribed", logger.String("player_id", playerID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go w.readLoop(conn, cancel)
	w.writeLoop(ctx, conn, sub)

	w.log.Info(context.Background(), "player unsubscribed", logger.String("player_id", playerID))
}

// readLoop drains client frames so control frames are handled, and cancels
// when the client goes away.
func (w *WebSocketHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func (w *WebSocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sub *Subscription) {
	ping := time.NewTicker(w.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(w.writeTimeout))
			return
		case ev, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(w.writeTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				w.log.Debug(ctx, "websocket write failed", logger.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(w.writeTimeout)); err != nil {
				return
			}
		}
	}
}
