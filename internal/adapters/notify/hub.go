// Package notify delivers match-found events to players, in process and
// over websockets.
//
// Delivery is best effort. Every subscriber has a bounded buffer; a publish
// never blocks, and an event for a full or absent subscriber is dropped.
package notify

import (
	"context"
	"sync"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

const defaultBufferSize = 16

// Hub fans events out to per-player topics.
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]map[uint64]chan model.MatchFoundEvent
	nextID     uint64
	bufferSize int
	closed     bool
	log        logger.Logger
}

// Subscription receives the events of one player's topic until closed.
type Subscription struct {
	C <-chan model.MatchFoundEvent

	hub      *Hub
	playerID string
	id       uint64
	once     sync.Once
}

// NewHub creates an empty hub.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		topics:     make(map[string]map[uint64]chan model.MatchFoundEvent),
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.Get().Named("notify")
	}
	return h
}

// Subscribe opens a subscription on playerID's topic.
func (h *Hub) Subscribe(playerID string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	h.nextID++
	ch := make(chan model.MatchFoundEvent, h.bufferSize)
	subs, ok := h.topics[playerID]
	if !ok {
		subs = make(map[uint64]chan model.MatchFoundEvent)
		h.topics[playerID] = subs
	}
	subs[h.nextID] = ch
	return &Subscription{C: ch, hub: h, playerID: playerID, id: h.nextID}, nil
}

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.unsubscribe(s.playerID, s.id) })
}

func (h *Hub) unsubscribe(playerID string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[playerID]
	if !ok {
		return
	}
	if ch, ok := subs[id]; ok {
		delete(subs, id)
		close(ch)
	}
	if len(subs) == 0 {
		delete(h.topics, playerID)
	}
}

// Publish hands event to every subscriber of playerID without blocking.
func (h *Hub) Publish(ctx context.Context, playerID string, event model.MatchFoundEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.topics[playerID]
	if h.closed || len(subs) == 0 {
		metrics.RecordNotificationDropped()
		h.log.Debug(ctx, "no subscriber for notification",
			logger.String("player_id", playerID), logger.String("match_id", event.MatchID))
		return
	}
	for _, ch := range subs {
		select {
		case ch <- event:
			metrics.RecordNotificationPublished()
		default:
			metrics.RecordNotificationDropped()
			h.log.Warn(ctx, "subscriber buffer full, notification dropped",
				logger.String("player_id", playerID), logger.String("match_id", event.MatchID))
		}
	}
	h.log.Info(ctx, "notification sent", logger.String("player_id", playerID), logger.String("match_id", event.MatchID))
}

// SubscriberCount returns the number of open subscriptions for playerID.
func (h *Hub) SubscriberCount(playerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[playerID])
}

// Close ends every subscription. Later publishes are dropped.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for playerID, subs := range h.topics {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
		}
		delete(h.topics, playerID)
	}
	return nil
}
