// Package queue implements join, leave and status over the waiting pool.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Pool is the subset of the waiting pool the queue needs.
type Pool interface {
	Add(ctx context.Context, playerID string, score float64) (bool, error)
	Remove(ctx context.Context, playerID string) (bool, error)
	ScoreOf(ctx context.Context, playerID string) (float64, bool, error)
	RankOf(ctx context.Context, playerID string) (int64, bool, error)
}

// Service translates pool membership into player-facing queue state.
type Service struct {
	pool  Pool
	clock clockwork.Clock
	log   logger.Logger
}

// New creates a queue service over pool.
func New(pool Pool, opts ...Option) *Service {
	s := &Service{
		pool:  pool,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("queue")
	}
	return s
}

// Join puts playerID into the pool with the current time in milliseconds as
// score. Joining twice keeps the first score.
func (s *Service) Join(ctx context.Context, playerID string) error {
	if playerID == "" {
		return ErrEmptyPlayerID
	}
	added, err := s.pool.Add(ctx, playerID, float64(s.clock.Now().UnixMilli()))
	if err != nil {
		return fmt.Errorf("join %s: %w", playerID, err)
	}
	if added {
		metrics.RecordQueueJoin()
		s.log.Info(ctx, "player joined queue", logger.String("player_id", playerID))
	} else {
		s.log.Debug(ctx, "player already queued", logger.String("player_id", playerID))
	}
	return nil
}

// Leave removes playerID. Leaving when absent is not an error.
func (s *Service) Leave(ctx context.Context, playerID string) error {
	removed, err := s.pool.Remove(ctx, playerID)
	if err != nil {
		return fmt.Errorf("leave %s: %w", playerID, err)
	}
	if removed {
		metrics.RecordQueueLeave()
		s.log.Info(ctx, "player left queue", logger.String("player_id", playerID))
	}
	return nil
}

// Status reports the wait of a queued player. It returns ErrNotInQueue when
// the player is absent, which includes having just been paired.
func (s *Service) Status(ctx context.Context, playerID string) (model.QueueStatus, error) {
	score, ok, err := s.pool.ScoreOf(ctx, playerID)
	if err != nil {
		return model.QueueStatus{}, fmt.Errorf("status %s: %w", playerID, err)
	}
	if !ok {
		return model.QueueStatus{}, fmt.Errorf("%w: %s", ErrNotInQueue, playerID)
	}

	joinedAt := time.UnixMilli(int64(score))
	waiting := s.clock.Since(joinedAt)
	if waiting < 0 {
		waiting = 0
	}
	st := model.QueueStatus{
		Status:             model.QueueStatusWaiting,
		JoinedAt:           joinedAt,
		WaitingTimeSeconds: int64(waiting / time.Second),
	}

	// A failed or raced rank read only drops the position.
	rank, ok, err := s.pool.RankOf(ctx, playerID)
	switch {
	case err != nil:
		s.log.Warn(ctx, "rank lookup failed", logger.String("player_id", playerID), logger.Error(err))
	case ok:
		st.Position = &rank
	}
	return st, nil
}
