// Package matchmaking pairs the two longest-waiting players into a match.
//
// The order of a pairing attempt is verify, create, evict. Eviction of both
// players is the only destructive step and happens last, so any failure
// before it leaves the pool as it was and the next attempt starts over.
package matchmaking

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// Pool is the subset of the waiting pool the matchmaker needs.
type Pool interface {
	Size(ctx context.Context) (int64, error)
	Oldest(ctx context.Context, n int) ([]string, error)
	Remove(ctx context.Context, playerID string) (bool, error)
	RemoveMany(ctx context.Context, playerIDs ...string) (int64, error)
}

// Identity resolves players. Any error means the player cannot be paired now.
type Identity interface {
	GetPlayerByID(ctx context.Context, playerID string) (model.PlayerSummary, error)
}

// MatchCreator creates a match for two verified players.
type MatchCreator interface {
	CreateMatch(ctx context.Context, player1ID, player2ID string) (*model.Match, error)
}

// Notifier pushes a best-effort event to a player's topic.
type Notifier interface {
	Publish(ctx context.Context, playerID string, event model.MatchFoundEvent)
}

// Matchmaker runs single pairing attempts. It keeps no state between calls.
type Matchmaker struct {
	pool     Pool
	identity Identity
	matches  MatchCreator
	notifier Notifier
	clock    clockwork.Clock
	log      logger.Logger
}

// New creates a Matchmaker.
func New(pool Pool, identity Identity, matches MatchCreator, notifier Notifier, opts ...Option) *Matchmaker {
	m := &Matchmaker{
		pool:     pool,
		identity: identity,
		matches:  matches,
		notifier: notifier,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Get().Named("matchmaker")
	}
	return m
}

// TryPairOnce attempts to pair the two oldest players. It returns true only
// when a match was created. Downstream failures are absorbed and reported as
// false; the returned error is reserved for pool failures.
func (m *Matchmaker) TryPairOnce(ctx context.Context) (bool, error) {
	size, err := m.pool.Size(ctx)
	if err != nil {
		m.outcome(ctx, metrics.OutcomePoolUnavailable)
		return false, fmt.Errorf("pool size: %w", err)
	}
	if size < 2 {
		m.log.Debug(ctx, "not enough players in queue", logger.Int64("size", size))
		m.outcome(ctx, metrics.OutcomeNotEnough)
		return false, nil
	}

	ids, err := m.pool.Oldest(ctx, 2)
	if err != nil {
		m.outcome(ctx, metrics.OutcomePoolUnavailable)
		return false, fmt.Errorf("oldest players: %w", err)
	}
	if len(ids) < 2 {
		m.log.Debug(ctx, "could not get 2 players from queue", logger.Int("got", len(ids)))
		m.outcome(ctx, metrics.OutcomeNotEnough)
		return false, nil
	}
	p1, p2 := ids[0], ids[1]
	m.log.Info(ctx, "attempting to match players", logger.String("player1", p1), logger.String("player2", p2))

	players := make([]model.PlayerSummary, 0, 2)
	for _, id := range ids[:2] {
		summary, err := m.verify(ctx, id)
		if err != nil {
			m.evict(ctx, id, err)
			m.outcome(ctx, metrics.OutcomeEvicted)
			return false, nil
		}
		players = append(players, summary)
	}

	start := m.clock.Now()
	match, err := m.matches.CreateMatch(ctx, p1, p2)
	metrics.RecordCollaboratorLatency("match_creation", float64(m.clock.Since(start).Milliseconds()))
	if err != nil {
		m.log.Error(ctx, "error creating match",
			logger.String("player1", p1), logger.String("player2", p2), logger.Error(err))
		metrics.RecordErrorByComponent("matchmaker", "match_creation")
		m.outcome(ctx, metrics.OutcomeCreationFailed)
		return false, nil
	}
	metrics.RecordMatchCreated()
	m.log.Info(ctx, "match created", logger.String("match_id", match.ID))

	// The match exists now; a leftover pool entry is the lesser harm.
	removed, err := m.pool.RemoveMany(ctx, p1, p2)
	switch {
	case err != nil:
		m.log.Error(ctx, "failed to remove matched players from queue",
			logger.String("match_id", match.ID), logger.Error(err))
		metrics.RecordErrorByComponent("matchmaker", "evict_matched")
	case removed < 2:
		m.log.Warn(ctx, "matched players partially removed from queue",
			logger.String("match_id", match.ID), logger.Int64("removed", removed))
	default:
		m.log.Info(ctx, "removed players from queue", logger.String("player1", p1), logger.String("player2", p2))
	}

	m.notifier.Publish(ctx, p1, model.MatchFoundEvent{
		Type: model.EventMatchFound, MatchID: match.ID, OpponentNickname: players[1].DisplayName,
	})
	m.notifier.Publish(ctx, p2, model.MatchFoundEvent{
		Type: model.EventMatchFound, MatchID: match.ID, OpponentNickname: players[0].DisplayName,
	})

	m.outcome(ctx, metrics.OutcomePaired)
	return true, nil
}

func (m *Matchmaker) verify(ctx context.Context, playerID string) (model.PlayerSummary, error) {
	start := m.clock.Now()
	defer func() {
		metrics.RecordCollaboratorLatency("identity", float64(m.clock.Since(start).Milliseconds()))
	}()

	summary, err := m.identity.GetPlayerByID(ctx, playerID)
	if err != nil {
		return model.PlayerSummary{}, fmt.Errorf("%w: %s: %w", ErrPlayerNotFound, playerID, err)
	}
	return summary, nil
}

// evict drops a player that failed verification. The opponent stays queued.
func (m *Matchmaker) evict(ctx context.Context, playerID string, cause error) {
	m.log.Warn(ctx, "player not resolvable, removing from queue",
		logger.String("player_id", playerID), logger.Error(cause))
	if _, err := m.pool.Remove(ctx, playerID); err != nil {
		m.log.Error(ctx, "failed to evict player", logger.String("player_id", playerID), logger.Error(err))
		metrics.RecordErrorByComponent("matchmaker", "evict")
		return
	}
	metrics.RecordEviction("identity")
}

func (m *Matchmaker) outcome(ctx context.Context, o string) {
	if err := metrics.RecordPairingAttempt(o); err != nil {
		m.log.Warn(ctx, "pairing outcome not recorded", logger.String("outcome", o), logger.Error(err))
	}
}
