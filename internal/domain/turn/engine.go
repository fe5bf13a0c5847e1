// Package turn is the match lifecycle and move acceptance state machine.
//
// A match is WAITING until its first accepted move, IN_PROGRESS after, and
// FINISHED is terminal. Moves are validated in a fixed order and the first
// failing check decides the error.
package turn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// DefaultMaxHP is the starting hit points when none is configured.
const DefaultMaxHP = 100

// Store persists matches and moves.
type Store interface {
	CreateMatch(ctx context.Context, m *model.Match) error
	// GetMatch returns found=false when the id is unknown.
	GetMatch(ctx context.Context, id string) (m *model.Match, found bool, err error)
	// StartMatch moves a WAITING match to IN_PROGRESS and stamps the turn
	// start. It returns false when the match was not WAITING anymore.
	StartMatch(ctx context.Context, id string, at time.Time) (bool, error)
	// UpdateMatch overwrites a stored match; resolvers use it to advance turns.
	UpdateMatch(ctx context.Context, m *model.Match) error
	// ClaimRound marks turnNumber as handed to the resolver. It returns true
	// for exactly one caller per match and turn.
	ClaimRound(ctx context.Context, matchID string, turnNumber int) (bool, error)
	MoveExists(ctx context.Context, matchID, playerID string, turnNumber int) (bool, error)
	SaveMove(ctx context.Context, mv *model.Move) error
	MovesForTurn(ctx context.Context, matchID string, turnNumber int) ([]model.Move, error)
}

// MoveRequest is a move as it arrives from the transport.
type MoveRequest struct {
	MatchID       string
	PlayerID      string
	AttackTarget  string
	DefenseTarget string
	TurnNumber    int
}

// Engine validates and records moves and creates matches.
type Engine struct {
	store    Store
	clock    clockwork.Clock
	resolver RoundResolver
	maxHP    int
	newID    func() string
	log      logger.Logger
}

// New creates an Engine over store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		clock:    clockwork.NewRealClock(),
		resolver: NopResolver{},
		maxHP:    DefaultMaxHP,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get().Named("turn")
	}
	return e
}

// CreateMatch starts a WAITING match at turn 1 with both players at full HP.
func (e *Engine) CreateMatch(ctx context.Context, player1ID, player2ID string) (*model.Match, error) {
	if player1ID == "" || player2ID == "" || player1ID == player2ID {
		return nil, fmt.Errorf("%w: %q vs %q", ErrInvalidPlayers, player1ID, player2ID)
	}
	now := e.clock.Now().UTC()
	m := &model.Match{
		ID:                e.newID(),
		Player1ID:         player1ID,
		Player2ID:         player2ID,
		Status:            model.StatusWaiting,
		CurrentTurnNumber: 1,
		Player1HP:         e.maxHP,
		Player2HP:         e.maxHP,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.store.CreateMatch(ctx, m); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	e.log.Info(ctx, "match created",
		logger.String("match_id", m.ID), logger.String("player1", player1ID), logger.String("player2", player2ID))
	return m, nil
}

// GetMatch returns the match or ErrMatchNotFound.
func (e *Engine) GetMatch(ctx context.Context, matchID string) (*model.Match, error) {
	m, found, err := e.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", matchID, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return m, nil
}

// SubmitMove validates and stores a move. The move is queued for resolution,
// not resolved here. The uniqueness check and the insert are two steps; a
// true double submit racing between them is accepted as rare.
func (e *Engine) SubmitMove(ctx context.Context, req MoveRequest) (model.MoveAck, error) {
	m, err := e.GetMatch(ctx, req.MatchID)
	if errors.Is(err, ErrMatchNotFound) {
		return model.MoveAck{}, e.reject(ctx, req, "match_not_found", err)
	}
	if err != nil {
		return model.MoveAck{}, err
	}
	if !m.HasParticipant(req.PlayerID) {
		return model.MoveAck{}, e.reject(ctx, req, "not_participant",
			fmt.Errorf("%w: %s", ErrPlayerNotParticipant, req.PlayerID))
	}
	if m.Status == model.StatusFinished {
		return model.MoveAck{}, e.reject(ctx, req, "match_finished",
			fmt.Errorf("%w: %s", ErrMatchFinished, m.ID))
	}
	if req.TurnNumber != m.CurrentTurnNumber {
		return model.MoveAck{}, e.reject(ctx, req, "invalid_turn",
			fmt.Errorf("%w: expected %d, got %d", ErrInvalidTurnNumber, m.CurrentTurnNumber, req.TurnNumber))
	}
	exists, err := e.store.MoveExists(ctx, m.ID, req.PlayerID, req.TurnNumber)
	if err != nil {
		return model.MoveAck{}, fmt.Errorf("check move: %w", err)
	}
	if exists {
		return model.MoveAck{}, e.reject(ctx, req, "duplicate",
			fmt.Errorf("%w: turn %d", ErrMoveAlreadyExists, req.TurnNumber))
	}
	attack, okA := model.ParseTarget(req.AttackTarget)
	defense, okD := model.ParseTarget(req.DefenseTarget)
	if !okA || !okD {
		return model.MoveAck{}, e.reject(ctx, req, "invalid_target",
			fmt.Errorf("%w: attack=%q defense=%q", ErrInvalidMoveTarget, req.AttackTarget, req.DefenseTarget))
	}

	now := e.clock.Now().UTC()
	mv := &model.Move{
		ID:            e.newID(),
		MatchID:       m.ID,
		PlayerID:      req.PlayerID,
		AttackTarget:  attack,
		DefenseTarget: defense,
		TurnNumber:    req.TurnNumber,
		CreatedAt:     now,
	}
	if err := e.store.SaveMove(ctx, mv); err != nil {
		return model.MoveAck{}, fmt.Errorf("save move: %w", err)
	}
	metrics.RecordMoveAccepted()

	if m.Status.CanTransitionTo(model.StatusInProgress) {
		// The move is already stored, so a failed start is not the caller's
		// error; the next accepted move tries again.
		started, err := e.store.StartMatch(ctx, m.ID, now)
		switch {
		case err != nil:
			e.log.Error(ctx, "could not start match", logger.String("match_id", m.ID), logger.Error(err))
			metrics.RecordErrorByComponent("turn", "start_match")
		case started:
			e.log.Info(ctx, "match started", logger.String("match_id", m.ID))
		}
	}

	e.maybeResolve(ctx, m.ID, req.TurnNumber)

	return model.MoveAck{Message: "Move accepted", TurnNumber: req.TurnNumber, MatchID: m.ID}, nil
}

// maybeResolve hands a complete turn to the resolver. Both submitters can
// see two moves at once; only the one that claims the turn resolves it.
func (e *Engine) maybeResolve(ctx context.Context, matchID string, turnNumber int) {
	moves, err := e.store.MovesForTurn(ctx, matchID, turnNumber)
	if err != nil {
		e.log.Warn(ctx, "could not load moves for resolution", logger.String("match_id", matchID), logger.Error(err))
		return
	}
	if len(moves) < 2 {
		return
	}
	claimed, err := e.store.ClaimRound(ctx, matchID, turnNumber)
	if err != nil {
		e.log.Warn(ctx, "could not claim round", logger.String("match_id", matchID), logger.Error(err))
		return
	}
	if !claimed {
		e.log.Debug(ctx, "round already claimed", logger.String("match_id", matchID), logger.Int("turn", turnNumber))
		return
	}
	// Re-read so the resolver sees the IN_PROGRESS state.
	m, found, err := e.store.GetMatch(ctx, matchID)
	if err != nil || !found {
		e.log.Warn(ctx, "match vanished before resolution", logger.String("match_id", matchID))
		return
	}
	if err := e.resolver.ResolveRound(ctx, m, moves); err != nil {
		e.log.Error(ctx, "round resolution failed",
			logger.String("match_id", matchID), logger.Int("turn", turnNumber), logger.Error(err))
		metrics.RecordErrorByComponent("turn", "resolve")
	}
}

func (e *Engine) reject(ctx context.Context, req MoveRequest, reason string, err error) error {
	metrics.RecordMoveRejected(reason)
	e.log.Debug(ctx, "move rejected",
		logger.String("match_id", req.MatchID),
		logger.String("player_id", req.PlayerID),
		logger.String("reason", reason),
		logger.Error(err))
	return err
}
