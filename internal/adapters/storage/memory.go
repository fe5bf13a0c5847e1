package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/arena/internal/domain/model"
)

type moveKey struct {
	matchID  string
	playerID string
	turn     int
}

// MemoryStore keeps matches and moves in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	matches map[string]*model.Match
	moves   map[string][]model.Move
	byKey   map[moveKey]struct{}

	// resolved holds the last claimed turn per match.
	resolved map[string]int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches: make(map[string]*model.Match),
		moves:   make(map[string][]model.Move),
		byKey:   make(map[moveKey]struct{}),

		resolved: make(map[string]int),
	}
}

// CreateMatch inserts a copy of m.
func (s *MemoryStore) CreateMatch(_ context.Context, m *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return fmt.Errorf("%w: match %s", ErrDuplicate, m.ID)
	}
	cp := *m
	s.matches[m.ID] = &cp
	return nil
}

// GetMatch returns a copy of the stored match.
func (s *MemoryStore) GetMatch(_ context.Context, id string) (*model.Match, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, false, nil
	}
	cp := *m
	return &cp, true, nil
}

// StartMatch implements the WAITING to IN_PROGRESS step.
func (s *MemoryStore) StartMatch(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok || !m.Status.CanTransitionTo(model.StatusInProgress) {
		return false, nil
	}
	m.Status = model.StatusInProgress
	m.CurrentTurnStart = &at
	m.UpdatedAt = at
	return true, nil
}

// UpdateMatch overwrites an existing match.
func (s *MemoryStore) UpdateMatch(_ context.Context, m *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; !ok {
		return fmt.Errorf("%w: match %s", ErrNotFound, m.ID)
	}
	cp := *m
	s.matches[m.ID] = &cp
	return nil
}

// ClaimRound records turnNumber as resolved unless it or a later turn
// already was.
func (s *MemoryStore) ClaimRound(_ context.Context, matchID string, turnNumber int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[matchID]; !ok {
		return false, nil
	}
	if s.resolved[matchID] >= turnNumber {
		return false, nil
	}
	s.resolved[matchID] = turnNumber
	return true, nil
}

// MoveExists reports whether playerID already moved in turnNumber.
func (s *MemoryStore) MoveExists(_ context.Context, matchID, playerID string, turnNumber int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[moveKey{matchID, playerID, turnNumber}]
	return ok, nil
}

// SaveMove appends a move.
func (s *MemoryStore) SaveMove(_ context.Context, mv *model.Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves[mv.MatchID] = append(s.moves[mv.MatchID], *mv)
	s.byKey[moveKey{mv.MatchID, mv.PlayerID, mv.TurnNumber}] = struct{}{}
	return nil
}

// MovesForTurn lists the moves of one turn in submission order.
func (s *MemoryStore) MovesForTurn(_ context.Context, matchID string, turnNumber int) ([]model.Move, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Move
	for _, mv := range s.moves[matchID] {
		if mv.TurnNumber == turnNumber {
			out = append(out, mv)
		}
	}
	return out, nil
}

// MoveCount returns how many moves a match has.
func (s *MemoryStore) MoveCount(matchID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.moves[matchID])
}
