// Package model contains domain models passed between layers.
package model

import (
	"time"
)

// MatchStatus is the lifecycle state of a match. It only moves forward.
type MatchStatus string

const (
	StatusWaiting    MatchStatus = "WAITING"
	StatusInProgress MatchStatus = "IN_PROGRESS"
	StatusFinished   MatchStatus = "FINISHED"
)

func (s MatchStatus) order() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusInProgress:
		return 1
	case StatusFinished:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether next is a forward step from s.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	return s.order() >= 0 && next.order() > s.order()
}

// Match is a 1v1 game between two paired players.
type Match struct {
	ID                string      `json:"id"`
	Player1ID         string      `json:"player1Id"`
	Player2ID         string      `json:"player2Id"`
	WinnerID          string      `json:"winnerId,omitempty"`
	Status            MatchStatus `json:"status"`
	CurrentTurnNumber int         `json:"currentTurnNumber"`
	CurrentTurnStart  *time.Time  `json:"currentTurnStart,omitempty"`
	Player1HP         int         `json:"player1Hp"`
	Player2HP         int         `json:"player2Hp"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
	FinishedAt        *time.Time  `json:"finishedAt,omitempty"`
	DurationSeconds   *int64      `json:"durationSeconds,omitempty"`
	TurnCount         *int        `json:"turnCount,omitempty"`
}

// HasParticipant reports whether playerID plays in m.
func (m *Match) HasParticipant(playerID string) bool {
	return playerID != "" && (playerID == m.Player1ID || playerID == m.Player2ID)
}

// Move is one participant's submission for a turn. Moves are append-only.
type Move struct {
	ID            string    `json:"id"`
	MatchID       string    `json:"matchId"`
	PlayerID      string    `json:"playerId"`
	AttackTarget  Target    `json:"attackTarget"`
	DefenseTarget Target    `json:"defenseTarget"`
	TurnNumber    int       `json:"turnNumber"`
	Damage        *int      `json:"damage,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// MoveAck acknowledges an accepted move. Resolution happens later.
type MoveAck struct {
	Message    string `json:"message"`
	TurnNumber int    `json:"turnNumber"`
	MatchID    string `json:"matchId"`
}
