package model

import (
	"time"
)

// WaitingEntry is a player in the waiting pool. Lower score means waited longer.
type WaitingEntry struct {
	PlayerID string  `json:"playerId"`
	Score    float64 `json:"score"`
}

// QueueStatusWaiting is the only status a queued player can have.
const QueueStatusWaiting = "WAITING"

// QueueStatus describes a waiting player's place in the pool.
type QueueStatus struct {
	Status             string    `json:"status"`
	JoinedAt           time.Time `json:"joinedAt"`
	WaitingTimeSeconds int64     `json:"waitingTime"`
	// Position is 0-based; nil when the rank could not be read.
	Position *int64 `json:"position,omitempty"`
}

// PlayerSummary is what the identity service tells us about a player.
type PlayerSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"nickname"`
}

// EventMatchFound is sent to both players once a match exists.
const EventMatchFound = "match_found"

// MatchFoundEvent is the payload pushed on a player's topic.
type MatchFoundEvent struct {
	Type             string `json:"type"`
	MatchID          string `json:"matchId"`
	OpponentNickname string `json:"opponentNickname"`
}
