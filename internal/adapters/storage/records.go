// Package storage persists matches and moves, in Postgres through gorm or
// in memory.
package storage

import (
	"time"

	"github.com/okian/arena/internal/domain/model"
)

type matchRecord struct {
	ID                string     `gorm:"primaryKey;size:64"`
	Player1ID         string     `gorm:"size:64;not null;index"`
	Player2ID         string     `gorm:"size:64;not null;index"`
	WinnerID          *string    `gorm:"size:64"`
	Status            string     `gorm:"size:16;not null"`
	CurrentTurnNumber int        `gorm:"not null;default:1"`
	CurrentTurnStart  *time.Time `gorm:"column:current_turn_start"`
	Player1HP         int        `gorm:"column:player1_hp;not null"`
	Player2HP         int        `gorm:"column:player2_hp;not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	FinishedAt        *time.Time
	DurationSeconds   *int64
	TurnCount         *int

	// ResolvedTurn is the last turn handed to the round resolver.
	ResolvedTurn int `gorm:"not null;default:0"`
}

func (matchRecord) TableName() string { return "matches" }

// moveRecord has no unique index on (match, player, turn); the engine checks
// before inserting.
type moveRecord struct {
	ID            string `gorm:"primaryKey;size:64"`
	MatchID       string `gorm:"size:64;not null;index:idx_moves_match_turn"`
	PlayerID      string `gorm:"size:64;not null"`
	AttackTarget  string `gorm:"size:8;not null"`
	DefenseTarget string `gorm:"size:8;not null"`
	TurnNumber    int    `gorm:"not null;index:idx_moves_match_turn"`
	Damage        *int
	CreatedAt     time.Time
}

func (moveRecord) TableName() string { return "moves" }

func matchToRecord(m *model.Match) *matchRecord {
	r := &matchRecord{
		ID:                m.ID,
		Player1ID:         m.Player1ID,
		Player2ID:         m.Player2ID,
		Status:            string(m.Status),
		CurrentTurnNumber: m.CurrentTurnNumber,
		CurrentTurnStart:  m.CurrentTurnStart,
		Player1HP:         m.Player1HP,
		Player2HP:         m.Player2HP,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
		FinishedAt:        m.FinishedAt,
		DurationSeconds:   m.DurationSeconds,
		TurnCount:         m.TurnCount,
	}
	if m.WinnerID != "" {
		w := m.WinnerID
		r.WinnerID = &w
	}
	return r
}

func (r *matchRecord) toModel() *model.Match {
	m := &model.Match{
		ID:                r.ID,
		Player1ID:         r.Player1ID,
		Player2ID:         r.Player2ID,
		Status:            model.MatchStatus(r.Status),
		CurrentTurnNumber: r.CurrentTurnNumber,
		CurrentTurnStart:  r.CurrentTurnStart,
		Player1HP:         r.Player1HP,
		Player2HP:         r.Player2HP,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		FinishedAt:        r.FinishedAt,
		DurationSeconds:   r.DurationSeconds,
		TurnCount:         r.TurnCount,
	}
	if r.WinnerID != nil {
		m.WinnerID = *r.WinnerID
	}
	return m
}

func moveToRecord(mv *model.Move) *moveRecord {
	return &moveRecord{
		ID:            mv.ID,
		MatchID:       mv.MatchID,
		PlayerID:      mv.PlayerID,
		AttackTarget:  string(mv.AttackTarget),
		DefenseTarget: string(mv.DefenseTarget),
		TurnNumber:    mv.TurnNumber,
		Damage:        mv.Damage,
		CreatedAt:     mv.CreatedAt,
	}
}

func (r *moveRecord) toModel() model.Move {
	return model.Move{
		ID:            r.ID,
		MatchID:       r.MatchID,
		PlayerID:      r.PlayerID,
		AttackTarget:  model.Target(r.AttackTarget),
		DefenseTarget: model.Target(r.DefenseTarget),
		TurnNumber:    r.TurnNumber,
		Damage:        r.Damage,
		CreatedAt:     r.CreatedAt,
	}
}
