// Package repository holds the waiting pool: an ordered set of player ids
// keyed by join score, with in-memory and Redis backends.
package repository

import (
	"context"

	"github.com/okian/arena/internal/domain/model"
)

// Pool is the waiting pool contract. Every operation is atomic on its own;
// there are no multi-key transactions.
type Pool interface {
	// Add inserts playerID with score. Returns false if already present.
	Add(ctx context.Context, playerID string, score float64) (bool, error)
	// Remove deletes playerID. Returns false if it was absent.
	Remove(ctx context.Context, playerID string) (bool, error)
	// RemoveMany deletes all given ids and returns how many were present.
	RemoveMany(ctx context.Context, playerIDs ...string) (int64, error)
	Contains(ctx context.Context, playerID string) (bool, error)
	// ScoreOf returns the join score; ok is false when absent.
	ScoreOf(ctx context.Context, playerID string) (score float64, ok bool, err error)
	// RankOf returns the 0-based position by ascending score; ok is false when absent.
	RankOf(ctx context.Context, playerID string) (rank int64, ok bool, err error)
	Size(ctx context.Context) (int64, error)
	// Oldest returns up to n ids with the lowest scores, oldest first.
	Oldest(ctx context.Context, n int) ([]string, error)
	// Entries returns positions start..stop inclusive. Negative indexes
	// count from the end, so (0, -1) is the whole pool.
	Entries(ctx context.Context, start, stop int64) ([]model.WaitingEntry, error)
	// RangeByScore returns entries with min <= score <= max, at most limit
	// of them when limit > 0.
	RangeByScore(ctx context.Context, minScore, maxScore float64, limit int64) ([]model.WaitingEntry, error)
}

// normalizeRange maps Redis-style inclusive indexes onto [lo, hi) bounds.
func normalizeRange(start, stop, size int64) (int64, int64) {
	if start < 0 {
		start += size
	}
	if stop < 0 {
		stop += size
	}
	if start < 0 {
		start = 0
	}
	if stop >= size {
		stop = size - 1
	}
	if start > stop {
		return 0, 0
	}
	return start, stop + 1
}
