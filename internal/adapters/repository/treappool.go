package repository

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/metrics"
)

// In-memory Pool on a treap.
//
// Ordering: score ASC, then playerID ASC. In-order traversal yields the
// pool from longest waiting to most recent; subtree sizes give rank in
// O(log n) expected time.

type node struct {
	id    string
	score float64
	prio  uint64
	left  *node
	right *node
	size  int64
}

func nsize(n *node) int64 {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) waited longer than (bScore, bID).
func less(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore < bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, fresh *node) *node {
	if n == nil {
		return fresh
	}
	if less(fresh.score, fresh.id, n.score, n.id) {
		n.left = insert(n.left, fresh)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, fresh)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	case less(score, id, n.score, n.id):
		n.left = deleteNode(n.left, id, score)
	default:
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// rank counts nodes ordered before (score, id).
func rank(n *node, id string, score float64) int64 {
	var r int64
	for n != nil {
		switch {
		case score == n.score && id == n.id:
			return r + nsize(n.left)
		case less(score, id, n.score, n.id):
			n = n.left
		default:
			r += nsize(n.left) + 1
			n = n.right
		}
	}
	return r
}

// collect appends in-order entries with index in [lo, hi).
func collect(n *node, offset, lo, hi int64, out *[]model.WaitingEntry) {
	if n == nil || offset >= hi || offset+n.size <= lo {
		return
	}
	collect(n.left, offset, lo, hi, out)
	self := offset + nsize(n.left)
	if self >= lo && self < hi {
		*out = append(*out, model.WaitingEntry{PlayerID: n.id, Score: n.score})
	}
	collect(n.right, self+1, lo, hi, out)
}

// collectScores appends in-order entries with minScore <= score <= maxScore.
func collectScores(n *node, minScore, maxScore float64, limit int64, out *[]model.WaitingEntry) {
	if n == nil || (limit > 0 && int64(len(*out)) >= limit) {
		return
	}
	if n.score >= minScore {
		collectScores(n.left, minScore, maxScore, limit, out)
	}
	if limit > 0 && int64(len(*out)) >= limit {
		return
	}
	if n.score >= minScore && n.score <= maxScore {
		*out = append(*out, model.WaitingEntry{PlayerID: n.id, Score: n.score})
	}
	if n.score <= maxScore {
		collectScores(n.right, minScore, maxScore, limit, out)
	}
}

// TreapPool is an in-memory Pool safe for concurrent use.
type TreapPool struct {
	mu   sync.RWMutex
	root *node
	byID map[string]float64
	seed uint64
	rnd  *rand.Rand
}

var _ Pool = (*TreapPool)(nil)

// NewTreapPool constructs an empty pool.
func NewTreapPool(opts ...Option) *TreapPool {
	p := &TreapPool{
		byID: make(map[string]float64),
		seed: rand.Uint64(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.rnd = rand.New(rand.NewPCG(p.seed, p.seed^0x9e3779b97f4a7c15))
	return p
}

// Add implements Pool.Add.
func (p *TreapPool) Add(_ context.Context, playerID string, score float64) (bool, error) {
	p.mu.Lock()
	if _, ok := p.byID[playerID]; ok {
		p.mu.Unlock()
		return false, nil
	}
	p.byID[playerID] = score
	p.root = insert(p.root, &node{id: playerID, score: score, prio: p.rnd.Uint64(), size: 1})
	size := len(p.byID)
	p.mu.Unlock()

	metrics.UpdatePoolSize(int64(size))
	return true, nil
}

// Remove implements Pool.Remove.
func (p *TreapPool) Remove(ctx context.Context, playerID string) (bool, error) {
	n, err := p.RemoveMany(ctx, playerID)
	return n == 1, err
}

// RemoveMany implements Pool.RemoveMany.
func (p *TreapPool) RemoveMany(_ context.Context, playerIDs ...string) (int64, error) {
	var removed int64
	p.mu.Lock()
	for _, id := range playerIDs {
		score, ok := p.byID[id]
		if !ok {
			continue
		}
		delete(p.byID, id)
		p.root = deleteNode(p.root, id, score)
		removed++
	}
	size := len(p.byID)
	p.mu.Unlock()

	if removed > 0 {
		metrics.UpdatePoolSize(int64(size))
	}
	return removed, nil
}

// Contains implements Pool.Contains.
func (p *TreapPool) Contains(_ context.Context, playerID string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byID[playerID]
	return ok, nil
}

// ScoreOf implements Pool.ScoreOf.
func (p *TreapPool) ScoreOf(_ context.Context, playerID string) (float64, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	score, ok := p.byID[playerID]
	return score, ok, nil
}

// RankOf implements Pool.RankOf.
func (p *TreapPool) RankOf(_ context.Context, playerID string) (int64, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	score, ok := p.byID[playerID]
	if !ok {
		return 0, false, nil
	}
	return rank(p.root, playerID, score), true, nil
}

// Size implements Pool.Size.
func (p *TreapPool) Size(_ context.Context) (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return nsize(p.root), nil
}

// Oldest implements Pool.Oldest.
func (p *TreapPool) Oldest(ctx context.Context, n int) ([]string, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	entries, err := p.Entries(ctx, 0, int64(n)-1)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.PlayerID
	}
	return ids, nil
}

// Entries implements Pool.Entries.
func (p *TreapPool) Entries(_ context.Context, start, stop int64) ([]model.WaitingEntry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	lo, hi := normalizeRange(start, stop, nsize(p.root))
	out := make([]model.WaitingEntry, 0, hi-lo)
	collect(p.root, 0, lo, hi, &out)
	return out, nil
}

// RangeByScore implements Pool.RangeByScore.
func (p *TreapPool) RangeByScore(_ context.Context, minScore, maxScore float64, limit int64) ([]model.WaitingEntry, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []model.WaitingEntry
	collectScores(p.root, minScore, maxScore, limit, &out)
	return out, nil
}
