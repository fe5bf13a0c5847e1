package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/elliotchance/pie/v2"
	"github.com/redis/go-redis/v9"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

// DefaultQueueKey is the sorted set holding waiting players.
const DefaultQueueKey = "queue:waiting"

// RedisPool is a Pool backed by a Redis sorted set. Redis supplies the
// per-command atomicity; nothing is cached between calls.
type RedisPool struct {
	rdb redis.UniversalClient
	key string
	log logger.Logger
}

var _ Pool = (*RedisPool)(nil)

// NewRedisPool wraps an existing client.
func NewRedisPool(rdb redis.UniversalClient, opts ...RedisOption) *RedisPool {
	p := &RedisPool{
		rdb: rdb,
		key: DefaultQueueKey,
		log: logger.Get().Named("redis-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ping checks the connection.
func (p *RedisPool) Ping(ctx context.Context) error {
	if err := p.rdb.Ping(ctx).Err(); err != nil {
		return p.unavailable("ping", err)
	}
	return nil
}

func (p *RedisPool) unavailable(op string, err error) error {
	metrics.RecordErrorByComponent("repository", op)
	return fmt.Errorf("%w: %s %s: %w", ErrPoolUnavailable, op, p.key, err)
}

// Add implements Pool.Add with ZADD NX.
func (p *RedisPool) Add(ctx context.Context, playerID string, score float64) (bool, error) {
	added, err := p.rdb.ZAddNX(ctx, p.key, redis.Z{Score: score, Member: playerID}).Result()
	if err != nil {
		return false, p.unavailable("zadd", err)
	}
	p.refreshSize(ctx)
	return added == 1, nil
}

// Remove implements Pool.Remove.
func (p *RedisPool) Remove(ctx context.Context, playerID string) (bool, error) {
	n, err := p.RemoveMany(ctx, playerID)
	return n == 1, err
}

// RemoveMany implements Pool.RemoveMany with a single ZREM.
func (p *RedisPool) RemoveMany(ctx context.Context, playerIDs ...string) (int64, error) {
	if len(playerIDs) == 0 {
		return 0, nil
	}
	members := pie.Map(playerIDs, func(id string) any { return id })
	n, err := p.rdb.ZRem(ctx, p.key, members...).Result()
	if err != nil {
		return 0, p.unavailable("zrem", err)
	}
	p.refreshSize(ctx)
	return n, nil
}

// Contains implements Pool.Contains.
func (p *RedisPool) Contains(ctx context.Context, playerID string) (bool, error) {
	_, ok, err := p.ScoreOf(ctx, playerID)
	return ok, err
}

// ScoreOf implements Pool.ScoreOf.
func (p *RedisPool) ScoreOf(ctx context.Context, playerID string) (float64, bool, error) {
	score, err := p.rdb.ZScore(ctx, p.key, playerID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, p.unavailable("zscore", err)
	}
	return score, true, nil
}

// RankOf implements Pool.RankOf.
func (p *RedisPool) RankOf(ctx context.Context, playerID string) (int64, bool, error) {
	r, err := p.rdb.ZRank(ctx, p.key, playerID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, p.unavailable("zrank", err)
	}
	return r, true, nil
}

// Size implements Pool.Size.
func (p *RedisPool) Size(ctx context.Context) (int64, error) {
	n, err := p.rdb.ZCard(ctx, p.key).Result()
	if err != nil {
		return 0, p.unavailable("zcard", err)
	}
	return n, nil
}

// Oldest implements Pool.Oldest.
func (p *RedisPool) Oldest(ctx context.Context, n int) ([]string, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	ids, err := p.rdb.ZRange(ctx, p.key, 0, int64(n)-1).Result()
	if err != nil {
		return nil, p.unavailable("zrange", err)
	}
	return ids, nil
}

// Entries implements Pool.Entries.
func (p *RedisPool) Entries(ctx context.Context, start, stop int64) ([]model.WaitingEntry, error) {
	zs, err := p.rdb.ZRangeWithScores(ctx, p.key, start, stop).Result()
	if err != nil {
		return nil, p.unavailable("zrange", err)
	}
	return toEntries(zs), nil
}

// RangeByScore implements Pool.RangeByScore.
func (p *RedisPool) RangeByScore(ctx context.Context, minScore, maxScore float64, limit int64) ([]model.WaitingEntry, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	by := &redis.ZRangeBy{
		Min: strconv.FormatFloat(minScore, 'f', -1, 64),
		Max: strconv.FormatFloat(maxScore, 'f', -1, 64),
	}
	if limit > 0 {
		by.Count = limit
	}
	zs, err := p.rdb.ZRangeByScoreWithScores(ctx, p.key, by).Result()
	if err != nil {
		return nil, p.unavailable("zrangebyscore", err)
	}
	return toEntries(zs), nil
}

// refreshSize keeps the pool gauge in step with the set; failures are only logged.
func (p *RedisPool) refreshSize(ctx context.Context) {
	n, err := p.rdb.ZCard(ctx, p.key).Result()
	if err != nil {
		p.log.Debug(ctx, "pool size refresh failed", logger.Error(err))
		return
	}
	metrics.UpdatePoolSize(n)
}

func toEntries(zs []redis.Z) []model.WaitingEntry {
	return pie.Map(zs, func(z redis.Z) model.WaitingEntry {
		id, _ := z.Member.(string)
		return model.WaitingEntry{PlayerID: id, Score: z.Score}
	})
}
