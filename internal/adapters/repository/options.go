package repository

import (
	"github.com/okian/arena/pkg/logger"
)

// Option applies a configuration option to the TreapPool.
type Option func(*TreapPool)

// WithSeed fixes the priority generator so tree shapes are reproducible.
func WithSeed(seed uint64) Option {
	return func(p *TreapPool) {
		p.seed = seed
	}
}

// RedisOption applies a configuration option to the RedisPool.
type RedisOption func(*RedisPool)

// WithKey sets the sorted-set key. Defaults to "queue:waiting".
func WithKey(key string) RedisOption {
	return func(p *RedisPool) {
		if key != "" {
			p.key = key
		}
	}
}

// WithRedisLogger sets the logger.
func WithRedisLogger(l logger.Logger) RedisOption {
	return func(p *RedisPool) {
		if l != nil {
			p.log = l
		}
	}
}
