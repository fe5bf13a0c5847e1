package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ARENA_"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ARENA_CONFIG is set
//  3. env (prefix ARENA_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// ARENA_REDIS_URL -> redis_url; underscores are kept to match koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MatchmakingIntervalMS <= 0:
		return fmt.Errorf("%w: matchmaking_interval_ms must be positive", ErrInvalidConfig)
	case c.MatchmakingMaxAttempts <= 0:
		return fmt.Errorf("%w: matchmaking_max_attempts must be positive", ErrInvalidConfig)
	case c.MaxHP <= 0:
		return fmt.Errorf("%w: max_hp must be positive", ErrInvalidConfig)
	case c.NotifyBufferSize <= 0:
		return fmt.Errorf("%w: notify_buffer_size must be positive", ErrInvalidConfig)
	case c.RedisURL != "" && c.RedisQueueKey == "":
		return fmt.Errorf("%w: redis_queue_key must be set with redis_url", ErrInvalidConfig)
	}
	return nil
}
