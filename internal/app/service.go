// Package service composes the matchmaking components and exposes the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/okian/arena/internal/adapters/client"
	"github.com/okian/arena/internal/adapters/http/api"
	"github.com/okian/arena/internal/adapters/http/swagger"
	"github.com/okian/arena/internal/adapters/notify"
	"github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/adapters/scheduler"
	"github.com/okian/arena/internal/adapters/storage"
	"github.com/okian/arena/internal/config"
	"github.com/okian/arena/internal/domain/matchmaking"
	"github.com/okian/arena/internal/domain/queue"
	"github.com/okian/arena/internal/domain/turn"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/metrics"
)

const defaultReadinessRetries = 5

// Service owns the lifetime of every component.
type Service struct {
	mu sync.RWMutex

	cfg   *config.Config
	clock clockwork.Clock

	// Backends; chosen from configuration unless injected.
	pool      repository.Pool
	store     turn.Store
	identity  matchmaking.Identity
	creator   matchmaking.MatchCreator
	rdb       *redis.Client
	gormStore *storage.GormStore

	queue      *queue.Service
	engine     *turn.Engine
	hub        *notify.Hub
	matchmaker *matchmaking.Matchmaker
	scheduler  *scheduler.Scheduler

	readinessRetries uint64
	poolBackend      string
	storeBackend     string

	// Set by options; only these survive a Stop or a failed Start.
	injected struct{ pool, store, creator bool }

	started bool
	logger  logger.Logger
}

// New constructs a Service. Nothing is connected until Start.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:              config.New(),
		clock:            clockwork.NewRealClock(),
		readinessRetries: defaultReadinessRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.injected.pool = s.pool != nil
	s.injected.store = s.store != nil
	s.injected.creator = s.creator != nil
	return s
}

// Start connects the backends, builds the domain services and starts the
// matchmaking scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting arena service...")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.openPool(gctx) })
	g.Go(func() error { return s.openStore(gctx) })
	if err := g.Wait(); err != nil {
		if cerr := s.closeBackends(); cerr != nil {
			s.logger.Warn(ctx, "backend cleanup failed", logger.Error(cerr))
		}
		return err
	}

	s.engine = turn.New(s.store,
		turn.WithClock(s.clock),
		turn.WithMaxHP(s.cfg.MaxHP),
	)
	s.queue = queue.New(s.pool, queue.WithClock(s.clock))
	s.hub = notify.NewHub(notify.WithBufferSize(s.cfg.NotifyBufferSize))

	if s.identity == nil {
		s.identity = client.NewIdentityClient(s.cfg.IdentityURL,
			client.WithTimeout(s.cfg.ClientTimeout()),
			client.WithRetries(s.cfg.ClientRetries),
		)
	}
	if s.creator == nil {
		if s.cfg.GameURL != "" {
			s.creator = client.NewGameClient(s.cfg.GameURL, client.WithTimeout(s.cfg.ClientTimeout()))
		} else {
			s.creator = s.engine
		}
	}

	s.matchmaker = matchmaking.New(s.pool, s.identity, s.creator, s.hub, matchmaking.WithClock(s.clock))
	s.scheduler = scheduler.New(s.matchmaker,
		scheduler.WithInterval(s.cfg.MatchmakingInterval()),
		scheduler.WithMaxAttempts(s.cfg.MatchmakingMaxAttempts),
		scheduler.WithClock(s.clock),
	)
	if err := s.scheduler.Start(ctx); err != nil {
		_ = s.hub.Close()
		if cerr := s.closeBackends(); cerr != nil {
			s.logger.Warn(ctx, "backend cleanup failed", logger.Error(cerr))
		}
		return fmt.Errorf("start scheduler: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "arena service started",
		logger.String("pool", s.poolBackend),
		logger.String("store", s.storeBackend),
		logger.Bool("remote_game", s.cfg.GameURL != ""),
		logger.Duration("interval", s.cfg.MatchmakingInterval()),
	)
	return nil
}

func (s *Service) openPool(ctx context.Context) error {
	if s.injected.pool {
		s.poolBackend = "injected"
		return nil
	}
	if s.cfg.RedisURL == "" {
		s.pool = repository.NewTreapPool()
		s.poolBackend = "memory"
		return nil
	}

	opt, err := redis.ParseURL(s.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("%w: redis url: %v", ErrDependency, err)
	}
	rdb := redis.NewClient(opt)
	pool := repository.NewRedisPool(rdb, repository.WithKey(s.cfg.RedisQueueKey))
	if err := s.waitReady(ctx, "redis", pool.Ping); err != nil {
		_ = rdb.Close()
		return err
	}
	s.rdb = rdb
	s.pool = pool
	s.poolBackend = "redis"
	return nil
}

func (s *Service) openStore(ctx context.Context) error {
	if s.injected.store {
		s.storeBackend = "injected"
		return nil
	}
	if s.cfg.PostgresDSN == "" {
		s.store = storage.NewMemoryStore()
		s.storeBackend = "memory"
		return nil
	}

	var gs *storage.GormStore
	err := s.waitReady(ctx, "postgres", func(ctx context.Context) error {
		db, err := storage.Connect(ctx, s.cfg.PostgresDSN, s.cfg.PostgresVerbose)
		if err != nil {
			return err
		}
		gs = storage.NewGormStore(db)
		return nil
	})
	if err != nil {
		return err
	}
	if s.cfg.AutoMigrate {
		if err := gs.Migrate(ctx); err != nil {
			_ = gs.Close()
			return fmt.Errorf("%w: migrate: %v", ErrDependency, err)
		}
	}
	s.gormStore = gs
	s.store = gs
	s.storeBackend = "postgres"
	return nil
}

// waitReady retries check with exponential backoff until it succeeds or the
// retries run out. ctx ending stops it early.
func (s *Service) waitReady(ctx context.Context, name string, check func(context.Context) error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.readinessRetries), ctx)
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := check(ctx)
		if err != nil {
			s.logger.Warn(ctx, "dependency not ready",
				logger.String("dependency", name),
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
		}
		return err
	}, b)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDependency, name, err)
	}
	return nil
}

// closeBackends releases what the service opened itself and forgets it, so
// the next Start connects again. Injected backends are left alone.
func (s *Service) closeBackends() error {
	var errs []error
	if s.rdb != nil {
		errs = append(errs, s.rdb.Close())
		s.rdb = nil
	}
	if s.gormStore != nil {
		errs = append(errs, s.gormStore.Close())
		s.gormStore = nil
	}
	if !s.injected.pool {
		s.pool, s.poolBackend = nil, ""
	}
	if !s.injected.store {
		s.store, s.storeBackend = nil, ""
	}
	if !s.injected.creator {
		s.creator = nil
	}
	return errors.Join(errs...)
}

// Stop halts the scheduler, closes notification topics and releases the
// backends. It is safe to call more than once.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping arena service...")

	var errs []error
	if err := s.scheduler.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
	}
	if err := s.hub.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.closeBackends(); err != nil {
		errs = append(errs, err)
	}

	s.started = false
	s.logger.Info(ctx, "arena service stopped")
	return errors.Join(errs...)
}

// Handler returns the HTTP routes backed by this service.
func (s *Service) Handler(ctx context.Context) (http.Handler, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}

	ws := notify.NewWebSocketHandler(s.hub, api.PlayerIDFromRequest)
	server := api.NewServer(s.queue, s.engine, s,
		api.WithAuthenticator(api.NewAuthenticator(s.cfg.JWTSecret)),
		api.WithNotifications(ws),
	)
	mux := http.NewServeMux()
	server.Register(ctx, mux)
	swagger.Register(ctx, mux)
	return mux, nil
}

// Scheduler exposes the running scheduler, nil before Start.
func (s *Service) Scheduler() *scheduler.Scheduler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduler
}

// Hub exposes the notification hub, nil before Start.
func (s *Service) Hub() *notify.Hub {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hub
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started": s.started,
	}
	if !s.started {
		return stats
	}

	stats["pool_backend"] = s.poolBackend
	stats["store_backend"] = s.storeBackend
	if size, err := s.pool.Size(context.Background()); err == nil {
		stats["pool_size"] = size
		metrics.UpdatePoolSize(size)
	} else {
		stats["pool_error"] = err.Error()
	}
	stats["scheduler_running"] = s.scheduler.Running()
	stats["scheduler_ticks"] = s.scheduler.Ticks()
	stats["scheduler_pairs"] = s.scheduler.Pairs()
	return stats
}
