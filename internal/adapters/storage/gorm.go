package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" database/sql driver
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/arena/internal/domain/model"
	"github.com/okian/arena/pkg/logger"
)

// gormWriter routes gorm's SQL trace into the service logger.
type gormWriter struct {
	log logger.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.log.Debug(context.Background(), fmt.Sprintf(format, args...))
}

// Connect opens a lib/pq connection and hands it to gorm.
func Connect(ctx context.Context, dsn string, verbose bool) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	cfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	}
	if verbose {
		cfg.Logger = gormlogger.New(gormWriter{log: logger.Named("gorm")}, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Info,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(pgdriver.New(pgdriver.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), cfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return db, nil
}

// GormStore keeps matches and moves in Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the matches and moves tables.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&matchRecord{}, &moveRecord{})
}

// Ping checks the underlying connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateMatch inserts a new match.
func (s *GormStore) CreateMatch(ctx context.Context, m *model.Match) error {
	err := s.db.WithContext(ctx).Create(matchToRecord(m)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: match %s", ErrDuplicate, m.ID)
	}
	return err
}

// GetMatch loads a match by id.
func (s *GormStore) GetMatch(ctx context.Context, id string) (*model.Match, bool, error) {
	var rec matchRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return rec.toModel(), true, nil
}

// StartMatch flips WAITING to IN_PROGRESS with a conditional update, so only
// one caller ever sees true.
func (s *GormStore) StartMatch(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&matchRecord{}).
		Where("id = ? AND status = ?", id, string(model.StatusWaiting)).
		Updates(map[string]any{
			"status":             string(model.StatusInProgress),
			"current_turn_start": at,
			"updated_at":         at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateMatch overwrites an existing match.
func (s *GormStore) UpdateMatch(ctx context.Context, m *model.Match) error {
	rec := matchToRecord(m)
	res := s.db.WithContext(ctx).Model(rec).Select("*").Omit("created_at", "resolved_turn").Updates(rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: match %s", ErrNotFound, m.ID)
	}
	return nil
}

// ClaimRound advances resolved_turn with a conditional update, so only one
// caller claims a given turn.
func (s *GormStore) ClaimRound(ctx context.Context, matchID string, turnNumber int) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&matchRecord{}).
		Where("id = ? AND resolved_turn < ?", matchID, turnNumber).
		UpdateColumn("resolved_turn", turnNumber)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MoveExists reports whether playerID already moved in turnNumber.
func (s *GormStore) MoveExists(ctx context.Context, matchID, playerID string, turnNumber int) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&moveRecord{}).
		Where("match_id = ? AND player_id = ? AND turn_number = ?", matchID, playerID, turnNumber).
		Count(&n).Error
	return n > 0, err
}

// SaveMove appends a move.
func (s *GormStore) SaveMove(ctx context.Context, mv *model.Move) error {
	return s.db.WithContext(ctx).Create(moveToRecord(mv)).Error
}

// MovesForTurn lists the moves of one turn in submission order.
func (s *GormStore) MovesForTurn(ctx context.Context, matchID string, turnNumber int) ([]model.Move, error) {
	var recs []moveRecord
	err := s.db.WithContext(ctx).
		Where("match_id = ? AND turn_number = ?", matchID, turnNumber).
		Order("created_at, id").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]model.Move, len(recs))
	for i := range recs {
		out[i] = recs[i].toModel()
	}
	return out, nil
}
