package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"best-stories-service/internal/domain"
	"best-stories-service/internal/metrics"
)

var _ domain.Cache = (*CacheStore)(nil)

// CacheStore implements domain.Cache on a PostgreSQL table.
// Expired rows are invisible to Get and removed by PurgeExpired.
type CacheStore struct {
	db        *gorm.DB
	logger    *zap.Logger
	keyPrefix string
	metrics   *metrics.CacheRecorder
	now       func() time.Time
}

// NewCacheStore creates a new PostgreSQL cache store.
func NewCacheStore(db *gorm.DB, logger *zap.Logger, keyPrefix string) *CacheStore {
	return &CacheStore{
		db:        db,
		logger:    logger,
		keyPrefix: keyPrefix,
		metrics:   metrics.NewCacheRecorder("postgres"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get retrieves an unexpired value by key. Returns nil if not found.
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()

	var model CacheEntryModel
	err := s.db.WithContext(ctx).
		Where("key = ? AND expires_at > ?", s.buildKey(key), s.now()).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.RecordMiss(start)

			return nil, nil
		}

		s.metrics.RecordError("get")
		s.logger.Error("cache get failed", zap.String("key", key), zap.Error(err))

		return nil, fmt.Errorf("getting cache entry: %w", err)
	}

	s.metrics.RecordHit(start)

	return model.Value, nil
}

// Set upserts a value with the given TTL.
func (s *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	now := s.now()

	model := &CacheEntryModel{
		Key:       s.buildKey(key),
		Value:     value,
		ExpiresAt: now.Add(ttl),
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(model).Error
	if err != nil {
		s.metrics.RecordError("set")
		s.logger.Error("cache set failed",
			zap.String("key", key),
			zap.Duration("ttl", ttl),
			zap.Error(err),
		)

		return fmt.Errorf("upserting cache entry: %w", err)
	}

	s.metrics.RecordWrite(start)

	return nil
}

// Delete removes a value by key.
func (s *CacheStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).
		Where("key = ?", s.buildKey(key)).
		Delete(&CacheEntryModel{}).Error
	if err != nil {
		s.metrics.RecordError("delete")

		return fmt.Errorf("deleting cache entry: %w", err)
	}

	return nil
}

// Clear removes every entry in this store's namespace.
func (s *CacheStore) Clear(ctx context.Context) error {
	result := s.db.WithContext(ctx).
		Where("key LIKE ?", escapeLike(s.keyPrefix)+":%").
		Delete(&CacheEntryModel{})
	if result.Error != nil {
		s.metrics.RecordError("clear")

		return fmt.Errorf("clearing cache entries: %w", result.Error)
	}

	s.logger.Info("cache cleared", zap.Int64("key_count", result.RowsAffected))

	return nil
}

// PurgeExpired deletes expired rows across all namespaces and returns how many were removed.
func (s *CacheStore) PurgeExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", s.now()).
		Delete(&CacheEntryModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("purging expired cache entries: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		s.logger.Debug("expired cache entries purged", zap.Int64("count", result.RowsAffected))
	}

	return result.RowsAffected, nil
}

// Ping verifies the database connection is alive.
func (s *CacheStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

func (s *CacheStore) buildKey(key string) string {
	return s.keyPrefix + ":" + key
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
