package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"best-stories-service/internal/domain"
)

// jsonCache stores values as JSON text in a domain.Cache, always with the same
// TTL. The cache is an optimization only: read failures count as misses and
// write failures are logged and dropped.
type jsonCache struct {
	cache  domain.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// get decodes the entry under key into dest and reports whether it was found.
func (c jsonCache) get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)

		return false
	}
	if data == nil {
		c.logger.Debug("cache miss", zap.String("key", key))

		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("cache entry undecodable, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)

		return false
	}

	return true
}

// set encodes value and stores it under key.
func (c jsonCache) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache entry not encodable",
			zap.String("key", key),
			zap.Error(err),
		)

		return
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache write failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
