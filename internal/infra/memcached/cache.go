// Package memcached implements domain.Cache on top of memcached.
package memcached

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"best-stories-service/internal/domain"
	"best-stories-service/internal/metrics"
	"best-stories-service/internal/tracing"
)

var _ domain.Cache = (*Cache)(nil)

// Cache implements domain.Cache using memcached.
//
// memcached cannot enumerate keys, so every key carries a namespace
// generation ("{prefix}:{gen}:{key}"). Clear bumps the generation and the
// old entries age out on their own TTL.
type Cache struct {
	client    *memcache.Client
	logger    *zap.Logger
	keyPrefix string
	metrics   *metrics.CacheRecorder
}

// Config holds memcached connection settings.
type Config struct {
	Servers      []string
	Timeout      time.Duration
	MaxIdleConns int
}

// NewCache creates a memcached-backed cache.
func NewCache(cfg Config, logger *zap.Logger, keyPrefix string) *Cache {
	client := memcache.New(cfg.Servers...)
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}
	if cfg.MaxIdleConns > 0 {
		client.MaxIdleConns = cfg.MaxIdleConns
	}

	return &Cache{
		client:    client,
		logger:    logger,
		keyPrefix: keyPrefix,
		metrics:   metrics.NewCacheRecorder("memcached"),
	}
}

// Get retrieves a value by key. Returns nil if the key doesn't exist.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := otel.Tracer(tracing.TracerName).Start(ctx, "memcached.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("cache.driver", "memcached"),
		attribute.String("cache.key", key),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullKey, err := c.buildKey(key)
	if err != nil {
		return nil, c.fail(span, "get", key, err)
	}

	start := time.Now()
	item, err := c.client.Get(fullKey)
	switch {
	case errors.Is(err, memcache.ErrCacheMiss):
		c.metrics.RecordMiss(start)
		span.SetAttributes(attribute.String("cache.result", "miss"))

		return nil, nil
	case err != nil:
		return nil, c.fail(span, "get", key, err)
	default:
		c.metrics.RecordHit(start)
		span.SetAttributes(attribute.String("cache.result", "hit"))
		c.logger.Debug("cache hit",
			zap.String("key", key),
			zap.Int("bytes", len(item.Value)),
		)

		return item.Value, nil
	}
}

// Set stores a value with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, span := otel.Tracer(tracing.TracerName).Start(ctx, "memcached.Set")
	defer span.End()
	span.SetAttributes(
		attribute.String("cache.driver", "memcached"),
		attribute.String("cache.key", key),
		attribute.Int64("cache.ttl", int64(ttl.Seconds())),
	)

	if err := ctx.Err(); err != nil {
		return err
	}

	fullKey, err := c.buildKey(key)
	if err != nil {
		return c.fail(span, "set", key, err)
	}

	start := time.Now()
	err = c.client.Set(&memcache.Item{
		Key:        fullKey,
		Value:      value,
		Expiration: expiration(ttl),
	})
	if err != nil {
		return c.fail(span, "set", key, err)
	}

	c.metrics.RecordWrite(start)
	c.logger.Debug("cache set",
		zap.String("key", key),
		zap.Int("bytes", len(value)),
		zap.Duration("ttl", ttl),
	)

	return nil
}

// Delete removes a value by key. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullKey, err := c.buildKey(key)
	if err != nil {
		return err
	}

	err = c.client.Delete(fullKey)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		c.metrics.RecordError("delete")
		c.logger.Error("cache delete failed",
			zap.String("key", key),
			zap.Error(err),
		)

		return err
	}

	c.logger.Debug("cache delete", zap.String("key", key))

	return nil
}

// Clear invalidates every key in the namespace by bumping its generation.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	gen, err := c.client.Increment(c.generationKey(), 1)
	if errors.Is(err, memcache.ErrCacheMiss) {
		// No generation yet: everything is already in generation 0.
		gen = 1
		err = c.client.Add(&memcache.Item{Key: c.generationKey(), Value: []byte("1")})
		if errors.Is(err, memcache.ErrNotStored) {
			gen, err = c.client.Increment(c.generationKey(), 1)
		}
	}
	if err != nil {
		c.metrics.RecordError("clear")
		c.logger.Error("cache clear failed", zap.Error(err))

		return err
	}

	c.logger.Info("cache cleared", zap.Uint64("generation", gen))

	return nil
}

// Ping checks all memcached servers are reachable.
func (c *Cache) Ping(_ context.Context) error {
	return c.client.Ping()
}

// Close releases idle connections.
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) fail(span trace.Span, op, key string, err error) error {
	c.metrics.RecordError(op)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Error("cache "+op+" failed",
		zap.String("key", key),
		zap.Error(err),
	)

	return err
}

// buildKey resolves the current namespace generation and prefixes key with it.
func (c *Cache) buildKey(key string) (string, error) {
	gen := "0"
	item, err := c.client.Get(c.generationKey())
	switch {
	case errors.Is(err, memcache.ErrCacheMiss):
	case err != nil:
		return "", err
	default:
		gen = strings.TrimSpace(string(item.Value))
	}

	return c.keyPrefix + ":" + gen + ":" + key, nil
}

func (c *Cache) generationKey() string {
	return c.keyPrefix + ":gen"
}

// expiration converts ttl to memcached's seconds. Values above 30 days are
// read by memcached as absolute unix timestamps.
func expiration(ttl time.Duration) int32 {
	const maxRelative = 30 * 24 * time.Hour
	if ttl > maxRelative {
		return int32(time.Now().Add(ttl).Unix())
	}

	return int32(ttl / time.Second)
}
