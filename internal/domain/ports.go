package domain

import (
	"context"
	"time"
)

// StoryProvider defines the upstream content API.
// Implementations: internal/infra/provider/hackernews/
type StoryProvider interface {
	// ListBestIDs returns the upstream ranking of best story identifiers.
	ListBestIDs(ctx context.Context) ([]int, error)

	// GetStory returns a single item. Returns nil, nil when upstream has no item for id.
	GetStory(ctx context.Context, id int) (*Story, error)

	// HealthCheck verifies the provider is accessible.
	HealthCheck(ctx context.Context) error
}

// Cache defines the interface for caching operations.
// Implementations: internal/infra/redis/, internal/infra/memcached/, internal/infra/postgres/
type Cache interface {
	// Get retrieves a value by key. Returns nil if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Clear removes all cached values.
	Clear(ctx context.Context) error

	// Ping checks the backing store is reachable.
	Ping(ctx context.Context) error
}
