// Package locker coordinates work that only one service replica should run
// at a time, such as the periodic best-stories refresh.
package locker

import (
	"context"
	"time"
)

// DistributedLocker hands out named leases shared by every replica.
// Implementations must be safe for concurrent use.
//
// The refresh scheduler uses a lease as a cooldown: it acquires with ttl equal
// to the refresh interval and only releases early when the refresh failed, so
// another replica may retry on its next tick.
//
//	ok, err := l.Acquire(ctx, "refresh:scheduler", interval)
//	if err != nil || !ok {
//	    return
//	}
//	if err := refresh(ctx); err != nil {
//	    _ = l.Release(ctx, "refresh:scheduler")
//	}
type DistributedLocker interface {
	// Acquire takes the lease for key. It returns false, nil when another
	// replica holds it. The lease expires after ttl unless released first.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release gives up a lease this instance holds. Releasing a lease that
	// expired or belongs to another replica is a no-op.
	Release(ctx context.Context, key string) error
}
