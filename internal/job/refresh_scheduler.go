// Package job provides background job schedulers.
package job

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"best-stories-service/internal/app/service"
	"best-stories-service/pkg/locker"
)

const lockKey = "refresh:scheduler"

// Refresher rebuilds cached result sets.
// Implemented by *service.RefreshService.
type Refresher interface {
	Refresh(ctx context.Context, counts []int) []service.RefreshResult
}

// ExpiredPurger is implemented by cache stores that keep expired entries
// until they are swept, such as the postgres store.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RefreshScheduler periodically rebuilds the hottest result sets so clients
// rarely pay for a cold pipeline. A distributed lock keeps the fleet down to
// one refresh per interval.
type RefreshScheduler struct {
	refresher Refresher
	purger    ExpiredPurger
	counts    []int
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	locker    locker.DistributedLocker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RefreshConfig holds refresh scheduler configuration.
type RefreshConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	Counts   []int
}

// NewRefreshScheduler creates a new RefreshScheduler. purger may be nil.
func NewRefreshScheduler(
	refresher Refresher,
	purger ExpiredPurger,
	cfg RefreshConfig,
	logger *zap.Logger,
	locker locker.DistributedLocker,
) *RefreshScheduler {
	return &RefreshScheduler{
		refresher: refresher,
		purger:    purger,
		counts:    cfg.Counts,
		interval:  cfg.Interval,
		timeout:   cfg.Timeout,
		logger:    logger,
		locker:    locker,
	}
}

// Start begins the background refresh job.
func (s *RefreshScheduler) Start(runOnStartup bool) {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.logger.Info("starting refresh scheduler",
		zap.Duration("interval", s.interval),
		zap.Ints("counts", s.counts),
		zap.Bool("run_on_startup", runOnStartup),
	)

	s.wg.Add(1)
	go s.run(runOnStartup)
}

// Stop gracefully stops the scheduler, waiting for a running refresh to return.
func (s *RefreshScheduler) Stop() {
	s.logger.Info("stopping refresh scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("refresh scheduler stopped")
}

func (s *RefreshScheduler) run(runOnStartup bool) {
	defer s.wg.Done()

	if runOnStartup {
		s.executeRefresh()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.executeRefresh()
		}
	}
}

// executeRefresh performs one refresh under the distributed lock.
//
// Locking behavior:
//   - Lock TTL = interval duration (cooldown model, not timeout)
//   - Success: Lock held for full interval to prevent duplicate refreshes
//   - Failure: Lock released immediately to allow retry by another instance
func (s *RefreshScheduler) executeRefresh() {
	acquired, err := s.locker.Acquire(s.ctx, lockKey, s.interval)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Error("failed to acquire distributed lock", zap.Error(err))
		}

		return
	}
	if !acquired {
		s.logger.Debug("another instance is refreshing, skipping execution")

		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	results := s.refresher.Refresh(ctx, s.counts)

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
			s.logger.Warn("result set refresh failed",
				zap.Int("count", r.Count),
				zap.Error(r.Error),
			)
		}
	}

	s.purgeExpired(ctx)

	if failed > 0 {
		if err := s.locker.Release(s.ctx, lockKey); err != nil {
			s.logger.Error("failed to release lock after refresh error", zap.Error(err))
		}
		s.logger.Info("refresh completed with errors, lock released for retry",
			zap.Int("refreshed", len(results)-failed),
			zap.Int("failed", failed),
		)

		return
	}

	s.logger.Info("refresh completed successfully, lock held for cooldown",
		zap.Int("refreshed", len(results)),
		zap.Duration("cooldown", s.interval),
	)
}

func (s *RefreshScheduler) purgeExpired(ctx context.Context) {
	if s.purger == nil {
		return
	}

	purged, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		s.logger.Warn("failed to purge expired cache entries", zap.Error(err))

		return
	}
	if purged > 0 {
		s.logger.Debug("purged expired cache entries", zap.Int64("rows", purged))
	}
}
