package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"best-stories-service/internal/domain"
)

// RefreshService rebuilds cached result sets ahead of client requests and
// wipes the cache on demand.
type RefreshService struct {
	stories *BestStoriesService
	cache   domain.Cache
	logger  *zap.Logger
}

// NewRefreshService creates a new RefreshService.
func NewRefreshService(stories *BestStoriesService, cache domain.Cache, logger *zap.Logger) *RefreshService {
	return &RefreshService{
		stories: stories,
		cache:   cache,
		logger:  logger,
	}
}

// RefreshResult holds the outcome of rebuilding one result set.
type RefreshResult struct {
	Count    int
	Stories  int
	Duration time.Duration
	Error    error
}

// Refresh evicts the identifier list and the result set of every count, then
// recomputes each count in turn. Cached stories are kept; their own TTL
// bounds how stale a score can get. Partial failures are allowed.
func (s *RefreshService) Refresh(ctx context.Context, counts []int) []RefreshResult {
	results := make([]RefreshResult, 0, len(counts))

	s.logger.Info("starting cache refresh", zap.Ints("counts", counts))

	if err := s.cache.Delete(ctx, domain.IdentifierListKey()); err != nil {
		s.logger.Warn("failed to evict identifier list", zap.Error(err))
	}

	for _, n := range counts {
		results = append(results, s.refreshCount(ctx, n))
	}

	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}

	s.logger.Info("cache refresh completed",
		zap.Int("counts", len(results)),
		zap.Int("failed", failed),
	)

	return results
}

func (s *RefreshService) refreshCount(ctx context.Context, n int) RefreshResult {
	start := time.Now()
	result := RefreshResult{Count: n}

	if n <= 0 {
		result.Error = domain.ErrInvalidCount
		return result
	}

	if err := s.cache.Delete(ctx, domain.ResultKey(n)); err != nil {
		s.logger.Warn("failed to evict result set",
			zap.Int("count", n),
			zap.Error(err),
		)
	}

	items, err := s.stories.GetBestStories(ctx, n)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		s.logger.Error("refresh failed",
			zap.Int("count", n),
			zap.Error(err),
		)

		return result
	}

	result.Stories = len(items)
	s.logger.Debug("result set refreshed",
		zap.Int("count", n),
		zap.Int("stories", result.Stories),
		zap.Duration("duration", result.Duration),
	)

	return result
}

// Clear drops every entry the service has cached.
func (s *RefreshService) Clear(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		return err
	}

	s.logger.Info("cache cleared")

	return nil
}
