// Package service provides application use cases.
package service

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"best-stories-service/internal/domain"
	"best-stories-service/internal/metrics"
	"best-stories-service/internal/tracing"
)

// DefaultCacheTTL applies to every entry the pipeline writes.
const DefaultCacheTTL = 5 * time.Minute

// PipelineConfig holds tuning for BestStoriesService.
type PipelineConfig struct {
	// CacheTTL is used for the identifier list, each story and each result set.
	CacheTTL time.Duration
	// MaxConcurrency bounds the per-story fan-out. Zero means one goroutine per story.
	MaxConcurrency int
}

// BestStoriesService assembles the top-N best stories using a cache-aside
// strategy over the upstream provider.
type BestStoriesService struct {
	provider       domain.StoryProvider
	cache          jsonCache
	maxConcurrency int
	ids            singleflight.Group
	logger         *zap.Logger
}

// NewBestStoriesService creates a new BestStoriesService.
func NewBestStoriesService(
	provider domain.StoryProvider,
	cache domain.Cache,
	cfg PipelineConfig,
	logger *zap.Logger,
) *BestStoriesService {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &BestStoriesService{
		provider:       provider,
		cache:          jsonCache{cache: cache, ttl: ttl, logger: logger},
		maxConcurrency: cfg.MaxConcurrency,
		logger:         logger,
	}
}

// GetBestStories returns up to n stories ordered by score, highest first.
// A nil slice with a nil error means upstream had no best stories.
func (s *BestStoriesService) GetBestStories(ctx context.Context, n int) ([]domain.StoryItem, error) {
	if n <= 0 {
		return nil, domain.ErrInvalidCount
	}

	ctx, span := otel.Tracer(tracing.TracerName).Start(ctx, "BestStoriesService.GetBestStories")
	defer span.End()
	span.SetAttributes(attribute.Int("stories.requested", n))

	start := time.Now()
	resultKey := domain.ResultKey(n)

	var cached []domain.StoryItem
	if s.cache.get(ctx, resultKey, &cached) {
		span.SetAttributes(attribute.Bool("stories.result_cached", true))
		metrics.PipelineDurationSeconds.WithLabelValues("result_cache").Observe(time.Since(start).Seconds())

		return cached, nil
	}

	ids, err := s.topStoryIDs(ctx, n)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	stories, shed, err := s.fetchStories(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := rankStories(stories)
	span.SetAttributes(
		attribute.Int("stories.returned", len(items)),
		attribute.Int("stories.shed", shed),
	)

	// An empty set only reflects failed fetches, and a set the provider shed
	// load on is missing stories that exist; neither is pinned for a TTL.
	switch {
	case shed > 0:
		s.logger.Warn("upstream shed story fetches, result not cached",
			zap.Int("requested", n),
			zap.Int("shed", shed),
		)
	case len(items) > 0:
		s.cache.set(ctx, resultKey, items)
	}

	metrics.PipelineDurationSeconds.WithLabelValues("computed").Observe(time.Since(start).Seconds())
	s.logger.Debug("best stories computed",
		zap.Int("requested", n),
		zap.Int("returned", len(items)),
		zap.Duration("duration", time.Since(start)),
	)

	return items, nil
}

// topStoryIDs returns the first n identifiers of the upstream ranking,
// reading the full ranking from cache when possible.
func (s *BestStoriesService) topStoryIDs(ctx context.Context, n int) ([]int, error) {
	var ids []int
	if !s.cache.get(ctx, domain.IdentifierListKey(), &ids) || len(ids) == 0 {
		var err error
		ids, err = s.resolveIDs(ctx)
		if err != nil {
			return nil, err
		}
	}

	if len(ids) > n {
		ids = ids[:n]
	}

	return ids, nil
}

// resolveIDs loads the ranking from upstream. Concurrent callers in this
// process share one upstream call; each stops waiting when its own ctx ends.
func (s *BestStoriesService) resolveIDs(ctx context.Context) ([]int, error) {
	ch := s.ids.DoChan(domain.IdentifierListKey(), func() (interface{}, error) {
		return s.fetchIDs(ctx)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	v, err := res.Val, res.Err
	if err != nil && isContextErr(err) && ctx.Err() == nil {
		// The shared call belonged to a caller that went away; ours is still live.
		v, err = s.fetchIDs(ctx)
	}
	if err != nil {
		return nil, err
	}

	ids, _ := v.([]int)

	return ids, nil
}

// fetchIDs calls upstream for the ranking and caches it whole. An upstream
// failure is reported as an empty ranking unless ctx was cancelled.
func (s *BestStoriesService) fetchIDs(ctx context.Context) ([]int, error) {
	ctx, span := otel.Tracer(tracing.TracerName).Start(ctx, "BestStoriesService.fetchIDs")
	defer span.End()

	ids, err := s.provider.ListBestIDs(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		span.RecordError(err)
		s.logger.Warn("best story ids unavailable", zap.Error(err))

		return nil, nil
	}
	if len(ids) == 0 {
		s.logger.Info("upstream returned no best story ids")

		return nil, nil
	}

	s.cache.set(ctx, domain.IdentifierListKey(), ids)
	span.SetAttributes(attribute.Int("stories.ranked", len(ids)))

	return ids, nil
}

// fetchStories loads every story concurrently. Each goroutine owns one slot
// of the result, so no locking is needed; a failed or missing story leaves
// its slot nil. shed counts fetches the provider refused as unavailable.
func (s *BestStoriesService) fetchStories(ctx context.Context, ids []int) (stories []*domain.Story, shed int, err error) {
	ctx, span := otel.Tracer(tracing.TracerName).Start(ctx, "BestStoriesService.fetchStories")
	defer span.End()
	span.SetAttributes(attribute.Int("stories.fanout", len(ids)))

	stories = make([]*domain.Story, len(ids))
	unavailable := make([]bool, len(ids))

	// Plain group: one story's failure must not cancel its siblings.
	var g errgroup.Group
	if s.maxConcurrency > 0 {
		g.SetLimit(s.maxConcurrency)
	}

	for i, id := range ids {
		g.Go(func() error {
			stories[i], unavailable[i] = s.fetchStory(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	for _, refused := range unavailable {
		if refused {
			shed++
		}
	}

	return stories, shed, nil
}

// fetchStory returns the cached story for id, fetching and caching it on a miss.
// unavailable reports that the provider refused the fetch without trying it.
func (s *BestStoriesService) fetchStory(ctx context.Context, id int) (story *domain.Story, unavailable bool) {
	key := domain.ItemKey(id)

	var cached domain.Story
	if s.cache.get(ctx, key, &cached) {
		return &cached, false
	}

	fetched, err := s.provider.GetStory(ctx, id)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("story fetch failed, dropping",
				zap.Int("id", id),
				zap.Error(err),
			)
		}

		return nil, errors.Is(err, domain.ErrUpstreamUnavailable)
	}
	if fetched == nil {
		s.logger.Debug("story missing upstream, dropping", zap.Int("id", id))

		return nil, false
	}

	s.cache.set(ctx, key, fetched)

	return fetched, false
}

// rankStories drops missing stories, orders the rest by score descending and
// maps them to their API form. Ties keep no particular order.
func rankStories(stories []*domain.Story) []domain.StoryItem {
	present := make([]*domain.Story, 0, len(stories))
	for _, story := range stories {
		if story != nil {
			present = append(present, story)
		}
	}

	if dropped := len(stories) - len(present); dropped > 0 {
		metrics.StoriesDroppedTotal.Add(float64(dropped))
	}

	slices.SortFunc(present, func(a, b *domain.Story) int {
		return cmp.Compare(b.Score, a.Score)
	})

	items := make([]domain.StoryItem, len(present))
	for i, story := range present {
		items[i] = story.ToItem()
	}

	return items
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
