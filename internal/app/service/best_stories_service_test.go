package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"best-stories-service/internal/domain"
	rediscache "best-stories-service/internal/infra/redis"
)

func newTestService(provider domain.StoryProvider, cache domain.Cache) *BestStoriesService {
	return NewBestStoriesService(provider, cache, PipelineConfig{CacheTTL: 5 * time.Minute}, zap.NewNop())
}

func scoresOf(items []domain.StoryItem) []int {
	scores := make([]int, len(items))
	for i, item := range items {
		scores[i] = item.Score
	}

	return scores
}

func TestGetBestStories_SortsByScore(t *testing.T) {
	provider := newFakeProvider([]int{1, 2, 3}, 10, 50, 30)
	svc := newTestService(provider, newFakeCache())

	items, err := svc.GetBestStories(context.Background(), 3)

	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int{50, 30, 10}, scoresOf(items))
	assert.Equal(t, "Story 2", items[0].Title)
	assert.Equal(t, "Story 3", items[1].Title)
	assert.Equal(t, "Story 1", items[2].Title)
}

func TestGetBestStories_MapsFields(t *testing.T) {
	provider := newFakeProvider([]int{7}, 42)
	svc := newTestService(provider, newFakeCache())

	items, err := svc.GetBestStories(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.StoryItem{
		Title:        "Story 7",
		URL:          "https://example.com/7",
		PostedBy:     "author",
		Time:         "2007-04-04T19:16:40+00:00",
		Score:        42,
		CommentCount: 14,
	}, items[0])
}

func TestGetBestStories_TruncatesToCount(t *testing.T) {
	provider := newFakeProvider([]int{1, 2, 3, 4, 5}, 5, 4, 3, 2, 1)
	svc := newTestService(provider, newFakeCache())

	items, err := svc.GetBestStories(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, []int{5, 4}, scoresOf(items))
	assert.Equal(t, int32(2), provider.storyCalls.Load())
}

func TestGetBestStories_CountExceedsRanking(t *testing.T) {
	provider := newFakeProvider([]int{1, 2, 3}, 1, 2, 3)
	svc := newTestService(provider, newFakeCache())

	items, err := svc.GetBestStories(context.Background(), 5)

	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestGetBestStories_InvalidCount(t *testing.T) {
	for _, n := range []int{0, -1, -100} {
		provider := newFakeProvider([]int{1}, 1)
		cache := newFakeCache()
		svc := newTestService(provider, cache)

		items, err := svc.GetBestStories(context.Background(), n)

		require.ErrorIs(t, err, domain.ErrInvalidCount)
		assert.Nil(t, items)
		assert.Zero(t, provider.listCalls.Load())
		assert.Zero(t, provider.storyCalls.Load())
		assert.Zero(t, cache.gets.Load())
	}
}

func TestGetBestStories_EmptyRanking(t *testing.T) {
	provider := newFakeProvider([]int{})
	cache := newFakeCache()
	svc := newTestService(provider, cache)

	items, err := svc.GetBestStories(context.Background(), 10)

	require.NoError(t, err)
	assert.Nil(t, items)
	assert.Zero(t, provider.storyCalls.Load())
	assert.False(t, cache.has(domain.ResultKey(10)))
	assert.False(t, cache.has(domain.IdentifierListKey()))
}

func TestGetBestStories_RankingFailureIsAbsence(t *testing.T) {
	provider := newFakeProvider(nil)
	provider.idsErr = errors.New("upstream unavailable")
	cache := newFakeCache()
	svc := newTestService(provider, cache)

	items, err := svc.GetBestStories(context.Background(), 10)
	require.NoError(t, err)
	assert.Nil(t, items)

	// Absence is not cached, the next call asks upstream again.
	_, err = svc.GetBestStories(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), provider.listCalls.Load())
}

func TestGetBestStories_NullStoryDropped(t *testing.T) {
	provider := newFakeProvider([]int{1, 2, 3}, 10, 50, 30)
	delete(provider.stories, 2)
	cache := newFakeCache()
	svc := newTestService(provider, cache)

	items, err := svc.GetBestStories(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, []int{30, 10}, scoresOf(items))
	assert.False(t, cache.has(domain.ItemKey(2)))
	assert.True(t, cache.has(domain.ResultKey(3)))
}

func TestGetBestStories_FailedStoryDropped(t *testing.T) {
	provider := newFakeProvider([]int{1, 2, 3}, 10, 50, 30)
	provider.storyErrs[3] = errors.New("connection reset")
	svc := newTestService(provider, newFakeCache())

	items, err := svc.GetBestStories(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, []int{50, 10}, scoresOf(items))
}

func TestGetBestStories_AllStoriesFailed(t *testing.T) {
	provider := newFakeProvider([]int{1, 2}, 10, 20)
	provider.storyErrs[1] = errors.New("boom")
	provider.storyErrs[2] = errors.New("boom")
	cache := newFakeCache()
	svc := newTestService(provider, cache)

	items, err := svc.GetBestStories(context.Background(), 2)

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.False(t, cache.has(domain.ResultKey(2)))
}

func TestGetBestStories_ShedFetchesNotCached(t *testing.T) {
	provider := newFakeProvider([]int{1, 2, 3}, 10, 50, 30)
	provider.storyErrs[2] = fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, errors.New("too many requests"))
	cache := newFakeCache()
	svc := newTestService(provider, cache)

	items, err := svc.GetBestStories(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, []int{30, 10}, scoresOf(items))
	assert.False(t, cache.has(domain.ResultKey(3)))
	assert.True(t, cache.has(domain.ItemKey(1)))
	assert.True(t, cache.has(domain.ItemKey(3)))

	provider.mu.Lock()
	delete(provider.storyErrs, 2)
	provider.mu.Unlock()

	items, err = svc.GetBestStories(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, []int{50, 30, 10}, scoresOf(items))
	assert.True(t, cache.has(domain.ResultKey(3)))
	assert.Equal(t, int32(4), provider.storyCalls.Load())
}

func TestGetBestStories_ResultCacheHit(t *testing.T) {
	provider := newFakeProvider([]int{1}, 1)
	cache := newFakeCache()
	cached := []domain.StoryItem{{Title: "cached", Score: 99}}
	data, err := json.Marshal(cached)
	require.NoError(t, err)
	cache.put(domain.ResultKey(1), data)
	svc := newTestService(provider, cache)

	items, err := svc.GetBestStories(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, cached, items)
	assert.Zero(t, provider.listCalls.Load())
	assert.Zero(t, provider.storyCalls.Load())
}

func TestGetBestStories_ColdStartPopulatesCache(t *testing.T) {
	provider := newFakeProvider([]int{1, 2, 3}, 10, 50, 30)
	cache := newFakeCache()
	svc := newTestService(provider, cache)

	_, err := svc.GetBestStories(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int32(1), provider.listCalls.Load())

	assert.True(t, cache.has(domain.IdentifierListKey()))
	assert.True(t, cache.has(domain.ResultKey(3)))
	for _, id := range []int{1, 2, 3} {
		assert.True(t, cache.has(domain.ItemKey(id)))
		assert.Equal(t, 5*time.Minute, cache.ttl(domain.ItemKey(id)))
	}
	assert.Equal(t, 5*time.Minute, cache.ttl(domain.IdentifierListKey()))
	assert.Equal(t, 5*time.Minute, cache.ttl(domain.ResultKey(3)))

	// A different count reuses the cached ranking and stories.
	items, err := svc.GetBestStories(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(1), provider.listCalls.Load())
	assert.Equal(t, int32(3), provider.storyCalls.Load())
}

func TestGetBestStories_Idempotent(t *testing.T) {
	provider := newFakeProvider([]int{1, 2, 3, 4}, 7, 7, 3, 9)
	svc := newTestService(provider, newFakeCache())

	first, err := svc.GetBestStories(context.Background(), 4)
	require.NoError(t, err)
	second, err := svc.GetBestStories(context.Background(), 4)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), provider.listCalls.Load())
	assert.Equal(t, int32(4), provider.storyCalls.Load())
}

func TestGetBestStories_CacheReadErrorIsMiss(t *testing.T) {
	provider := newFakeProvider([]int{1, 2}, 1, 2)
	cache := newFakeCache()
	cache.getErr = errors.New("connection refused")
	svc := newTestService(provider, cache)

	items, err := svc.GetBestStories(context.Background(), 2)

	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, scoresOf(items))
	assert.Equal(t, int32(1), provider.listCalls.Load())
}

func TestGetBestStories_CacheWriteErrorIgnored(t *testing.T) {
	provider := newFakeProvider([]int{1, 2}, 1, 2)
	cache := newFakeCache()
	cache.setErr = errors.New("read only replica")
	svc := newTestService(provider, cache)

	items, err := svc.GetBestStories(context.Background(), 2)

	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestGetBestStories_UndecodableEntryIsMiss(t *testing.T) {
	provider := newFakeProvider([]int{1}, 5)
	cache := newFakeCache()
	cache.put(domain.ResultKey(1), []byte("not json"))
	cache.put(domain.IdentifierListKey(), []byte(`{"ids":1}`))
	svc := newTestService(provider, cache)

	items, err := svc.GetBestStories(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, []int{5}, scoresOf(items))
	assert.Equal(t, int32(1), provider.listCalls.Load())
}

func TestGetBestStories_CancelledContext(t *testing.T) {
	provider := newFakeProvider([]int{1}, 1)
	svc := newTestService(provider, newFakeCache())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := svc.GetBestStories(ctx, 1)

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, items)
}

func TestGetBestStories_DeadlineDuringFanOut(t *testing.T) {
	provider := newFakeProvider([]int{1, 2}, 1, 2)
	provider.delay = time.Second
	cache := newFakeCache()
	svc := newTestService(provider, cache)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	items, err := svc.GetBestStories(ctx, 2)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, items)
	assert.False(t, cache.has(domain.ResultKey(2)))
}

func TestGetBestStories_DeadlineKeepsFinishedStories(t *testing.T) {
	provider := newFakeProvider([]int{1, 2}, 1, 2)
	provider.delays[2] = time.Second
	cache := newFakeCache()
	svc := newTestService(provider, cache)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.GetBestStories(ctx, 2)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, cache.has(domain.ItemKey(1)))
	assert.False(t, cache.has(domain.ItemKey(2)))
	assert.True(t, cache.has(domain.IdentifierListKey()))
	assert.False(t, cache.has(domain.ResultKey(2)))
}

func TestGetBestStories_WaitingCallerStopsOnOwnCancellation(t *testing.T) {
	provider := newFakeProvider([]int{1}, 1)
	provider.release = make(chan struct{})
	svc := newTestService(provider, newFakeCache())

	leaderDone := make(chan error, 1)
	go func() {
		_, err := svc.GetBestStories(context.Background(), 1)
		leaderDone <- err
	}()
	require.Eventually(t, func() bool { return provider.listCalls.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()

	_, err := svc.GetBestStories(ctx, 1)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	close(provider.release)
	require.NoError(t, <-leaderDone)
	assert.Equal(t, int32(1), provider.listCalls.Load())
}

func TestGetBestStories_ConcurrentCallersShareRanking(t *testing.T) {
	provider := newFakeProvider([]int{1, 2, 3}, 1, 2, 3)
	provider.release = make(chan struct{})
	svc := newTestService(provider, newFakeCache())

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]domain.StoryItem, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = svc.GetBestStories(context.Background(), 3)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(provider.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []int{3, 2, 1}, scoresOf(results[i]))
	}
	assert.Equal(t, int32(1), provider.listCalls.Load())
}

func TestGetBestStories_MaxConcurrency(t *testing.T) {
	ids := []int{1, 2, 3, 4, 5, 6, 7, 8}
	provider := newFakeProvider(ids, 1, 2, 3, 4, 5, 6, 7, 8)
	provider.delay = 10 * time.Millisecond
	svc := NewBestStoriesService(provider, newFakeCache(), PipelineConfig{
		CacheTTL:       time.Minute,
		MaxConcurrency: 2,
	}, zap.NewNop())

	items, err := svc.GetBestStories(context.Background(), len(ids))

	require.NoError(t, err)
	assert.Len(t, items, len(ids))
	assert.LessOrEqual(t, provider.maxFlight.Load(), int32(2))
}

func TestGetBestStories_DefaultTTL(t *testing.T) {
	provider := newFakeProvider([]int{1}, 1)
	cache := newFakeCache()
	svc := NewBestStoriesService(provider, cache, PipelineConfig{}, zap.NewNop())

	_, err := svc.GetBestStories(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, DefaultCacheTTL, cache.ttl(domain.ResultKey(1)))
}

func TestGetBestStories_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := rediscache.NewCache(client, zap.NewNop(), "best-stories")
	provider := newFakeProvider([]int{1, 2, 3}, 10, 50, 30)
	svc := newTestService(provider, cache)

	items, err := svc.GetBestStories(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []int{50, 30, 10}, scoresOf(items))

	assert.True(t, mr.Exists("best-stories:processed_best_stories_3"))
	assert.True(t, mr.Exists("best-stories:bestStoryIds"))
	assert.True(t, mr.Exists("best-stories:story_2"))

	again, err := svc.GetBestStories(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, items, again)
	assert.Equal(t, int32(1), provider.listCalls.Load())

	// Once everything expires the pipeline goes back upstream.
	mr.FastForward(6 * time.Minute)
	_, err = svc.GetBestStories(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), provider.listCalls.Load())
}
