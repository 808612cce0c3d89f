package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"best-stories-service/internal/domain"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration

	getErr   error
	setErr   error
	clearErr error

	gets    atomic.Int32
	sets    atomic.Int32
	deletes atomic.Int32
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.gets.Add(1)
	if c.getErr != nil {
		return nil, c.getErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.entries[key], nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.sets.Add(1)
	if c.setErr != nil {
		return c.setErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.ttls[key] = ttl

	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.deletes.Add(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	delete(c.ttls, key)

	return nil
}

func (c *fakeCache) Clear(_ context.Context) error {
	if c.clearErr != nil {
		return c.clearErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	clear(c.ttls)

	return nil
}

func (c *fakeCache) Ping(_ context.Context) error {
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]

	return ok
}

func (c *fakeCache) put(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

func (c *fakeCache) ttl(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ttls[key]
}

type fakeProvider struct {
	mu        sync.Mutex
	ids       []int
	idsErr    error
	stories   map[int]*domain.Story
	storyErrs map[int]error

	// delay is applied to every story fetch; it honours ctx.
	delay time.Duration
	// delays overrides delay for individual stories.
	delays map[int]time.Duration
	// release, when set, holds ListBestIDs until it is closed.
	release chan struct{}

	listCalls  atomic.Int32
	storyCalls atomic.Int32
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
}

func newFakeProvider(ids []int, scores ...int) *fakeProvider {
	p := &fakeProvider{
		ids:       ids,
		stories:   make(map[int]*domain.Story),
		storyErrs: make(map[int]error),
		delays:    make(map[int]time.Duration),
	}
	for i, id := range ids {
		if i < len(scores) {
			p.stories[id] = testStory(id, scores[i])
		}
	}

	return p
}

func testStory(id, score int) *domain.Story {
	return &domain.Story{
		ID:          id,
		Type:        "story",
		Title:       fmt.Sprintf("Story %d", id),
		URL:         fmt.Sprintf("https://example.com/%d", id),
		By:          "author",
		Time:        1175714200,
		Score:       score,
		Descendants: id * 2,
	}
}

func (p *fakeProvider) ListBestIDs(ctx context.Context) ([]int, error) {
	p.listCalls.Add(1)

	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idsErr != nil {
		return nil, p.idsErr
	}

	return append([]int(nil), p.ids...), nil
}

func (p *fakeProvider) GetStory(ctx context.Context, id int) (*domain.Story, error) {
	p.storyCalls.Add(1)

	current := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		seen := p.maxFlight.Load()
		if current <= seen || p.maxFlight.CompareAndSwap(seen, current) {
			break
		}
	}

	delay := p.delay
	if d, ok := p.delays[id]; ok {
		delay = d
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.storyErrs[id]; err != nil {
		return nil, err
	}

	story, ok := p.stories[id]
	if !ok {
		return nil, nil
	}
	copied := *story

	return &copied, nil
}

func (p *fakeProvider) HealthCheck(_ context.Context) error {
	return nil
}

func (p *fakeProvider) setIDs(ids []int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = ids
}

func (p *fakeProvider) setStory(story *domain.Story) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stories[story.ID] = story
}
