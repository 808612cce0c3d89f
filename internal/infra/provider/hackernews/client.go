// Package hackernews implements domain.StoryProvider for the Hacker News Firebase API.
package hackernews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"best-stories-service/internal/domain"
	"best-stories-service/internal/infra/provider"
	"best-stories-service/internal/metrics"
)

// API paths relative to the configured base URL.
const (
	BestStoriesEndpoint = "/beststories.json"
	ItemEndpoint        = "/item/{id}.json"
	MaxItemEndpoint     = "/maxitem.json"
)

// DefaultBaseURL is the public Hacker News API.
const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

var _ domain.StoryProvider = (*Client)(nil)

// Client implements domain.StoryProvider for Hacker News.
type Client struct {
	name   string
	client *resty.Client
	cb     *gobreaker.CircuitBreaker[*resty.Response]
	logger *zap.Logger
}

// New creates a new Hacker News client.
func New(cfg provider.ClientConfig, logger *zap.Logger) *Client {
	return &Client{
		name:   "hackernews",
		client: provider.NewRestyClient(cfg),
		cb:     provider.NewCircuitBreaker[*resty.Response]("hackernews", cfg.CB, logger),
		logger: logger,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return c.name
}

// ListBestIDs retrieves the current best stories ranking.
func (c *Client) ListBestIDs(ctx context.Context) ([]int, error) {
	resp, err := c.get("beststories", c.client.R().SetContext(ctx), BestStoriesEndpoint)
	if err != nil {
		c.logger.Warn("best stories fetch failed",
			zap.Error(err),
			zap.String("state", c.cb.State().String()),
		)

		return nil, fmt.Errorf("fetching best story ids: %w", err)
	}

	var ids []int
	if err := json.Unmarshal(resp.Body(), &ids); err != nil {
		return nil, fmt.Errorf("decoding best story ids: %w", err)
	}

	c.logger.Debug("best stories fetch completed", zap.Int("count", len(ids)))

	return ids, nil
}

// GetStory retrieves a single item. A JSON null body means the item does not
// exist and yields nil, nil.
func (c *Client) GetStory(ctx context.Context, id int) (*domain.Story, error) {
	req := c.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.Itoa(id))

	resp, err := c.get("item", req, ItemEndpoint)
	if err != nil {
		c.logger.Warn("item fetch failed",
			zap.Int("id", id),
			zap.Error(err),
			zap.String("state", c.cb.State().String()),
		)

		return nil, fmt.Errorf("fetching item %d: %w", id, err)
	}

	var item *Item
	if err := json.Unmarshal(resp.Body(), &item); err != nil {
		return nil, fmt.Errorf("decoding item %d: %w", id, err)
	}
	if item == nil {
		c.logger.Debug("item not found upstream", zap.Int("id", id))

		return nil, nil
	}

	return item.ToDomain(), nil
}

// HealthCheck verifies the provider is accessible.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Get(MaxItemEndpoint)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("health check returned status %d", resp.StatusCode())
	}

	return nil
}

// get runs a GET through the circuit breaker and records upstream metrics.
// Calls the breaker rejects report domain.ErrUpstreamUnavailable.
func (c *Client) get(endpoint string, req *resty.Request, path string) (*resty.Response, error) {
	start := time.Now()

	resp, err := c.cb.Execute(func() (*resty.Response, error) {
		r, err := req.Get(path)
		if err != nil {
			return nil, err
		}
		if r.IsError() {
			return nil, fmt.Errorf("%s returned status %d", c.name, r.StatusCode())
		}

		return r, nil
	})

	metrics.UpstreamLatencySeconds.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}

	return resp, err
}
