package handler

import (
	"context"

	"best-stories-service/internal/app/service"
	"best-stories-service/internal/domain"
)

// StoriesService is the read side used by the API and dashboard handlers.
// Implemented by *service.BestStoriesService.
type StoriesService interface {
	GetBestStories(ctx context.Context, n int) ([]domain.StoryItem, error)
}

// CacheAdmin is the maintenance side used by the admin handler.
// Implemented by *service.RefreshService.
type CacheAdmin interface {
	Refresh(ctx context.Context, counts []int) []service.RefreshResult
	Clear(ctx context.Context) error
}
