// Package dto provides Data Transfer Objects for HTTP requests and responses.
package dto

// BestStoriesRequest represents the query parameters of the best stories endpoint.
type BestStoriesRequest struct {
	N int `query:"n" json:"n" validate:"required,gt=0"`
}

// RefreshRequest represents the optional body of a manual cache refresh.
// An empty Counts refreshes the configured defaults.
type RefreshRequest struct {
	Counts []int `json:"counts" validate:"omitempty,max=50,dive,gt=0"`
}
