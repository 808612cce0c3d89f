// Package domain contains the core entities and ports of the service.
// This package has no external dependencies (only stdlib).
package domain

import (
	"time"
)

// TimeLayout is the wire format of StoryItem.Time (ISO-8601 with zone offset).
const TimeLayout = "2006-01-02T15:04:05-07:00"

// Story is an item as returned by the Hacker News API.
type Story struct {
	ID          int    `json:"id"`
	Type        string `json:"type,omitempty"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	By          string `json:"by"`
	Time        int64  `json:"time"` // seconds since epoch
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
}

// PostedAt returns the post time in UTC.
func (s *Story) PostedAt() time.Time {
	return time.Unix(s.Time, 0).UTC()
}

// ToItem maps the upstream story to its transport-facing form.
func (s *Story) ToItem() StoryItem {
	return StoryItem{
		Title:        s.Title,
		URL:          s.URL,
		PostedBy:     s.By,
		Time:         s.PostedAt().Format(TimeLayout),
		Score:        s.Score,
		CommentCount: s.Descendants,
	}
}

// StoryItem is the enriched record returned to API clients.
type StoryItem struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	PostedBy     string `json:"by"`
	Time         string `json:"time"`
	Score        int    `json:"score"`
	CommentCount int    `json:"descendants"`
}
