package hackernews

import "best-stories-service/internal/domain"

// Item is the JSON object served by item/{id}.json.
type Item struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Kids        []int  `json:"kids,omitempty"`
	Deleted     bool   `json:"deleted,omitempty"`
	Dead        bool   `json:"dead,omitempty"`
}

// ToDomain converts Item to domain.Story.
func (i *Item) ToDomain() *domain.Story {
	return &domain.Story{
		ID:          i.ID,
		Type:        i.Type,
		Title:       i.Title,
		URL:         i.URL,
		By:          i.By,
		Time:        i.Time,
		Score:       i.Score,
		Descendants: i.Descendants,
	}
}
