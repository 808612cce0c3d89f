package domain

import "strconv"

// Cache keys used by the best stories pipeline. Every key the service writes
// is built here so the namespace can be audited in one place.
const (
	identifierListKey = "bestStoryIds"
	resultKeyPrefix   = "processed_best_stories_"
	itemKeyPrefix     = "story_"
)

// IdentifierListKey is the key of the cached upstream "best" ranking.
func IdentifierListKey() string {
	return identifierListKey
}

// ResultKey is the key of the sorted result set for n stories.
func ResultKey(n int) string {
	return resultKeyPrefix + strconv.Itoa(n)
}

// ItemKey is the key of a single cached story.
func ItemKey(id int) string {
	return itemKeyPrefix + strconv.Itoa(id)
}
