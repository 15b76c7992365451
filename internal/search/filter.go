package search

import (
	"strings"

	"github.com/DeafMist/blog-search/backend/internal/models"
)

// MaxResults caps how many matches a single query returns.
const MaxResults = 20

// Normalize case-folds the raw input of the search box.
func Normalize(raw string) string {
	return strings.ToLower(raw)
}

// Filter returns posts whose title or description contains query, in index
// order, truncated to limit. The query is normalized first; an empty query
// selects nothing. The limit is clamped to (0, MaxResults].
func Filter(posts []models.Post, query string, limit int) []models.Post {
	q := Normalize(query)
	if q == "" {
		return nil
	}
	if limit <= 0 || limit > MaxResults {
		limit = MaxResults
	}

	hits := make([]models.Post, 0, min(limit, len(posts)))
	for _, p := range posts {
		if !Matches(p, q) {
			continue
		}
		hits = append(hits, p)
		if len(hits) == limit {
			break
		}
	}
	return hits
}

// Matches reports whether a normalized query occurs in the post title or description.
func Matches(p models.Post, normalized string) bool {
	return strings.Contains(strings.ToLower(p.Title), normalized) ||
		strings.Contains(strings.ToLower(p.Description), normalized)
}
