package domain

import "time"

// SearchResult represents a single similarity search hit.
type SearchResult struct {
	// Key is the canonical key of the matched post.
	Key string

	// Title is the post title.
	Title string

	// URL is the canonical public URL.
	URL string

	// Excerpt is the matched chunk text, used as the result snippet.
	Excerpt string

	// Score is the relevance score in [0, 1], higher is better.
	Score float64

	// PublishedAt is the post's publish timestamp.
	PublishedAt time.Time

	// Visibility is the stored visibility.
	Visibility Visibility

	// Tags are the post's tag names.
	Tags []string
}

// SortOrder controls listing order.
type SortOrder string

const (
	// SortNewest lists most recently published first.
	SortNewest SortOrder = "newest"

	// SortOldest lists oldest first.
	SortOldest SortOrder = "oldest"
)

// ListOptions configures a post listing.
type ListOptions struct {
	// Page is the 1-based page number.
	Page int

	// Limit is the page size.
	Limit int

	// Sort is the ordering.
	Sort SortOrder
}
