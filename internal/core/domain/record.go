package domain

import "time"

// IndexRecord is the representation of a post persisted in the vector
// store. A record with key K exists iff the corresponding post is
// currently published at the source.
type IndexRecord struct {
	// Key is the canonical key.
	Key string

	// Title is the post title.
	Title string

	// URL is the canonical public URL.
	URL string

	// Excerpt is a short summary, stored for list/search responses.
	Excerpt string

	// Chunks is the searchable text, split into embedding-sized pieces.
	// Embedding happens inside the index store adapter; the core never
	// sees vectors.
	Chunks []string

	// Visibility is stored as metadata, not an indexing filter.
	Visibility Visibility

	// PublishedAt is when the post went live.
	PublishedAt time.Time

	// UpdatedAt is the source timestamp the record was indexed at.
	// Compared against the source's updated_at to decide staleness.
	UpdatedAt time.Time

	// Tags are the post's tag names.
	Tags []string

	// Authors are the post's author names.
	Authors []string
}

// IndexEntry is what the index store reports for one currently-indexed
// post: its key plus the stored metadata, without chunk text.
type IndexEntry struct {
	// Key is the canonical key.
	Key string

	// Title is the stored post title.
	Title string

	// URL is the stored canonical URL.
	URL string

	// Excerpt is the stored summary.
	Excerpt string

	// Visibility is the stored visibility.
	Visibility Visibility

	// PublishedAt is the stored publish timestamp.
	PublishedAt time.Time

	// UpdatedAt is the source timestamp the record was indexed at.
	UpdatedAt time.Time

	// Tags are the stored tag names.
	Tags []string

	// Authors are the stored author names.
	Authors []string
}
