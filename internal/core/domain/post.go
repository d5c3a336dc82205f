package domain

import "time"

// Visibility describes who can read a post on the source.
// It is stored as index metadata and never used to exclude a post
// from indexing; callers filter on it at the tool boundary.
type Visibility string

const (
	// VisibilityPublic means the post is readable by anyone.
	VisibilityPublic Visibility = "public"

	// VisibilityMembers means the post requires a (free) membership.
	VisibilityMembers Visibility = "members"

	// VisibilityPaid means the post requires a paid subscription.
	VisibilityPaid Visibility = "paid"
)

// Post is one published content entry fetched from the source.
type Post struct {
	// ID is the source-native identifier.
	ID string

	// Slug is the source-native URL slug. Slugs can be renamed;
	// Key stays stable because it derives from the canonical URL.
	Slug string

	// URL is the canonical public URL of the post.
	URL string

	// Key is the canonical key derived from URL. Unique across the
	// index and used everywhere internally.
	Key string

	// Title is the post title.
	Title string

	// HTML is the rendered post body.
	HTML string

	// Plaintext is the plain-text rendition, when the source provides one.
	Plaintext string

	// Excerpt is a short summary of the post.
	Excerpt string

	// Visibility is who may read the post.
	Visibility Visibility

	// PublishedAt is when the post went live. Zero if unknown.
	PublishedAt time.Time

	// UpdatedAt is when the post was last modified at the source.
	// Zero means unknown; the reconciler then re-indexes unconditionally.
	UpdatedAt time.Time

	// Tags are the post's tag names.
	Tags []string

	// Authors are the post's author names.
	Authors []string
}

// PostRef is a lightweight reference to a post, without its body.
// The reconciler fetches the full reference listing to detect deletions,
// which produce no "since" signal on incremental polls.
type PostRef struct {
	// ID is the source-native identifier.
	ID string

	// Slug is the source-native URL slug.
	Slug string

	// URL is the canonical public URL.
	URL string
}
