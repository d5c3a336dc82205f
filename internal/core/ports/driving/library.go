package driving

import (
	"context"

	"github.com/perch-labs/perch/internal/core/domain"
)

// Library is the read side exposed to the tool-call surface. It reads
// from the index store and, for single-post fetches, directly from the
// content source; it never participates in reconciliation.
type Library interface {
	// Search runs a similarity query against the index. Results may be
	// stale while the source is unreachable; search degrades rather
	// than failing.
	Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)

	// List pages through indexed posts using stored metadata only.
	List(ctx context.Context, opts domain.ListOptions) ([]domain.IndexEntry, error)

	// Fetch resolves any accepted identifier to the canonical key and
	// reads the post from the source. Returns the post together with
	// its normalised plain-text body.
	Fetch(ctx context.Context, identifier string) (*domain.Post, string, error)
}
