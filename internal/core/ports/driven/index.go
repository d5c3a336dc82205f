package driven

import (
	"context"

	"github.com/perch-labs/perch/internal/core/domain"
)

// IndexStore wraps the remote vector collection. All operations are
// idempotent so the reconciler can retry them blindly.
type IndexStore interface {
	// Upsert writes a record, replacing any previous chunks stored
	// under the same key. Re-upserting identical content is a no-op
	// as far as observable results go.
	Upsert(ctx context.Context, record domain.IndexRecord) error

	// Delete removes a record. Succeeds when the key is absent.
	Delete(ctx context.Context, key string) error

	// ListEntries returns one entry per currently-indexed post, with
	// the stored metadata used for staleness checks and listings.
	ListEntries(ctx context.Context) ([]domain.IndexEntry, error)

	// Query runs a similarity search over the collection.
	Query(ctx context.Context, text string, limit int) ([]domain.SearchResult, error)
}
