package driven

import (
	"context"
	"time"

	"github.com/perch-labs/perch/internal/core/domain"
)

// ContentSource fetches the authoritative set of published posts from
// the remote content API. Implementations are stateless request/response
// wrappers: pagination happens internally and no state survives a call.
type ContentSource interface {
	// ListPosts returns the published posts modified at or after since.
	// A zero since returns the full published set.
	ListPosts(ctx context.Context, since time.Time) ([]domain.Post, error)

	// ListPostRefs returns id/slug/url references for every currently
	// published post, without bodies. Deletions produce no "since"
	// signal, so the reconciler always fetches the full reference
	// listing to detect orphans.
	ListPostRefs(ctx context.Context) ([]domain.PostRef, error)

	// GetPostBySlug fetches one post. Returns domain.ErrNotFound when
	// the slug does not exist or the post is no longer published.
	GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error)
}
