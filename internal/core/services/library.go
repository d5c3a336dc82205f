package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/perch-labs/perch/internal/core/domain"
	"github.com/perch-labs/perch/internal/core/ports/driven"
	"github.com/perch-labs/perch/internal/core/ports/driving"
	"github.com/perch-labs/perch/internal/logger"
	"github.com/perch-labs/perch/internal/normalise"
	"github.com/perch-labs/perch/internal/retry"
)

var _ driving.Library = (*Library)(nil)

const (
	// DefaultSearchLimit caps similarity search results.
	DefaultSearchLimit = 5

	// MaxSearchLimit is the hard ceiling a caller may request.
	MaxSearchLimit = 20

	// DefaultListLimit is the page size when none is given.
	DefaultListLimit = 10

	// MaxListLimit is the largest accepted page size.
	MaxListLimit = 50
)

// Library is the read side of the system: search and listings come from
// the index store, single-post fetches go straight to the content
// source. It never writes the index.
type Library struct {
	source   driven.ContentSource
	index    driven.IndexStore
	resolver *Resolver
	retryCfg retry.Config
}

// NewLibrary creates the read-side service.
func NewLibrary(source driven.ContentSource, index driven.IndexStore, resolver *Resolver) *Library {
	return &Library{
		source:   source,
		index:    index,
		resolver: resolver,
		retryCfg: retry.DefaultConfig(domain.Retryable),
	}
}

// Search runs a similarity query against the index. The index serves
// whatever it has; a source outage degrades freshness, not search.
func (l *Library) Search(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	logger.Debug("Searching index for %q (limit %d)", query, limit)

	results, err := retry.DoWithResult(ctx, l.retryCfg, func() ([]domain.SearchResult, error) {
		return l.index.Query(ctx, query, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return results, nil
}

// List pages through indexed posts using stored metadata only. No
// source call is made, so listings work while the source is down.
func (l *Library) List(ctx context.Context, opts domain.ListOptions) ([]domain.IndexEntry, error) {
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Sort == "" {
		opts.Sort = domain.SortNewest
	}

	entries, err := retry.DoWithResult(ctx, l.retryCfg, func() ([]domain.IndexEntry, error) {
		return l.index.ListEntries(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list index entries: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if opts.Sort == domain.SortOldest {
			return entries[i].PublishedAt.Before(entries[j].PublishedAt)
		}
		return entries[i].PublishedAt.After(entries[j].PublishedAt)
	})

	start := (opts.Page - 1) * opts.Limit
	if start >= len(entries) {
		return []domain.IndexEntry{}, nil
	}
	end := start + opts.Limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end], nil
}

// Fetch resolves an identifier and reads the post from the source,
// returning the post plus its normalised plain-text body. Fetch always
// serves source-fresh content; only search and listings read the index.
func (l *Library) Fetch(ctx context.Context, identifier string) (*domain.Post, string, error) {
	key, err := l.resolver.Resolve(identifier)
	if err != nil {
		return nil, "", err
	}

	slug := l.resolver.SlugFromKey(key)
	logger.Debug("Fetching post %s (slug %s)", key, slug)

	post, err := retry.DoWithResult(ctx, l.retryCfg, func() (*domain.Post, error) {
		return l.source.GetPostBySlug(ctx, slug)
	})
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", key, err)
	}

	post.Key = key
	return post, normalise.PostText(post.HTML, post.Plaintext), nil
}
