package ghost

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/perch-labs/perch/internal/core/domain"
	"github.com/perch-labs/perch/internal/core/ports/driven"
	"github.com/perch-labs/perch/internal/logger"
)

var _ driven.ContentSource = (*Source)(nil)

// publishedFilter restricts listings to live posts; drafts and
// scheduled posts never reach the index.
const publishedFilter = "status:published"

// Source is the Ghost Admin API content source. Stateless between
// calls: pagination happens inside each listing call.
type Source struct {
	config  Config
	http    *http.Client
	minter  *tokenMinter
	limiter *rate.Limiter
}

// NewSource creates a content source for the configured Ghost site.
func NewSource(config Config) (*Source, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	minter, err := newTokenMinter(config.AdminAPIKey)
	if err != nil {
		return nil, err
	}

	return &Source{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		minter:  minter,
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
	}, nil
}

// ListPosts returns published posts modified at or after since,
// paging through the Admin API until exhausted.
func (s *Source) ListPosts(ctx context.Context, since time.Time) ([]domain.Post, error) {
	filter := publishedFilter
	if !since.IsZero() {
		// Ghost NQL datetime filters use a space-separated UTC format.
		filter += fmt.Sprintf("+updated_at:>='%s'", since.UTC().Format("2006-01-02 15:04:05"))
	}

	params := url.Values{
		"include": {"tags,authors"},
		"formats": {"html,plaintext"},
		"filter":  {filter},
	}

	posts, err := s.listAllPages(ctx, params)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.toDomain())
	}

	logger.Debug("Listed %d published posts from Ghost (filter %q)", len(out), filter)
	return out, nil
}

// ListPostRefs returns id/slug/url for every published post. Bodies are
// excluded so the full listing stays cheap even on large sites.
func (s *Source) ListPostRefs(ctx context.Context) ([]domain.PostRef, error) {
	params := url.Values{
		"fields": {"id,slug,url"},
		"filter": {publishedFilter},
	}

	posts, err := s.listAllPages(ctx, params)
	if err != nil {
		return nil, err
	}

	refs := make([]domain.PostRef, 0, len(posts))
	for _, p := range posts {
		refs = append(refs, domain.PostRef{ID: p.ID, Slug: p.Slug, URL: p.URL})
	}
	return refs, nil
}

// GetPostBySlug fetches one post. Returns domain.ErrNotFound for
// missing or unpublished slugs.
func (s *Source) GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	params := url.Values{
		"include": {"tags,authors"},
		"formats": {"html,plaintext"},
	}

	endpoint := fmt.Sprintf("%s/ghost/api/admin/posts/slug/%s/", s.config.APIURL, url.PathEscape(slug))

	var payload postsResponse
	if err := s.get(ctx, endpoint, params, &payload); err != nil {
		return nil, err
	}

	if len(payload.Posts) == 0 {
		return nil, fmt.Errorf("post %q: %w", slug, domain.ErrNotFound)
	}

	// The slug endpoint returns drafts too; only published posts exist
	// as far as callers are concerned.
	p := payload.Posts[0]
	if p.Status != "" && p.Status != "published" {
		return nil, fmt.Errorf("post %q is %s: %w", slug, p.Status, domain.ErrNotFound)
	}

	post := p.toDomain()
	return &post, nil
}

// listAllPages walks the posts listing until the pagination metadata
// reports the last page.
func (s *Source) listAllPages(ctx context.Context, params url.Values) ([]ghostPost, error) {
	endpoint := s.config.APIURL + "/ghost/api/admin/posts/"

	var all []ghostPost
	page := 1

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pageParams := url.Values{}
		for k, v := range params {
			pageParams[k] = v
		}
		pageParams.Set("limit", fmt.Sprintf("%d", s.config.PageSize))
		pageParams.Set("page", fmt.Sprintf("%d", page))

		var payload postsResponse
		if err := s.get(ctx, endpoint, pageParams, &payload); err != nil {
			return nil, err
		}

		all = append(all, payload.Posts...)

		if page >= payload.Meta.Pagination.Pages {
			break
		}
		page++
	}

	return all, nil
}

// get performs one authenticated GET against the Admin API.
func (s *Source) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	token, err := s.minter.Token()
	if err != nil {
		return err
	}

	requestURL := endpoint
	if encoded := params.Encode(); encoded != "" {
		requestURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("ghost request failed: %w: %v", domain.ErrSourceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.apiError(resp, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %v", domain.ErrSourceUnavailable, err)
	}
	return nil
}

// apiError decodes a Ghost error body into an APIError.
func (s *Source) apiError(resp *http.Response, endpoint string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := http.StatusText(resp.StatusCode)
	var ghostErr errorResponse
	if jsonErr := json.Unmarshal(body, &ghostErr); jsonErr == nil && len(ghostErr.Errors) > 0 {
		message = ghostErr.Errors[0].Message
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		URL:        endpoint,
	}
}
