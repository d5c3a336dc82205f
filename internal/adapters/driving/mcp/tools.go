package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/perch-labs/perch/internal/core/domain"
)

// FetchInput is the input schema for the fetch tool.
type FetchInput struct {
	ID string `json:"id" jsonschema:"post identifier: a slug, a full URL, or a path like /my-post/"`
}

// FetchOutput is the output schema for the fetch tool.
type FetchOutput struct {
	Key         string   `json:"key"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Visibility  string   `json:"visibility"`
	PublishedAt string   `json:"published_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	Content     string   `json:"content"`
}

// ListPostsInput is the input schema for the list_posts tool.
type ListPostsInput struct {
	SortBy string `json:"sort_by,omitempty" jsonschema:"ordering: newest (default) or oldest"`
	Page   int    `json:"page,omitempty" jsonschema:"1-based page number (default 1)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"page size (default 10, max 50)"`
}

// PostInfo is one entry in the list_posts output.
type PostInfo struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Visibility  string   `json:"visibility"`
	PublishedAt string   `json:"published_at,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ListPostsOutput is the output schema for the list_posts tool.
type ListPostsOutput struct {
	Posts []PostInfo `json:"posts"`
	Count int        `json:"count"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to find posts"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default 5, max 20)"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Score       float64  `json:"score"`
	PublishedAt string   `json:"published_at,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SyncInput is the input schema for the sync tool.
type SyncInput struct {
	Scope string `json:"scope,omitempty" jsonschema:"limit the run to one post (slug or URL); empty runs a full reconciliation"`
}

// SyncOutput is the output schema for the sync tool.
type SyncOutput struct {
	Coalesced  bool     `json:"coalesced"`
	Key        string   `json:"key,omitempty"`
	DurationMS int64    `json:"duration_ms"`
	Created    int      `json:"created"`
	Updated    int      `json:"updated"`
	Deleted    int      `json:"deleted"`
	Unchanged  int      `json:"unchanged"`
	Failed     int      `json:"failed"`
	Failures   []string `json:"failures,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "fetch",
		Description: "Fetch the full content of a blog post by slug or URL",
	}, s.handleFetch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_posts",
		Description: "List indexed blog posts with pagination",
	}, s.handleListPosts)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search blog posts by semantic similarity",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync",
		Description: "Reconcile the search index with the blog, fully or for one post",
	}, s.handleSync)
}

// handleFetch handles the fetch tool invocation.
func (s *Server) handleFetch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FetchInput,
) (*mcp.CallToolResult, FetchOutput, error) {
	post, content, err := s.ports.Library.Fetch(ctx, input.ID)
	if err != nil {
		return nil, FetchOutput{}, err
	}

	return nil, FetchOutput{
		Key:         post.Key,
		Slug:        post.Slug,
		Title:       post.Title,
		URL:         post.URL,
		Excerpt:     post.Excerpt,
		Visibility:  string(post.Visibility),
		PublishedAt: timeString(post.PublishedAt),
		UpdatedAt:   timeString(post.UpdatedAt),
		Tags:        post.Tags,
		Authors:     post.Authors,
		Content:     content,
	}, nil
}

// handleListPosts handles the list_posts tool invocation.
func (s *Server) handleListPosts(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListPostsInput,
) (*mcp.CallToolResult, ListPostsOutput, error) {
	opts := domain.ListOptions{
		Page:  input.Page,
		Limit: input.Limit,
		Sort:  domain.SortOrder(input.SortBy),
	}

	entries, err := s.ports.Library.List(ctx, opts)
	if err != nil {
		return nil, ListPostsOutput{}, err
	}

	output := ListPostsOutput{
		Posts: make([]PostInfo, len(entries)),
		Count: len(entries),
	}
	for i := range entries {
		output.Posts[i] = PostInfo{
			Key:         entries[i].Key,
			Title:       entries[i].Title,
			URL:         entries[i].URL,
			Excerpt:     entries[i].Excerpt,
			Visibility:  string(entries[i].Visibility),
			PublishedAt: timeString(entries[i].PublishedAt),
			Tags:        entries[i].Tags,
		}
	}

	return nil, output, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Library.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			Key:         results[i].Key,
			Title:       results[i].Title,
			URL:         results[i].URL,
			Excerpt:     results[i].Excerpt,
			Score:       results[i].Score,
			PublishedAt: timeString(results[i].PublishedAt),
			Tags:        results[i].Tags,
		}
	}

	return nil, output, nil
}

// handleSync handles the sync tool invocation. It blocks until the
// pass completes; a coalesced outcome returns immediately.
func (s *Server) handleSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncInput,
) (*mcp.CallToolResult, SyncOutput, error) {
	if s.ports.Reconciler == nil {
		return nil, SyncOutput{}, ErrNoReconciler
	}

	report, err := s.ports.Reconciler.Trigger(ctx, domain.Trigger{
		Reason: domain.ReasonManual,
		Key:    input.Scope,
	})
	if err != nil {
		return nil, SyncOutput{}, err
	}

	output := SyncOutput{
		Coalesced:  report.Coalesced,
		Key:        report.Key,
		DurationMS: report.Duration.Milliseconds(),
		Created:    report.Created,
		Updated:    report.Updated,
		Deleted:    report.Deleted,
		Unchanged:  report.Unchanged,
		Failed:     report.Failed,
	}
	for _, f := range report.Failures {
		output.Failures = append(output.Failures, f.Key+" ("+string(f.Op)+"): "+f.Message)
	}

	return nil, output, nil
}

// timeString formats a timestamp for tool output. Zero times render
// as empty and are omitted.
func timeString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
