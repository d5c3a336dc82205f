package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/perch-labs/perch/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Perch resources.
	uriScheme = "perch://"

	// postsResourceLimit caps how many entries the posts listing
	// resource returns.
	postsResourceLimit = 50
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource listing indexed posts.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "posts",
		Name:        "posts",
		Description: "Indexed blog posts, newest first",
		MIMEType:    "application/json",
	}, s.handlePostsResource)

	// Template for post content.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "posts/{slug}",
		Name:        "post-content",
		Description: "Plain-text content of a single post",
		MIMEType:    "text/plain",
	}, s.handlePostContentResource)
}

// handlePostsResource returns the indexed post listing.
func (s *Server) handlePostsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	entries, err := s.ports.Library.List(ctx, domain.ListOptions{
		Page:  1,
		Limit: postsResourceLimit,
		Sort:  domain.SortNewest,
	})
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	infos := make([]PostInfo, len(entries))
	for i := range entries {
		infos[i] = PostInfo{
			Key:         entries[i].Key,
			Title:       entries[i].Title,
			URL:         entries[i].URL,
			Excerpt:     entries[i].Excerpt,
			Visibility:  string(entries[i].Visibility),
			PublishedAt: timeString(entries[i].PublishedAt),
			Tags:        entries[i].Tags,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling posts: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handlePostContentResource returns the content of a single post.
func (s *Server) handlePostContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	slug := extractSlug(req.Params.URI)
	if slug == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	post, content, err := s.ports.Library.Fetch(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnresolvableIdentifier) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("fetching post: %w", err)
	}

	text := content
	if post.Title != "" {
		text = post.Title + "\n\n" + content
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		}},
	}, nil
}

// extractSlug extracts the slug from a URI like perch://posts/{slug}.
func extractSlug(uri string) string {
	const prefix = uriScheme + "posts/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	slug := strings.TrimPrefix(uri, prefix)
	if strings.Contains(slug, "/") {
		return ""
	}
	return slug
}
