package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch-labs/perch/internal/core/domain"
)

func TestExtractSlug(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{
			name:     "valid post URI",
			uri:      "perch://posts/hello-world",
			expected: "hello-world",
		},
		{
			name:     "invalid scheme",
			uri:      "file://posts/hello-world",
			expected: "",
		},
		{
			name:     "nested path",
			uri:      "perch://posts/a/b",
			expected: "",
		},
		{
			name:     "empty URI",
			uri:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractSlug(tt.uri))
		})
	}
}

func TestServer_handlePostsResource(t *testing.T) {
	ctx := context.Background()

	library := &mockLibrary{
		entries: []domain.IndexEntry{
			{
				Key:         "https://blog.example.com/hello",
				Title:       "Hello",
				URL:         "https://blog.example.com/hello/",
				Excerpt:     "greeting",
				Visibility:  domain.VisibilityPublic,
				PublishedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
			},
		},
	}
	server := newTestServer(t, library, nil)

	req := &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: "perch://posts"},
	}
	result, err := server.handlePostsResource(ctx, req)

	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var infos []PostInfo
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "Hello", infos[0].Title)
	assert.Equal(t, "2025-03-01T09:00:00Z", infos[0].PublishedAt)

	assert.Equal(t, domain.SortNewest, library.lastOpts.Sort)
	assert.Equal(t, postsResourceLimit, library.lastOpts.Limit)
}

func TestServer_handlePostContentResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns title and content", func(t *testing.T) {
		library := &mockLibrary{
			post:    &domain.Post{Slug: "hello", Title: "Hello"},
			content: "Body text.",
		}
		server := newTestServer(t, library, nil)

		req := &mcp.ReadResourceRequest{
			Params: &mcp.ReadResourceParams{URI: "perch://posts/hello"},
		}
		result, err := server.handlePostContentResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "text/plain", result.Contents[0].MIMEType)
		assert.Equal(t, "Hello\n\nBody text.", result.Contents[0].Text)
		assert.Equal(t, "hello", library.lastID)
	})

	t.Run("unknown slug is resource not found", func(t *testing.T) {
		library := &mockLibrary{err: domain.ErrNotFound}
		server := newTestServer(t, library, nil)

		req := &mcp.ReadResourceRequest{
			Params: &mcp.ReadResourceParams{URI: "perch://posts/gone"},
		}
		_, err := server.handlePostContentResource(ctx, req)

		require.Error(t, err)
	})

	t.Run("malformed URI is resource not found", func(t *testing.T) {
		server := newTestServer(t, &mockLibrary{}, nil)

		req := &mcp.ReadResourceRequest{
			Params: &mcp.ReadResourceParams{URI: "perch://posts/a/b"},
		}
		_, err := server.handlePostContentResource(ctx, req)

		require.Error(t, err)
	})
}
