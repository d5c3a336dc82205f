package chroma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perch-labs/perch/internal/core/domain"
)

// fakeEmbedder returns fixed-size vectors without calling any API.
type fakeEmbedder struct {
	calls int
	fail  bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

func (f *fakeEmbedder) ModelName() string { return "fake-embedding" }

// chromaHandler fakes the minimal set of collection endpoints.
type chromaHandler struct {
	mu sync.Mutex

	upserts []map[string]any
	deletes []map[string]any

	getResponses   []string
	queryResponse  string
	failStatusCode int
}

func (h *chromaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.failStatusCode != 0 {
		w.WriteHeader(h.failStatusCode)
		fmt.Fprint(w, `{"error": "InternalError", "message": "boom"}`)
		return
	}

	var payload map[string]any
	_ = json.NewDecoder(r.Body).Decode(&payload)

	switch {
	case strings.HasSuffix(r.URL.Path, "/collections"):
		fmt.Fprint(w, `{"id": "col-123", "name": "posts"}`)
	case strings.HasSuffix(r.URL.Path, "/upsert"):
		h.upserts = append(h.upserts, payload)
		fmt.Fprint(w, `{}`)
	case strings.HasSuffix(r.URL.Path, "/delete"):
		h.deletes = append(h.deletes, payload)
		fmt.Fprint(w, `[]`)
	case strings.HasSuffix(r.URL.Path, "/get"):
		if len(h.getResponses) == 0 {
			fmt.Fprint(w, `{"ids": [], "metadatas": []}`)
			return
		}
		next := h.getResponses[0]
		h.getResponses = h.getResponses[1:]
		fmt.Fprint(w, next)
	case strings.HasSuffix(r.URL.Path, "/query"):
		fmt.Fprint(w, h.queryResponse)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestStore(t *testing.T, handler *chromaHandler) (*Store, *fakeEmbedder) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	embedder := &fakeEmbedder{}
	store, err := NewStore(Config{BaseURL: server.URL}, embedder)
	require.NoError(t, err)
	return store, embedder
}

func testRecord(key string) domain.IndexRecord {
	return domain.IndexRecord{
		Key:         key,
		Title:       "A Post",
		URL:         key + "/",
		Excerpt:     "about things",
		Chunks:      []string{"first chunk", "second chunk"},
		Visibility:  domain.VisibilityPublic,
		PublishedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		Tags:        []string{"engineering", "go"},
		Authors:     []string{"Jo Bloggs"},
	}
}

func TestStore_UpsertWritesChunkDocuments(t *testing.T) {
	handler := &chromaHandler{}
	store, embedder := newTestStore(t, handler)

	err := store.Upsert(context.Background(), testRecord("https://blog.example.com/a"))
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.calls)

	// Stale chunks are cleared before the new set is written.
	require.Len(t, handler.deletes, 1)
	where := handler.deletes[0]["where"].(map[string]any)
	assert.Equal(t, "https://blog.example.com/a", where["key"])

	require.Len(t, handler.upserts, 1)
	upsert := handler.upserts[0]

	ids := upsert["ids"].([]any)
	require.Len(t, ids, 2)
	assert.Equal(t, "https://blog.example.com/a#0", ids[0])
	assert.Equal(t, "https://blog.example.com/a#1", ids[1])

	metadatas := upsert["metadatas"].([]any)
	first := metadatas[0].(map[string]any)
	assert.Equal(t, "https://blog.example.com/a", first["key"])
	assert.Equal(t, "A Post", first["title"])
	assert.Equal(t, "engineering,go", first["tags"])
	assert.Equal(t, float64(0), first["chunk_index"])
	assert.Equal(t, float64(2), first["total_chunks"])
}

func TestStore_UpsertRejectsEmptyRecord(t *testing.T) {
	store, _ := newTestStore(t, &chromaHandler{})

	err := store.Upsert(context.Background(), domain.IndexRecord{Key: "https://blog.example.com/a"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_UpsertEmbeddingFailure(t *testing.T) {
	handler := &chromaHandler{}
	store, embedder := newTestStore(t, handler)
	embedder.fail = true

	err := store.Upsert(context.Background(), testRecord("https://blog.example.com/a"))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Empty(t, handler.upserts)
}

func TestStore_DeleteByKey(t *testing.T) {
	handler := &chromaHandler{}
	store, _ := newTestStore(t, handler)

	err := store.Delete(context.Background(), "https://blog.example.com/gone")
	require.NoError(t, err)

	require.Len(t, handler.deletes, 1)
	where := handler.deletes[0]["where"].(map[string]any)
	assert.Equal(t, "https://blog.example.com/gone", where["key"])
}

func TestStore_ListEntriesAggregatesChunks(t *testing.T) {
	handler := &chromaHandler{
		getResponses: []string{`{
			"ids": ["https://blog.example.com/a#0", "https://blog.example.com/a#1", "https://blog.example.com/b#0"],
			"metadatas": [
				{"key": "https://blog.example.com/a", "title": "Post A", "url": "https://blog.example.com/a/", "tags": "go,testing", "updated_at": "2025-06-02T10:00:00Z"},
				{"key": "https://blog.example.com/a", "title": "Post A", "url": "https://blog.example.com/a/", "tags": "go,testing", "updated_at": "2025-06-02T10:00:00Z"},
				{"key": "https://blog.example.com/b", "title": "Post B", "url": "https://blog.example.com/b/", "visibility": "members"}
			]
		}`},
	}
	store, _ := newTestStore(t, handler)

	entries, err := store.ListEntries(context.Background())
	require.NoError(t, err)

	require.Len(t, entries, 2, "chunks of the same post collapse into one entry")
	assert.Equal(t, "https://blog.example.com/a", entries[0].Key)
	assert.Equal(t, []string{"go", "testing"}, entries[0].Tags)
	assert.Equal(t, time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), entries[0].UpdatedAt)
	assert.Equal(t, domain.VisibilityMembers, entries[1].Visibility)
}

func TestStore_QueryDeduplicatesPerPost(t *testing.T) {
	handler := &chromaHandler{
		queryResponse: `{
			"ids": [["https://blog.example.com/a#1", "https://blog.example.com/a#0", "https://blog.example.com/b#0"]],
			"documents": [["best matching chunk", "another chunk", "post b chunk"]],
			"metadatas": [[
				{"key": "https://blog.example.com/a", "title": "Post A", "url": "https://blog.example.com/a/"},
				{"key": "https://blog.example.com/a", "title": "Post A", "url": "https://blog.example.com/a/"},
				{"key": "https://blog.example.com/b", "title": "Post B", "url": "https://blog.example.com/b/"}
			]],
			"distances": [[0.2, 0.5, 0.8]]
		}`,
	}
	store, _ := newTestStore(t, handler)

	results, err := store.Query(context.Background(), "interesting topic", 5)
	require.NoError(t, err)

	require.Len(t, results, 2, "each post appears once with its best chunk")
	assert.Equal(t, "Post A", results[0].Title)
	assert.Equal(t, "best matching chunk", results[0].Excerpt)
	assert.InDelta(t, 0.9, results[0].Score, 0.001)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestStore_QueryExcerptKeepsRuneBoundary(t *testing.T) {
	// 1 + 200*2 bytes, so the excerpt cap lands between the two bytes
	// of a rune.
	long := "a" + strings.Repeat("é", 200)
	handler := &chromaHandler{
		queryResponse: fmt.Sprintf(`{
			"ids": [["https://blog.example.com/a#0"]],
			"documents": [[%q]],
			"metadatas": [[{"key": "https://blog.example.com/a", "title": "Post A", "url": "https://blog.example.com/a/"}]],
			"distances": [[0.2]]
		}`, long),
	}
	store, _ := newTestStore(t, handler)

	results, err := store.Query(context.Background(), "anything", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	excerpt := results[0].Excerpt
	assert.LessOrEqual(t, len(excerpt), excerptLimit)
	assert.True(t, utf8.ValidString(excerpt), "excerpt must not end mid-rune")
	assert.Equal(t, "a"+strings.Repeat("é", 149), excerpt)
}

func TestStore_QueryEmptyIndex(t *testing.T) {
	handler := &chromaHandler{
		queryResponse: `{"ids": [[]], "documents": [[]], "metadatas": [[]], "distances": [[]]}`,
	}
	store, _ := newTestStore(t, handler)

	results, err := store.Query(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_ServerErrorIsRetryable(t *testing.T) {
	handler := &chromaHandler{failStatusCode: http.StatusServiceUnavailable}
	store, _ := newTestStore(t, handler)

	err := store.Delete(context.Background(), "https://blog.example.com/a")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.True(t, domain.Retryable(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestNewStore_InvalidConfig(t *testing.T) {
	_, err := NewStore(Config{}, &fakeEmbedder{})
	assert.Error(t, err)

	_, err = NewStore(Config{BaseURL: "http://localhost:8000"}, nil)
	assert.Error(t, err)
}
