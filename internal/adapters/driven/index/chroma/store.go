package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/perch-labs/perch/internal/core/domain"
	"github.com/perch-labs/perch/internal/core/ports/driven"
	"github.com/perch-labs/perch/internal/logger"
)

var _ driven.IndexStore = (*Store)(nil)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultCollection is the collection name when none is configured.
	DefaultCollection = "posts"

	// listPageSize is the page size when walking the collection;
	// Chroma Cloud caps get() at 300 items per request.
	listPageSize = 300

	// queryOverfetch multiplies the requested result count so that
	// per-post deduplication still fills the page.
	queryOverfetch = 3

	// excerptLimit caps snippet length in search results, in bytes.
	excerptLimit = 300
)

// Config holds the connection settings for a Chroma instance.
type Config struct {
	// BaseURL is the Chroma server URL, e.g. "http://localhost:8000"
	// or the Chroma Cloud endpoint.
	BaseURL string

	// APIKey authenticates against Chroma Cloud. Empty for local servers.
	APIKey string

	// Tenant and Database scope the collection. Both default to
	// "default_tenant"/"default_database" for local servers.
	Tenant   string
	Database string

	// Collection is the collection name (default: "posts").
	Collection string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration
}

// Validate checks required fields and applies defaults.
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return fmt.Errorf("chroma: base url is required")
	}
	if c.Tenant == "" {
		c.Tenant = "default_tenant"
	}
	if c.Database == "" {
		c.Database = "default_database"
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

// Store is a Chroma-backed index store. Embeddings are computed here,
// at the boundary: callers hand over text and never see vectors.
type Store struct {
	config    Config
	http      *http.Client
	embedding driven.EmbeddingService

	mu           sync.Mutex
	collectionID string
}

// NewStore creates an index store over the configured Chroma collection.
// The collection is created lazily on first use.
func NewStore(config Config, embedding driven.EmbeddingService) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if embedding == nil {
		return nil, fmt.Errorf("chroma: embedding service is required")
	}

	return &Store{
		config:    config,
		http:      &http.Client{Timeout: config.Timeout},
		embedding: embedding,
	}, nil
}

// Upsert replaces all chunks stored under the record's key. The stale
// chunks are deleted first so a shrinking post leaves no tail behind.
func (s *Store) Upsert(ctx context.Context, record domain.IndexRecord) error {
	if len(record.Chunks) == 0 {
		return fmt.Errorf("chroma: record %q has no chunks: %w", record.Key, domain.ErrInvalidInput)
	}

	collection, err := s.ensureCollection(ctx)
	if err != nil {
		return err
	}

	if err := s.deleteByKey(ctx, collection, record.Key); err != nil {
		return err
	}

	embeddings, err := s.embedding.EmbedBatch(ctx, record.Chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w: %v", domain.ErrStoreUnavailable, err)
	}
	if len(embeddings) != len(record.Chunks) {
		return fmt.Errorf("chroma: got %d embeddings for %d chunks: %w",
			len(embeddings), len(record.Chunks), domain.ErrStoreRejected)
	}

	total := len(record.Chunks)
	ids := make([]string, total)
	metadatas := make([]map[string]any, total)
	for i := range record.Chunks {
		ids[i] = chunkID(record.Key, i)
		metadatas[i] = chunkMetadata(record, i, total)
	}

	payload := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"documents":  record.Chunks,
		"metadatas":  metadatas,
	}

	if err := s.post(ctx, s.collectionPath(collection, "upsert"), payload, nil); err != nil {
		return err
	}

	logger.Debug("Upserted %d chunks for %s", total, record.Key)
	return nil
}

// Delete removes every chunk stored under key. Succeeds when the key
// is absent.
func (s *Store) Delete(ctx context.Context, key string) error {
	collection, err := s.ensureCollection(ctx)
	if err != nil {
		return err
	}
	return s.deleteByKey(ctx, collection, key)
}

// ListEntries walks the collection and returns one entry per indexed
// post, reading post-level metadata off the first chunk seen.
func (s *Store) ListEntries(ctx context.Context) ([]domain.IndexEntry, error) {
	collection, err := s.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]domain.IndexEntry)
	offset := 0

	for {
		payload := map[string]any{
			"limit":   listPageSize,
			"offset":  offset,
			"include": []string{"metadatas"},
		}

		var page getResponse
		if err := s.post(ctx, s.collectionPath(collection, "get"), payload, &page); err != nil {
			return nil, err
		}
		if len(page.IDs) == 0 {
			break
		}

		for _, metadata := range page.Metadatas {
			entry := entryFromMetadata(metadata)
			if entry.Key == "" {
				continue
			}
			if _, ok := seen[entry.Key]; !ok {
				seen[entry.Key] = entry
			}
		}

		if len(page.IDs) < listPageSize {
			break
		}
		offset += listPageSize
	}

	entries := make([]domain.IndexEntry, 0, len(seen))
	for _, entry := range seen {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Query embeds the text and runs a similarity search, deduplicating
// chunks so each post appears once with its best-matching chunk.
func (s *Store) Query(ctx context.Context, text string, limit int) ([]domain.SearchResult, error) {
	collection, err := s.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedding.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %v", domain.ErrStoreUnavailable, err)
	}

	payload := map[string]any{
		"query_embeddings": [][]float32{vector},
		"n_results":        limit * queryOverfetch,
		"include":          []string{"documents", "metadatas", "distances"},
	}

	var resp queryResponse
	if err := s.post(ctx, s.collectionPath(collection, "query"), payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 || len(resp.IDs[0]) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool)
	results := make([]domain.SearchResult, 0, limit)

	for i := range resp.IDs[0] {
		metadata := fieldAt(resp.Metadatas, i)
		entry := entryFromMetadata(metadata)
		if entry.Key == "" || seen[entry.Key] {
			continue
		}
		seen[entry.Key] = true

		result := domain.SearchResult{
			Key:         entry.Key,
			Title:       entry.Title,
			URL:         entry.URL,
			Excerpt:     excerptAt(resp.Documents, i),
			Score:       scoreFromDistance(distanceAt(resp.Distances, i)),
			PublishedAt: entry.PublishedAt,
			Visibility:  entry.Visibility,
			Tags:        entry.Tags,
		}
		results = append(results, result)

		if len(results) >= limit {
			break
		}
	}

	return results, nil
}

// ensureCollection resolves the collection ID, creating the collection
// on first use.
func (s *Store) ensureCollection(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collectionID != "" {
		return s.collectionID, nil
	}

	payload := map[string]any{
		"name":          s.config.Collection,
		"get_or_create": true,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
	}

	var resp struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/api/v2/tenants/%s/databases/%s/collections", s.config.Tenant, s.config.Database)
	if err := s.post(ctx, path, payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("chroma: collection response missing id: %w", domain.ErrStoreRejected)
	}

	logger.Debug("Using Chroma collection %s (%s)", s.config.Collection, resp.ID)
	s.collectionID = resp.ID
	return resp.ID, nil
}

func (s *Store) deleteByKey(ctx context.Context, collection, key string) error {
	payload := map[string]any{
		"where": map[string]any{"key": key},
	}
	return s.post(ctx, s.collectionPath(collection, "delete"), payload, nil)
}

func (s *Store) collectionPath(collection, op string) string {
	return fmt.Sprintf("/api/v2/tenants/%s/databases/%s/collections/%s/%s",
		s.config.Tenant, s.config.Database, collection, op)
}

// post performs one JSON request against the Chroma API.
func (s *Store) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("X-Chroma-Token", s.config.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("chroma request failed: %w: %v", domain.ErrStoreUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		message := http.StatusText(resp.StatusCode)
		var chromaErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(raw, &chromaErr); jsonErr == nil {
			if chromaErr.Message != "" {
				message = chromaErr.Message
			} else if chromaErr.Error != "" {
				message = chromaErr.Error
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message, URL: path}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// getResponse is the wire shape of a collection get.
type getResponse struct {
	IDs       []string         `json:"ids"`
	Metadatas []map[string]any `json:"metadatas"`
}

// queryResponse is the wire shape of a similarity query. Results come
// back grouped per query embedding; we always send exactly one.
type queryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

func chunkID(key string, index int) string {
	return fmt.Sprintf("%s#%d", key, index)
}

// chunkMetadata flattens the record onto one chunk document. Chroma
// metadata values must be scalars, so lists are comma-joined.
func chunkMetadata(record domain.IndexRecord, index, total int) map[string]any {
	metadata := map[string]any{
		"key":          record.Key,
		"title":        record.Title,
		"url":          record.URL,
		"excerpt":      record.Excerpt,
		"chunk_index":  index,
		"total_chunks": total,
		"visibility":   string(record.Visibility),
		"tags":         strings.Join(record.Tags, ","),
		"authors":      strings.Join(record.Authors, ","),
	}
	if !record.PublishedAt.IsZero() {
		metadata["published_at"] = record.PublishedAt.UTC().Format(time.RFC3339)
	}
	if !record.UpdatedAt.IsZero() {
		metadata["updated_at"] = record.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return metadata
}

func entryFromMetadata(metadata map[string]any) domain.IndexEntry {
	if metadata == nil {
		return domain.IndexEntry{}
	}

	entry := domain.IndexEntry{
		Key:        metaString(metadata, "key"),
		Title:      metaString(metadata, "title"),
		URL:        metaString(metadata, "url"),
		Excerpt:    metaString(metadata, "excerpt"),
		Visibility: domain.Visibility(metaString(metadata, "visibility")),
		Tags:       splitList(metaString(metadata, "tags")),
		Authors:    splitList(metaString(metadata, "authors")),
	}
	entry.PublishedAt = metaTime(metadata, "published_at")
	entry.UpdatedAt = metaTime(metadata, "updated_at")
	return entry
}

func metaString(metadata map[string]any, key string) string {
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

func metaTime(metadata map[string]any, key string) time.Time {
	raw := metaString(metadata, key)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func fieldAt(rows [][]map[string]any, i int) map[string]any {
	if len(rows) == 0 || i >= len(rows[0]) {
		return nil
	}
	return rows[0][i]
}

func excerptAt(rows [][]string, i int) string {
	if len(rows) == 0 || i >= len(rows[0]) {
		return ""
	}
	excerpt := rows[0][i]
	if len(excerpt) <= excerptLimit {
		return excerpt
	}

	// Cut on a rune boundary so snippets never end mid-character.
	cut := excerptLimit
	for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
		cut--
	}
	return excerpt[:cut]
}

func distanceAt(rows [][]float64, i int) float64 {
	if len(rows) == 0 || i >= len(rows[0]) {
		return 1
	}
	return rows[0][i]
}

// scoreFromDistance maps cosine distance onto a [0, 1] relevance score.
func scoreFromDistance(distance float64) float64 {
	score := 1 - distance/2
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
