package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// It is consumed by the index store adapter, never by the core: the
// reconciler hands the store text and the store embeds it on the way in
// and on the way out (queries).
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Any OpenAI-compatible inference server
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// This is more efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	// This must match the remote collection's configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}
