package services

import (
	"context"

	"transcript-rag-backend/internal/pinecone"
)

// VectorStore is the narrow store surface the pipeline needs. Satisfied by
// *pinecone.Index; faked in tests.
type VectorStore interface {
	Stats(ctx context.Context) (*pinecone.IndexStats, error)
	Upsert(ctx context.Context, vectors []pinecone.Vector, namespace string) (int, error)
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]pinecone.Match, error)
	Fetch(ctx context.Context, ids []string) (map[string]pinecone.Vector, error)
}

// Embedder produces a vector and the name of the source that generated it.
// Satisfied by *embed.Service, which falls back to a deterministic embedding
// on remote failure and so only returns an error when the context is
// cancelled. The indexer still treats any error as fatal for the batch.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, string, error)
	Dimension() int
}
