package services

import (
	"context"
	"sync"

	"transcript-rag-backend/internal/embed"
	"transcript-rag-backend/internal/pinecone"
)

// fakeStore is an in-test VectorStore with scriptable responses.
type fakeStore struct {
	mu sync.Mutex

	stats    *pinecone.IndexStats
	statsErr error

	queryMatches []pinecone.Match
	queryErr     error
	queryCalls   int
	lastTopK     int
	lastVector   []float32

	upserts    [][]pinecone.Vector
	failUpsert map[int]error

	fetched    map[string]pinecone.Vector
	fetchErr   error
	fetchCalls [][]string
}

func (f *fakeStore) Stats(ctx context.Context) (*pinecone.IndexStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	if f.stats == nil {
		return &pinecone.IndexStats{}, nil
	}
	return f.stats, nil
}

func (f *fakeStore) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]pinecone.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	f.lastTopK = topK
	f.lastVector = vector
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.queryMatches, nil
}

func (f *fakeStore) Upsert(ctx context.Context, vectors []pinecone.Vector, namespace string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.upserts)
	f.upserts = append(f.upserts, vectors)
	if err, ok := f.failUpsert[call]; ok {
		return 0, err
	}
	return len(vectors), nil
}

func (f *fakeStore) Fetch(ctx context.Context, ids []string) (map[string]pinecone.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls = append(f.fetchCalls, ids)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	result := make(map[string]pinecone.Vector)
	for _, id := range ids {
		if v, ok := f.fetched[id]; ok {
			result[id] = v
		}
	}
	return result, nil
}

// upsertedIDs flattens every upserted vector id in call order.
func (f *fakeStore) upsertedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, batch := range f.upserts {
		for _, v := range batch {
			ids = append(ids, v.ID)
		}
	}
	return ids
}

// fakeEmbedder returns deterministic vectors without a network hop.
type fakeEmbedder struct {
	mu        sync.Mutex
	dimension int
	source    string
	calls     int
	embedErr  error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.embedErr != nil {
		return nil, "", f.embedErr
	}
	source := f.source
	if source == "" {
		source = embed.SourceVoyage
	}
	return embed.Deterministic(text, f.dimension), source, nil
}

func (f *fakeEmbedder) Dimension() int {
	return f.dimension
}
