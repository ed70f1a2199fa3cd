package services

import (
	"context"
	"fmt"

	"transcript-rag-backend/internal/logger"
)

// IndexTracker detects which documents already have vectors in the store so
// re-runs skip completed work. Detection never aborts ingestion: any store
// failure degrades to "treat everything as new", which is safe because
// vector ids are deterministic and upserts overwrite.
type IndexTracker struct {
	store      VectorStore
	dimension  int
	sampleSize int
}

// NewIndexTracker creates a tracker sampling at most sampleSize vectors.
func NewIndexTracker(store VectorStore, dimension, sampleSize int) *IndexTracker {
	if sampleSize <= 0 {
		sampleSize = 100
	}
	return &IndexTracker{store: store, dimension: dimension, sampleSize: sampleSize}
}

// IndexedDocumentIDs returns document ids found in stored vector metadata.
//
// This is a best-effort sample, not an exhaustive listing: one zero-vector
// query bounded by sampleSize. A store holding more distinct documents than
// fit in the sample will under-report; callers confirm misses with
// HasDocument before re-processing.
func (t *IndexTracker) IndexedDocumentIDs(ctx context.Context) map[string]bool {
	ids := make(map[string]bool)

	stats, err := t.store.Stats(ctx)
	if err != nil {
		logger.Warn("Failed to read index stats, treating all documents as new", "error", err.Error())
		return ids
	}
	if stats.TotalVectorCount == 0 {
		return ids
	}

	topK := stats.TotalVectorCount
	if topK > t.sampleSize {
		topK = t.sampleSize
	}

	matches, err := t.store.Query(ctx, make([]float32, t.dimension), topK, true)
	if err != nil {
		logger.Warn("Index sample query failed, treating all documents as new", "error", err.Error())
		return ids
	}

	for _, match := range matches {
		if match.Metadata.FileID != "" {
			ids[match.Metadata.FileID] = true
		}
	}

	logger.Info("Sampled already indexed documents", "count", len(ids), "totalVectors", stats.TotalVectorCount)
	return ids
}

// HasDocument is an exact existence check: the first chunk of an indexed
// document is always present under a derivable id. A fetch failure reads as
// "not indexed".
func (t *IndexTracker) HasDocument(ctx context.Context, docID string) bool {
	vectors, err := t.store.Fetch(ctx, []string{firstChunkID(docID)})
	if err != nil {
		logger.Debug("Existence fetch failed, assuming document is new", "docID", docID, "error", err.Error())
		return false
	}
	_, ok := vectors[firstChunkID(docID)]
	return ok
}

// FilterNew returns the ids among docIDs with no vectors in the store,
// combining the sampled set with exact per-id confirmation for anything the
// sample missed.
func (t *IndexTracker) FilterNew(ctx context.Context, docIDs []string) []string {
	sampled := t.IndexedDocumentIDs(ctx)

	var fresh []string
	for _, id := range docIDs {
		if sampled[id] {
			continue
		}
		if t.HasDocument(ctx, id) {
			continue
		}
		fresh = append(fresh, id)
	}
	return fresh
}

func firstChunkID(docID string) string {
	return fmt.Sprintf("%s-chunk-0", docID)
}
