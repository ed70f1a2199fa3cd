package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"transcript-rag-backend/internal/chunker"
	"transcript-rag-backend/internal/embed"
	"transcript-rag-backend/internal/logger"
	"transcript-rag-backend/internal/pinecone"
	"transcript-rag-backend/internal/telemetry"
	"transcript-rag-backend/models"
)

// IndexerOptions tune the batch upsert pipeline.
type IndexerOptions struct {
	Policy            chunker.Policy
	BatchSize         int
	EmbedConcurrency  int
	UpsertDelay       time.Duration
	MetadataTextLimit int
	Namespace         string
}

// Indexer converts documents into vector records and writes them to the
// store in bounded batches.
type Indexer struct {
	store    VectorStore
	embedder Embedder
	tracker  *IndexTracker
	metrics  *telemetry.Metrics
	opts     IndexerOptions
}

// NewIndexer creates the pipeline. metrics may be nil (bulk-ingest CLI).
func NewIndexer(store VectorStore, embedder Embedder, tracker *IndexTracker, metrics *telemetry.Metrics, opts IndexerOptions) *Indexer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.EmbedConcurrency <= 0 {
		opts.EmbedConcurrency = 10
	}
	if opts.UpsertDelay <= 0 {
		opts.UpsertDelay = 500 * time.Millisecond
	}
	if opts.MetadataTextLimit <= 0 {
		opts.MetadataTextLimit = 1000
	}
	return &Indexer{store: store, embedder: embedder, tracker: tracker, metrics: metrics, opts: opts}
}

// Ingest chunks, embeds and upserts every document not already indexed, and
// returns the total chunk count across all documents. A failing document or
// batch is logged and skipped; only context cancellation stops the run.
func (ix *Indexer) Ingest(ctx context.Context, docs []models.Document) (int, error) {
	ids := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}

	fresh := make(map[string]bool)
	for _, id := range ix.tracker.FilterNew(ctx, ids) {
		fresh[id] = true
	}

	// Batch pacing keeps the store's rate limits honest; the first batch is
	// not delayed.
	limiter := rate.NewLimiter(rate.Every(ix.opts.UpsertDelay), 1)

	total := 0
	for _, doc := range docs {
		if !fresh[doc.ID] {
			logger.Info("Document already indexed, skipping", "docID", doc.ID)
			continue
		}

		count, err := ix.ingestDocument(ctx, doc, limiter)
		total += count
		if err != nil {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			logger.Error("Failed to process document", "docID", doc.ID, "name", doc.Name, "error", err.Error())
			if ix.metrics != nil {
				ix.metrics.DocumentsSkipped.Add(ctx, 1)
			}
			continue
		}
		logger.Info("Document indexed", "docID", doc.ID, "chunks", count)
	}
	return total, nil
}

func (ix *Indexer) ingestDocument(ctx context.Context, doc models.Document, limiter *rate.Limiter) (int, error) {
	params := ix.opts.Policy.ParamsFor(doc.Type)
	chunks, err := chunker.Chunk(doc.Content, params.ChunkSize, params.Overlap)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document has no content after normalization")
	}

	processed := 0
	for i := 0; i < len(chunks); i += ix.opts.BatchSize {
		// Cancellation stops cleanly on a batch boundary: a batch is either
		// fully upserted or not sent at all.
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		end := i + ix.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		vectors, err := ix.embedBatch(ctx, doc, chunks[i:end], i)
		if err != nil {
			return processed, err
		}

		if err := limiter.Wait(ctx); err != nil {
			return processed, err
		}

		if _, err := ix.store.Upsert(ctx, vectors, ix.opts.Namespace); err != nil {
			// Partial ingestion is acceptable; idempotent ids make re-runs
			// pick up whatever this batch missed.
			logger.Error("Batch upsert failed, continuing", "docID", doc.ID, "batchStart", i, "error", err.Error())
			if ix.metrics != nil {
				ix.metrics.UpsertFailures.Add(ctx, 1)
			}
		} else if ix.metrics != nil {
			ix.metrics.ChunksIndexed.Add(ctx, int64(len(vectors)))
		}

		processed += end - i
	}
	return processed, nil
}

// embedBatch embeds one batch's chunks under a bounded worker pool and
// builds their vector records. Record order matches chunk order. Any embed
// error fails the whole batch: a partially filled batch must never reach
// the store.
func (ix *Indexer) embedBatch(ctx context.Context, doc models.Document, batch []string, base int) ([]pinecone.Vector, error) {
	vectors := make([]pinecone.Vector, len(batch))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var embedErr error
	sem := make(chan struct{}, ix.opts.EmbedConcurrency)
	for j, chunk := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(j int, chunk string) {
			defer wg.Done()
			defer func() { <-sem }()

			vec, source, err := ix.embedder.Embed(ctx, chunk)
			if err != nil {
				mu.Lock()
				if embedErr == nil {
					embedErr = err
				}
				mu.Unlock()
				return
			}
			if ix.metrics != nil {
				ix.metrics.RecordEmbedding(ctx, source)
				if source == embed.SourceDeterministic {
					ix.metrics.EmbeddingFallbacks.Add(ctx, 1)
				}
			}

			vectors[j] = pinecone.Vector{
				ID:     fmt.Sprintf("%s-chunk-%d", doc.ID, base+j),
				Values: vec,
				Metadata: pinecone.ChunkMetadata{
					Text:     truncate(chunk, ix.opts.MetadataTextLimit),
					FileID:   doc.ID,
					Title:    doc.Name,
					Type:     string(doc.Type),
					Embedder: source,
				},
			}
		}(j, chunk)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if embedErr != nil {
		return nil, fmt.Errorf("embed chunk: %w", embedErr)
	}
	return vectors, nil
}

// truncate caps s at limit runes, never splitting a multi-byte character.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
