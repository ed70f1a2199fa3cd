package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"transcript-rag-backend/internal/logger"
	"transcript-rag-backend/internal/telemetry"
	"transcript-rag-backend/models"
)

const (
	noTextPlaceholder = "No text available"
	unknownTitle      = "Unknown"
)

// Retriever embeds a query, fetches nearest-neighbor chunks and assembles
// them into a single grounding context block.
type Retriever struct {
	store    VectorStore
	embedder Embedder
	metrics  *telemetry.Metrics
}

// NewRetriever creates a retriever. metrics may be nil.
func NewRetriever(store VectorStore, embedder Embedder, metrics *telemetry.Metrics) *Retriever {
	return &Retriever{store: store, embedder: embedder, metrics: metrics}
}

// Query returns the topK nearest chunks and the assembled context. Zero
// matches yield an empty context, not an error.
func (r *Retriever) Query(ctx context.Context, text string, topK int) (*models.QueryResult, error) {
	if topK <= 0 {
		topK = 5
	}
	start := time.Now()

	vec, _, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := r.store.Query(ctx, vec, topK, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	result := &models.QueryResult{RawMatches: make([]models.QueryMatch, 0, len(matches))}
	sources := make(map[string]bool)
	segments := make([]string, 0, len(matches))

	// Matches arrive score-descending from the store; keep that order.
	for _, match := range matches {
		content := match.Metadata.Text
		if content == "" {
			content = noTextPlaceholder
		}
		title := match.Metadata.Title
		if title == "" {
			title = unknownTitle
		}
		if match.Metadata.Embedder != "" {
			sources[match.Metadata.Embedder] = true
		}

		result.RawMatches = append(result.RawMatches, models.QueryMatch{
			Score:   match.Score,
			Content: content,
			FileID:  match.Metadata.FileID,
			Title:   title,
		})
		segments = append(segments, fmt.Sprintf("[%s]: %s", title, content))
	}
	result.Context = strings.Join(segments, "\n\n")

	// Chunks indexed during a provider outage carry non-semantic vectors;
	// surface when a result set mixes them with real embeddings.
	if len(sources) > 1 {
		logger.Warn("Query results mix embedding sources, retrieval quality may be degraded",
			"query", text, "sources", sourceNames(sources))
	}

	if r.metrics != nil {
		r.metrics.QueryDuration.Record(ctx, time.Since(start).Seconds())
	}
	return result, nil
}

func sourceNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	return names
}
