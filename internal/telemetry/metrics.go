package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	ChunksIndexed      metric.Int64Counter
	EmbeddingRequests  metric.Int64Counter
	EmbeddingFallbacks metric.Int64Counter
	UpsertFailures     metric.Int64Counter
	DocumentsSkipped   metric.Int64Counter
	QueryDuration      metric.Float64Histogram
	IngestDuration     metric.Float64Histogram
	IndexedVectors     metric.Int64Gauge
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("transcript-rag-backend")

	chunksIndexed, err := meter.Int64Counter(
		"ingest.chunks.total",
		metric.WithDescription("Total chunks embedded and upserted"),
	)
	if err != nil {
		return nil, err
	}

	embeddingRequests, err := meter.Int64Counter(
		"embeddings.requests.total",
		metric.WithDescription("Total embedding requests by provider"),
	)
	if err != nil {
		return nil, err
	}

	embeddingFallbacks, err := meter.Int64Counter(
		"embeddings.fallbacks.total",
		metric.WithDescription("Embedding requests that degraded to deterministic vectors"),
	)
	if err != nil {
		return nil, err
	}

	upsertFailures, err := meter.Int64Counter(
		"vectorstore.upsert.failures",
		metric.WithDescription("Vector batches that failed to upsert"),
	)
	if err != nil {
		return nil, err
	}

	documentsSkipped, err := meter.Int64Counter(
		"ingest.documents.skipped",
		metric.WithDescription("Documents skipped as already indexed or unreadable"),
	)
	if err != nil {
		return nil, err
	}

	queryDuration, err := meter.Float64Histogram(
		"retrieval.query.duration",
		metric.WithDescription("Retrieval query duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram(
		"ingest.job.duration",
		metric.WithDescription("Ingest job duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	indexedVectors, err := meter.Int64Gauge(
		"vectorstore.vectors.total",
		metric.WithDescription("Total vectors reported by the store"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ChunksIndexed:      chunksIndexed,
		EmbeddingRequests:  embeddingRequests,
		EmbeddingFallbacks: embeddingFallbacks,
		UpsertFailures:     upsertFailures,
		DocumentsSkipped:   documentsSkipped,
		QueryDuration:      queryDuration,
		IngestDuration:     ingestDuration,
		IndexedVectors:     indexedVectors,
	}, nil
}

// RecordEmbedding counts one embedding request by source provider.
func (m *Metrics) RecordEmbedding(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.EmbeddingRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", source)))
}
