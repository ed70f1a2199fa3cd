package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transcript-rag-backend/internal/pinecone"
)

func TestQueryAssemblesContext(t *testing.T) {
	store := &fakeStore{
		queryMatches: []pinecone.Match{
			{Score: 0.91, Metadata: pinecone.ChunkMetadata{Text: "We offer a 30 day refund window.", FileID: "doc-1", Title: "Refund call"}},
			{Score: 0.84, Metadata: pinecone.ChunkMetadata{Text: "Refunds go back to the original card.", FileID: "doc-2", Title: "Billing call"}},
		},
	}
	embedder := &fakeEmbedder{dimension: 8}
	r := NewRetriever(store, embedder, nil)

	result, err := r.Query(context.Background(), "refund policy", 3)
	require.NoError(t, err)

	// Two matches, not padded to topK.
	require.Len(t, result.RawMatches, 2)
	assert.Equal(t, 0.91, result.RawMatches[0].Score)
	assert.Equal(t, "doc-1", result.RawMatches[0].FileID)

	assert.Equal(t,
		"[Refund call]: We offer a 30 day refund window.\n\n[Billing call]: Refunds go back to the original card.",
		result.Context)
	assert.Equal(t, 2, strings.Count(result.Context, "]: "), "exactly one segment per match")
	assert.Equal(t, 3, store.lastTopK)
}

func TestQueryFillsMissingMetadata(t *testing.T) {
	store := &fakeStore{
		queryMatches: []pinecone.Match{
			{Score: 0.5, Metadata: pinecone.ChunkMetadata{}},
		},
	}
	r := NewRetriever(store, &fakeEmbedder{dimension: 8}, nil)

	result, err := r.Query(context.Background(), "anything", 5)
	require.NoError(t, err)

	require.Len(t, result.RawMatches, 1)
	assert.Equal(t, "No text available", result.RawMatches[0].Content)
	assert.Equal(t, "Unknown", result.RawMatches[0].Title)
	assert.Equal(t, "[Unknown]: No text available", result.Context)
}

func TestQueryNoMatches(t *testing.T) {
	store := &fakeStore{}
	r := NewRetriever(store, &fakeEmbedder{dimension: 8}, nil)

	result, err := r.Query(context.Background(), "nothing indexed yet", 5)
	require.NoError(t, err, "zero matches is an empty result, not an error")
	assert.Empty(t, result.RawMatches)
	assert.Empty(t, result.Context)
}

func TestQueryDefaultsTopK(t *testing.T) {
	store := &fakeStore{}
	r := NewRetriever(store, &fakeEmbedder{dimension: 8}, nil)

	_, err := r.Query(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Equal(t, 5, store.lastTopK)
}

func TestQueryPropagatesStoreError(t *testing.T) {
	store := &fakeStore{queryErr: errors.New("index offline")}
	r := NewRetriever(store, &fakeEmbedder{dimension: 8}, nil)

	_, err := r.Query(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index offline")
}
