// Package pinecone is a typed client for the Pinecone REST API: the control
// plane (index lifecycle) and the per-index data plane (stats, upsert,
// query, fetch). Authentication is an opaque Api-Key header; the wire format
// is pinned with X-Pinecone-API-Version.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the Pinecone control plane.
type Client struct {
	apiKey     string
	controlURL string
	apiVersion string
	httpClient *http.Client
}

// NewClient creates a control-plane client. controlURL is overridable for
// tests; empty means the public API.
func NewClient(apiKey, controlURL, apiVersion string) *Client {
	if controlURL == "" {
		controlURL = "https://api.pinecone.io"
	}
	return &Client{
		apiKey:     apiKey,
		controlURL: strings.TrimRight(controlURL, "/"),
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, rawURL string, reqBody, out any) error {
	var body io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-API-Version", c.apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Status: resp.StatusCode, Body: string(msg)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// APIError is a non-2xx response from Pinecone.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pinecone API returned status %d: %s", e.Status, e.Body)
}

// IsNotFound reports whether err is a Pinecone 404.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// ListIndexes returns every index visible to the credential.
func (c *Client) ListIndexes(ctx context.Context) ([]IndexDescription, error) {
	var parsed listIndexesResponse
	if err := c.do(ctx, http.MethodGet, c.controlURL+"/indexes", nil, &parsed); err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	return parsed.Indexes, nil
}

// DescribeIndex returns the host and dimension for one index.
func (c *Client) DescribeIndex(ctx context.Context, name string) (*IndexDescription, error) {
	var desc IndexDescription
	if err := c.do(ctx, http.MethodGet, c.controlURL+"/indexes/"+url.PathEscape(name), nil, &desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

// CreateIndex creates a serverless index.
func (c *Client) CreateIndex(ctx context.Context, name string, dimension int, metric, cloud, region string) error {
	req := createIndexRequest{Name: name, Dimension: dimension, Metric: metric}
	req.Spec.Serverless.Cloud = cloud
	req.Spec.Serverless.Region = region

	if err := c.do(ctx, http.MethodPost, c.controlURL+"/indexes", req, nil); err != nil {
		return fmt.Errorf("failed to create index %q: %w", name, err)
	}
	return nil
}

// EnsureIndex describes the index, creating it first when missing, and
// waits for a newly created index to become ready.
func (c *Client) EnsureIndex(ctx context.Context, name string, dimension int, metric, cloud, region string) (*IndexDescription, error) {
	desc, err := c.DescribeIndex(ctx, name)
	if err == nil {
		return desc, nil
	}
	if !IsNotFound(err) {
		return nil, fmt.Errorf("failed to describe index %q: %w", name, err)
	}

	if err := c.CreateIndex(ctx, name, dimension, metric, cloud, region); err != nil {
		return nil, err
	}

	// Serverless index creation takes up to a minute.
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			desc, err := c.DescribeIndex(ctx, name)
			if err != nil {
				continue
			}
			if desc.Status.Ready {
				return desc, nil
			}
		}
	}
}

// Index returns a data-plane handle for the given index host.
func (c *Client) Index(host string) *Index {
	base := host
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return &Index{client: c, baseURL: strings.TrimRight(base, "/")}
}

// Index talks to one index's data plane.
type Index struct {
	client  *Client
	baseURL string
}

// Stats returns the index vector counts.
func (i *Index) Stats(ctx context.Context) (*IndexStats, error) {
	var stats IndexStats
	if err := i.client.do(ctx, http.MethodGet, i.baseURL+"/describe_index_stats", nil, &stats); err != nil {
		return nil, fmt.Errorf("failed to get index stats: %w", err)
	}
	return &stats, nil
}

// Upsert writes vectors in one call and returns the count the store
// acknowledged. The call is all-or-nothing per batch.
func (i *Index) Upsert(ctx context.Context, vectors []Vector, namespace string) (int, error) {
	var parsed upsertResponse
	req := upsertRequest{Vectors: vectors, Namespace: namespace}
	if err := i.client.do(ctx, http.MethodPost, i.baseURL+"/vectors/upsert", req, &parsed); err != nil {
		return 0, fmt.Errorf("failed to upsert %d vectors: %w", len(vectors), err)
	}
	return parsed.UpsertedCount, nil
}

// Query returns the topK nearest vectors to the given one.
func (i *Index) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]Match, error) {
	var parsed queryResponse
	req := queryRequest{Vector: vector, TopK: topK, IncludeMetadata: includeMetadata}
	if err := i.client.do(ctx, http.MethodPost, i.baseURL+"/query", req, &parsed); err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	return parsed.Matches, nil
}

// Fetch retrieves vectors by id. Ids absent from the index are simply
// missing from the result map.
func (i *Index) Fetch(ctx context.Context, ids []string) (map[string]Vector, error) {
	params := url.Values{}
	for _, id := range ids {
		params.Add("ids", id)
	}

	var parsed fetchResponse
	if err := i.client.do(ctx, http.MethodGet, i.baseURL+"/vectors/fetch?"+params.Encode(), nil, &parsed); err != nil {
		return nil, fmt.Errorf("failed to fetch vectors: %w", err)
	}
	return parsed.Vectors, nil
}
