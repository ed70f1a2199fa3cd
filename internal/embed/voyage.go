package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"transcript-rag-backend/internal/logger"
)

// VoyageClient calls the Voyage AI embeddings API.
type VoyageClient struct {
	apiKey      string
	apiURL      string
	model       string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

type voyageRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type voyageResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewVoyageClient creates a client for the given API endpoint and model.
// The breaker sheds load during sustained provider outages so retries don't
// pile up behind a dead endpoint.
func NewVoyageClient(apiKey, apiURL, model string, timeout time.Duration) *VoyageClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "VoyageAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &VoyageClient{
		apiKey:      apiKey,
		apiURL:      apiURL,
		model:       model,
		httpClient:  &http.Client{Timeout: timeout},
		breaker:     breaker,
		// Voyage free tier allows 300 RPM; stay slightly under.
		rateLimiter: rate.NewLimiter(rate.Limit(4.5), 10),
	}
}

// Embed returns the embedding vector for text. A non-2xx response or
// transport failure is returned as an error; the caller owns retries and
// fallback.
func (c *VoyageClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doEmbed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return result.([]float32), nil
}

func (c *VoyageClient) doEmbed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(voyageRequest{Model: c.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, msg)
	}

	var parsed voyageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding API returned no data")
	}

	return parsed.Data[0].Embedding, nil
}
