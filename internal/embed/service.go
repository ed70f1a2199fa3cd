// Package embed turns text into fixed-dimension vectors. The remote provider
// is preferred; a deterministic hash-seeded fallback keeps ingestion moving
// when the provider is unconfigured or unreachable.
package embed

import (
	"context"
	"time"

	"transcript-rag-backend/internal/logger"
	"transcript-rag-backend/internal/retry"
)

// Embedding sources recorded in vector metadata so mixed-quality collections
// stay detectable.
const (
	SourceVoyage        = "voyage"
	SourceDeterministic = "deterministic"
)

// Remote is the provider-facing part of the service, satisfied by
// VoyageClient.
type Remote interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service embeds text with retry, backoff and deterministic fallback.
// Embed never fails the caller over provider trouble: the worst case is a
// degraded (non-semantic) vector.
type Service struct {
	remote    Remote
	dimension int
	policy    retry.Policy
}

// Options configure a Service.
type Options struct {
	APIKey      string
	APIURL      string
	Model       string
	Dimension   int
	Timeout     time.Duration
	MaxAttempts int
}

// NewService builds the embedding service. An empty APIKey disables the
// remote provider entirely: every call goes straight to the deterministic
// fallback without touching the network.
func NewService(opts Options) *Service {
	var remote Remote
	if opts.APIKey != "" {
		remote = NewVoyageClient(opts.APIKey, opts.APIURL, opts.Model, opts.Timeout)
	}

	policy := retry.DefaultPolicy()
	if opts.MaxAttempts > 0 {
		policy.MaxAttempts = opts.MaxAttempts
	}
	policy.OnRetry = func(err error, wait time.Duration) {
		logger.Warn("Embedding attempt failed, retrying", "error", err.Error(), "wait", wait.String())
	}

	return &Service{
		remote:    remote,
		dimension: opts.Dimension,
		policy:    policy,
	}
}

// NewServiceWithRemote wires an explicit remote, for tests and per-request
// credential overrides.
func NewServiceWithRemote(remote Remote, dimension int, policy retry.Policy) *Service {
	return &Service{remote: remote, dimension: dimension, policy: policy}
}

// Dimension returns the configured vector dimension.
func (s *Service) Dimension() int {
	return s.dimension
}

// Embed returns a vector of the configured dimension and the source that
// produced it. The returned error is non-nil only when ctx is done.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, string, error) {
	if s.remote == nil {
		return Deterministic(text, s.dimension), SourceDeterministic, nil
	}

	vec, err := retry.Do(ctx, s.policy, func() ([]float32, error) {
		return s.remote.Embed(ctx, text)
	})
	if err == nil {
		return vec, SourceVoyage, nil
	}
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}

	logger.Warn("Embedding provider exhausted, using deterministic fallback", "error", err.Error())
	return Deterministic(text, s.dimension), SourceDeterministic, nil
}
