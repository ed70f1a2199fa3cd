// Package ai wraps the downstream chat model. The core pipeline's only
// obligation is producing the grounding context string; this client turns
// context + question into an answer for the chat endpoint.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"transcript-rag-backend/internal/logger"
)

type ChatClient struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

type chatRateLimits struct {
	RPM int
}

func limitsForTier(tier string) chatRateLimits {
	switch tier {
	case "tier1":
		return chatRateLimits{RPM: 1000}
	case "tier2":
		return chatRateLimits{RPM: 2000}
	default: // free
		return chatRateLimits{RPM: 10}
	}
}

func NewChatClient(apiKey, model, tier string) (*ChatClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiChat",
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

	limits := limitsForTier(tier)
	// RPM limit with some buffer
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), 2)

	return &ChatClient{
		client:      client,
		model:       model,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}, nil
}

// Answer sends the grounding context and the question to the model and
// returns the generated text. An open breaker yields a polite degraded
// reply instead of an error.
func (cc *ChatClient) Answer(ctx context.Context, question, contextText string) (string, error) {
	tracer := otel.Tracer("chat-client")
	ctx, span := tracer.Start(ctx, "chat.answer")
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.model", cc.model),
		attribute.Int("chat.context_bytes", len(contextText)),
	)

	if err := cc.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	result, err := cc.breaker.Execute(func() (interface{}, error) {
		model := cc.client.GenerativeModel(cc.model)
		model.SetTemperature(0.7)
		model.SetMaxOutputTokens(2048)

		resp, err := model.GenerateContent(ctx, genai.Text(buildGroundedPrompt(question, contextText)))
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			span.SetAttributes(attribute.Bool("chat.circuit_breaker_open", true))
			return "I'm experiencing high demand right now. Please try again in a moment.", nil
		}
		span.SetAttributes(attribute.Bool("chat.error", true))
		return "", err
	}

	return extractText(result.(*genai.GenerateContentResponse))
}

func buildGroundedPrompt(question, contextText string) string {
	if contextText == "" {
		return question
	}
	return fmt.Sprintf(
		"You are a helpful assistant answering questions about sales call transcripts.\n\n"+
			"Use the following transcript excerpts to answer. If the excerpts do not contain "+
			"the answer, say so instead of guessing.\n\n%s\n\nQuestion: %s",
		contextText, question)
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				return string(text), nil
			}
		}
	}
	return "", fmt.Errorf("chat model returned no text")
}

// Close the client
func (cc *ChatClient) Close() error {
	if cc.client != nil {
		return cc.client.Close()
	}
	return nil
}
