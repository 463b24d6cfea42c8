package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/sabio-ai/sabio/internal/log"
)

// Completer generates a natural-language answer from a system prompt, a
// retrieved context block, and the user's question. Implementations are
// black boxes to the pipeline; tests inject fakes.
type Completer interface {
	Complete(ctx context.Context, system, contextBlock, question string) (string, error)
}

// Generation parameters for answer synthesis. Low temperature keeps the
// answer anchored to the retrieved context.
const (
	answerTemperature     = 0.2
	answerMaxOutputTokens = 800
)

// GeminiCompleter generates answers with the Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
	retry  retryConfig
	logger log.Logger
}

// NewGeminiCompleter creates a completer for the given model.
func NewGeminiCompleter(ctx context.Context, apiKey, model string, logger log.Logger) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, errors.New("agent: Gemini API key is required")
	}
	if model == "" {
		return nil, errors.New("agent: model name is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &GeminiCompleter{
		client: client,
		model:  model,
		retry:  defaultRetryConfig(),
		logger: logger,
	}, nil
}

// Complete generates an answer. Transient API failures are retried with
// exponential backoff; non-retryable errors fail immediately.
func (g *GeminiCompleter) Complete(ctx context.Context, system, contextBlock, question string) (string, error) {
	user := fmt.Sprintf("Question: %s\n\nContext:\n%s", question, contextBlock)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](answerTemperature),
		MaxOutputTokens:   answerMaxOutputTokens,
	}

	resp, err := g.generateWithRetry(ctx, genai.Text(user), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// retryConfig bounds the retry loop for LLM calls.
type retryConfig struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

func defaultRetryConfig() retryConfig {
	return retryConfig{
		maxRetries:      3,
		initialInterval: 500 * time.Millisecond,
		maxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups error substrings by category, matched
// case-insensitively. String matching is used because the provider SDK
// does not expose typed errors for transient failures.
var retryablePatterns = []string{
	"rate limit", "quota exceeded", "429",
	"500", "502", "503", "504", "unavailable",
	"connection reset", "timeout", "temporary",
}

// retryableError reports whether err is transient.
func retryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// generateWithRetry executes the generation call with exponential backoff.
func (g *GeminiCompleter) generateWithRetry(
	ctx context.Context,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	var lastErr error
	delay := g.retry.initialInterval
	start := time.Now()

	for attempt := 0; attempt <= g.retry.maxRetries; attempt++ {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
		if err == nil {
			g.logger.Debug("completion generated",
				"attempts", attempt+1,
				"elapsed", time.Since(start),
			)
			return resp, nil
		}
		lastErr = err

		if !retryableError(err) {
			return nil, fmt.Errorf("generate content: %w", err)
		}
		if attempt == g.retry.maxRetries {
			break
		}

		g.logger.Debug("retrying completion",
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, g.retry.maxInterval)
		}
	}

	return nil, fmt.Errorf("generate content after %d retries (elapsed: %v): %w",
		g.retry.maxRetries, time.Since(start), lastErr)
}
