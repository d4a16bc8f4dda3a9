// Package embed produces text embeddings through a pluggable provider,
// adding retry with exponential backoff on the single-text path.
package embed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
)

// Provider is the boundary to the embedding service. It returns one
// fixed-dimension vector per input text, in input order.
type Provider interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Embedder is the interface consumed by the ingestion and retrieval layers.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ExhaustedError indicates the retry budget ran out; it carries the last
// provider error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("embedding failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Client wraps a Provider with input normalization and a retry policy.
type Client struct {
	provider    Provider
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	debug       bool
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithMaxAttempts sets the total number of provider attempts per Embed call.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithBaseDelay sets the first backoff delay.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithMaxDelay caps the backoff delay.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithDebug enables debug logging.
func WithDebug(enable bool) Option {
	return func(c *Client) {
		c.debug = enable
	}
}

// NewClient creates a new Client around the given provider.
func NewClient(provider Provider, opts ...Option) *Client {
	c := &Client{
		provider:    provider,
		maxAttempts: 5,
		baseDelay:   time.Second,
		maxDelay:    60 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Embed generates an embedding for a single text. Newlines are replaced with
// spaces before the provider call. Provider failures are retried with
// full-jitter exponential backoff until the attempt budget is exhausted, then
// surfaced as an ExhaustedError.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = normalize(text)

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		vectors, err := c.provider.CreateEmbeddings(ctx, []string{text})
		if err != nil {
			lastErr = err
			if c.debug {
				slog.Warn("embedding attempt failed", "attempt", attempt+1, "error", err)
			}
			continue
		}
		if len(vectors) != 1 {
			lastErr = fmt.Errorf("provider returned %d embeddings for 1 input", len(vectors))
			continue
		}

		if c.debug {
			slog.Info("embedding generated", "dimension", len(vectors[0]))
		}
		return vectors[0], nil
	}

	return nil, &ExhaustedError{Attempts: c.maxAttempts, Err: lastErr}
}

// EmbedBatch generates embeddings for texts in a single provider call,
// preserving input order. The batch path carries no retry wrapper; callers
// bound request size with EmbedChunks and re-run a failed chunk.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = normalize(t)
	}

	vectors, err := c.provider.CreateEmbeddings(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("provider returned %d embeddings for %d inputs", len(vectors), len(texts))
	}

	return vectors, nil
}

// EmbedChunks embeds a large text set in consecutive chunks of chunkSize
// (the last chunk may be smaller), concatenating results in input order.
func (c *Client) EmbedChunks(ctx context.Context, texts []string, chunkSize int) ([][]float32, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}

	all := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += chunkSize {
		end := start + chunkSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("chunk starting at %d: %w", start, err)
		}
		all = append(all, vectors...)

		if c.debug {
			slog.Info("embedded chunk", "start", start, "size", end-start)
		}
	}

	return all, nil
}

// backoff returns the delay before retry number attempt (zero-based):
// a random duration up to min(maxDelay, baseDelay*2^attempt).
func (c *Client) backoff(attempt int) time.Duration {
	d := c.baseDelay
	for i := 0; i < attempt && d < c.maxDelay; i++ {
		d *= 2
	}
	if d > c.maxDelay {
		d = c.maxDelay
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(d)) + 1)
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// normalize replaces newlines with spaces; some providers mishandle literal
// newlines in embedding input.
func normalize(text string) string {
	return strings.ReplaceAll(text, "\n", " ")
}
