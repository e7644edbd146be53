package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sfohq/sop-assistant/internal/port"
)

// Embedder turns texts into unit-length vectors through the AI provider,
// batching requests to bound their size and retrying rate-limited batches
// with exponential backoff. Ordering is strict: vector i in the output
// corresponds to text i in the input, even across retried batches.
type Embedder struct {
	provider    port.AIProvider
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	timeout     time.Duration
}

// NewEmbedder creates an embedder. Zero values fall back to the defaults
// used for the expenses SOP corpus (batches of 16, 5 attempts, 1s base
// delay, 30s per-call timeout).
func NewEmbedder(provider port.AIProvider, batchSize, maxAttempts int, baseDelay, timeout time.Duration) *Embedder {
	if batchSize <= 0 {
		batchSize = 16
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Embedder{
		provider:    provider,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		timeout:     timeout,
	}
}

// Embed returns one L2-normalized vector per input text, in input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	for _, v := range out {
		l2Normalize(v)
	}
	return out, nil
}

// embedBatch retries the same batch only on the rate-limited error kind,
// doubling the delay each attempt. Any other failure propagates immediately.
func (e *Embedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := e.baseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		vectors, err := e.provider.EmbedBatch(callCtx, batch)
		cancel()
		if err == nil {
			if len(vectors) != len(batch) {
				return nil, fmt.Errorf("%w: got %d vectors for %d texts", port.ErrProvider, len(vectors), len(batch))
			}
			return vectors, nil
		}
		if !errors.Is(err, port.ErrRateLimited) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("rate limit retries exhausted after %d attempts: %w", e.maxAttempts, lastErr)
}

// l2Normalize scales v to unit length in place. Inner product of unit
// vectors equals cosine similarity, which the index relies on.
func l2Normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
