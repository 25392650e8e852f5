package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/givetide/givetide-go/internal/index"
	"github.com/givetide/givetide-go/internal/logging"
)

const (
	// defaultBatchSize keeps request bodies well under provider payload
	// limits even for long case studies.
	defaultBatchSize = 64
	// defaultMaxRetries bounds retry attempts per batch on transient errors.
	defaultMaxRetries = 4
)

// Batcher wraps an index.Embedder with fixed-size batching and bounded
// exponential-backoff retries. Only transient provider errors are retried;
// auth and request errors fail immediately. Input order is preserved across
// batch boundaries.
type Batcher struct {
	inner      index.Embedder
	batchSize  int
	maxRetries int
}

// BatchOption customizes a Batcher.
type BatchOption func(*Batcher)

// WithBatchSize overrides the number of texts sent per request.
func WithBatchSize(n int) BatchOption {
	return func(b *Batcher) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithMaxRetries overrides the per-batch retry budget for transient errors.
func WithMaxRetries(n int) BatchOption {
	return func(b *Batcher) {
		if n >= 0 {
			b.maxRetries = n
		}
	}
}

// NewBatcher wraps inner with batching and retry behavior.
func NewBatcher(inner index.Embedder, opts ...BatchOption) *Batcher {
	b := &Batcher{
		inner:      inner,
		batchSize:  defaultBatchSize,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Embed implements index.Embedder.
func (b *Batcher) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	log := logging.FromContext(ctx)
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vectors, err := b.embedBatch(ctx, log, batch, start/b.batchSize)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// embedBatch sends one batch, retrying transient failures with exponential
// backoff until the retry budget is exhausted.
func (b *Batcher) embedBatch(ctx context.Context, log *slog.Logger, batch []string, batchNum int) ([][]float32, error) {
	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(500*time.Millisecond),
			backoff.WithMaxInterval(10*time.Second),
		),
		uint64(b.maxRetries),
	), ctx)

	var vectors [][]float32
	op := func() error {
		var err error
		vectors, err = b.inner.Embed(ctx, batch)
		if err == nil {
			return nil
		}
		if IsTransient(err) {
			log.Warn("embedder: transient failure, retrying",
				slog.Int("batch", batchNum),
				slog.Int("size", len(batch)),
				slog.String("error", err.Error()),
			)
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, fmt.Errorf("embedder: batch %d failed: %w", batchNum, err)
	}
	return vectors, nil
}
