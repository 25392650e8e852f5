package server

import (
	"context"
	"fmt"

	"github.com/givetide/givetide-go/internal/index"
)

// IndexPinger probes a vector index using its native Ping method.
// It satisfies the Pinger interface and is used by GET /api/ready.
type IndexPinger struct {
	// idx is the vector index to probe.
	idx index.Index
	// name identifies the index backend in readiness responses
	// (e.g. "sqlite", "qdrant").
	name string
}

// NewIndexPinger constructs an IndexPinger for the given index and backend name.
func NewIndexPinger(idx index.Index, name string) *IndexPinger {
	return &IndexPinger{idx: idx, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *IndexPinger) Name() string { return p.name }

// Ping delegates to the index's own reachability check.
func (p *IndexPinger) Ping(ctx context.Context) error {
	if err := p.idx.Ping(ctx); err != nil {
		return fmt.Errorf("index unreachable: %w", err)
	}
	return nil
}

// EmbedderPinger probes an embedding backend by embedding a single short
// string. The probe consumes a minimal amount of compute on the backend, so
// it is only run on /api/ready requests, never on a timer.
type EmbedderPinger struct {
	// embedder is the embedding client to probe.
	embedder index.Embedder
	// name identifies the embedding backend (e.g. "ollama", "openai").
	name string
}

// NewEmbedderPinger constructs an EmbedderPinger for the given embedder and
// backend name.
func NewEmbedderPinger(e index.Embedder, name string) *EmbedderPinger {
	return &EmbedderPinger{embedder: e, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping embeds a single token and verifies a non-empty vector comes back.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	vectors, err := p.embedder.Embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return fmt.Errorf("embed returned empty vector")
	}
	return nil
}
