// Package ingestion implements the case study ingestion pipeline.
// It loads fundraising case studies from CSV, builds index nodes, embeds
// each node's content, and replaces the vector index with the result.
// This pipeline is invoked by the `givetide init` CLI command.
package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/givetide/givetide-go/internal/casestudy"
	"github.com/givetide/givetide-go/internal/index"
)

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// MaxNodeChars is the maximum content length of a single node.
	// Defaults to DefaultMaxNodeChars if zero.
	MaxNodeChars int
}

// Pipeline orchestrates the load -> node -> embed -> replace flow for a
// case study dataset.
type Pipeline struct {
	// embedder converts node content into dense vector embeddings.
	embedder index.Embedder

	// idx is the vector index the finished build replaces.
	idx index.Index

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder index.Embedder, idx index.Index, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if idx == nil {
		return nil, fmt.Errorf("ingestion: index must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.MaxNodeChars <= 0 {
		cfg.MaxNodeChars = DefaultMaxNodeChars
	}
	return &Pipeline{embedder: embedder, idx: idx, cfg: cfg}, nil
}

// IndexExists reports whether the index already holds a built corpus.
// Callers use it to skip a rebuild unless recreation was requested.
func (p *Pipeline) IndexExists(ctx context.Context) (bool, error) {
	n, err := p.idx.Count(ctx)
	if errors.Is(err, index.ErrIndexNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ingestion: check index: %w", err)
	}
	return n > 0, nil
}

// Build embeds all records and atomically replaces the index contents.
// It returns the number of nodes written. Progress is reported via the
// optional progress callback.
func (p *Pipeline) Build(ctx context.Context, records []casestudy.Record, progress func(msg string)) (int, error) {
	if progress == nil {
		progress = func(string) {}
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("ingestion: no records to index")
	}

	entries := BuildNodes(records, p.cfg.MaxNodeChars)
	progress(fmt.Sprintf("built %d nodes from %d case studies", len(entries), len(records)))

	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Content
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("ingestion: embedding failed: %w", err)
	}
	if len(vectors) != len(entries) {
		return 0, fmt.Errorf("ingestion: embedder returned %d vectors for %d nodes", len(vectors), len(entries))
	}
	for i := range entries {
		entries[i].Vector = vectors[i]
	}
	progress(fmt.Sprintf("embedded %d nodes", len(entries)))

	if err := p.idx.Replace(ctx, entries); err != nil {
		return 0, fmt.Errorf("ingestion: index replace failed: %w", err)
	}
	progress(fmt.Sprintf("index rebuilt with %d nodes", len(entries)))

	return len(entries), nil
}
