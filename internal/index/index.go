// Package index defines the vector index contract for the advisor's
// retrieval pipeline and provides its concrete backends: a single-file
// SQLite index (the default) and a Qdrant-backed index for operators who
// already run one. The advisor layer never depends on a specific backend.
package index

import (
	"context"
	"errors"
)

// ErrIndexNotFound is returned by Search and Count when no built index exists
// at the configured location. Callers surface it as "not initialized" so a
// front end can prompt for an explicit build rather than showing a generic
// error — an index is never built implicitly as a side effect of a read.
var ErrIndexNotFound = errors.New("index: not built")

// ErrBuildInProgress is returned by Replace when another rebuild is already
// in flight. Rebuilds are never run in parallel: a duplicate build doubles
// embedding cost and risks corrupting the persisted state.
var ErrBuildInProgress = errors.New("index: rebuild already in progress")

// Entry is one node written to the index: embedding-ready text, its vector,
// and the metadata needed to map a hit back to its owning case study.
type Entry struct {
	// ID is the deterministic node id (stable given record id + chunk index).
	ID string

	// RecordID is the owning case-study record id.
	RecordID string

	// Content is the embedding-ready node text.
	Content string

	// Metadata holds back-reference fields (organization, campaign, ...)
	// round-tripped verbatim through the index.
	Metadata map[string]string

	// Vector is the embedding of Content. All entries in one Replace call
	// must share the same dimensionality.
	Vector []float32
}

// Hit is one search result, ordered by descending similarity.
type Hit struct {
	// ID is the node id of the matched entry.
	ID string

	// RecordID is the owning case-study record id.
	RecordID string

	// Score is the cosine similarity between the query and the entry.
	Score float32

	// Content is the stored node text.
	Content string

	// Metadata is the stored metadata, exactly as written at build time.
	Metadata map[string]string
}

// Index is the persistent similarity index over node vectors.
// Implementations must be safe for concurrent Search calls, and a Replace
// must never be observable as a partial state by concurrent readers.
type Index interface {
	// Replace atomically swaps the full index contents for the given entries,
	// discarding whatever was persisted before. At most one Replace runs at a
	// time; a concurrent call fails with ErrBuildInProgress.
	Replace(ctx context.Context, entries []Entry) error

	// Search returns up to topK hits ordered by descending similarity,
	// ties broken by insertion order. Asking for more hits than exist returns
	// all available without error. Fails with ErrIndexNotFound when no built
	// index exists.
	Search(ctx context.Context, queryVector []float32, topK int) ([]Hit, error)

	// Count reports the number of persisted entries.
	// Fails with ErrIndexNotFound when no built index exists.
	Count(ctx context.Context) (int, error)

	// Ping checks that the backing store is reachable. Used by readiness
	// probes; an unbuilt index is still reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the index.
	Close() error
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines and must
// return exactly one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
