package advisor

import (
	"context"
	"fmt"
	"sort"

	"github.com/givetide/givetide-go/internal/index"
)

// DefaultTopK is the number of case studies retrieved when the caller does
// not override it.
const DefaultTopK = 5

// Retriever embeds a query and returns the most relevant case studies from
// the index, one result per case study. When a long case study was split
// into several nodes, only the best-scoring node survives deduplication.
type Retriever struct {
	embedder index.Embedder
	idx      index.Index

	// defaultTopK is the result count used when Retrieve is called with topK=0.
	defaultTopK int
}

// NewRetriever constructs a Retriever from the given embedder and index.
func NewRetriever(embedder index.Embedder, idx index.Index, defaultTopK int) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("advisor: embedder must not be nil")
	}
	if idx == nil {
		return nil, fmt.Errorf("advisor: index must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &Retriever{embedder: embedder, idx: idx, defaultTopK: defaultTopK}, nil
}

// Retrieve returns up to topK case studies relevant to the query, most
// relevant first. index.ErrIndexNotFound passes through untouched so
// callers can tell "not initialized" apart from other failures.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]index.Hit, error) {
	if topK <= 0 {
		topK = r.defaultTopK
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("advisor: embedding query failed: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("advisor: embedder returned empty result for query")
	}

	// Over-fetch so deduplication of multi-node case studies still yields
	// topK distinct records.
	hits, err := r.idx.Search(ctx, vectors[0], topK*2)
	if err != nil {
		return nil, err
	}

	deduped := dedupeByRecord(hits)
	if len(deduped) > topK {
		deduped = deduped[:topK]
	}
	return deduped, nil
}

// dedupeByRecord keeps the best-scoring hit per case study record and
// returns the survivors ordered by descending score. Ties keep their
// original retrieval order.
func dedupeByRecord(hits []index.Hit) []index.Hit {
	best := make(map[string]int, len(hits))
	var out []index.Hit
	for _, h := range hits {
		if i, seen := best[h.RecordID]; seen {
			if h.Score > out[i].Score {
				out[i] = h
			}
			continue
		}
		best[h.RecordID] = len(out)
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
