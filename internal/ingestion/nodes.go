package ingestion

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/givetide/givetide-go/internal/casestudy"
	"github.com/givetide/givetide-go/internal/index"
)

// DefaultMaxNodeChars caps the content length of a single node. Most case
// studies fit in one node; only unusually long ones are split.
const DefaultMaxNodeChars = 6000

// BuildNodes converts loaded case study records into index entries without
// vectors. Each record becomes one node unless its embedding text exceeds
// maxChars, in which case it is split on paragraph boundaries into several
// nodes that all point back to the same record.
//
// Node IDs are derived from the record ID and chunk position, so rebuilding
// from the same dataset always produces the same IDs.
func BuildNodes(records []casestudy.Record, maxChars int) []index.Entry {
	if maxChars <= 0 {
		maxChars = DefaultMaxNodeChars
	}

	var entries []index.Entry
	for _, rec := range records {
		chunks := splitContent(rec.EmbeddingText(), maxChars)
		for i, chunk := range chunks {
			meta := map[string]string{
				"record_id":    rec.ID,
				"organization": rec.Organization,
				"campaign":     rec.Campaign,
				"title":        rec.Title(),
				"chunk_index":  fmt.Sprintf("%d", i),
			}
			for k, v := range rec.Extra {
				if _, taken := meta[k]; !taken {
					meta[k] = v
				}
			}
			entries = append(entries, index.Entry{
				ID:       nodeID(rec.ID, i),
				RecordID: rec.ID,
				Content:  chunk,
				Metadata: meta,
			})
		}
	}
	return entries
}

// splitContent returns text as a single chunk when it fits, otherwise splits
// it into chunks of at most maxChars, preferring paragraph boundaries. A
// single paragraph longer than maxChars is hard-split.
func splitContent(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// Oversized paragraph: flush what we have, then hard-split it.
		if len(para) > maxChars {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			for start := 0; start < len(para); start += maxChars {
				end := start + maxChars
				if end > len(para) {
					end = len(para)
				}
				chunks = append(chunks, para[start:end])
			}
			continue
		}

		if current.Len() > 0 && current.Len()+2+len(para) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// nodeID derives a stable UUID-shaped identifier from the record ID and
// chunk index. Qdrant requires UUID point IDs, so the digest is formatted
// as one.
func nodeID(recordID string, chunkIndex int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", recordID, chunkIndex)))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}
