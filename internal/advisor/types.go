// Package advisor turns fundraising questions into grounded campaign advice.
// It retrieves the most relevant case studies from the vector index,
// optionally enhances the query first, and asks an LLM to answer using only
// the retrieved material. Every answer carries the case study references it
// was grounded on.
package advisor

import "github.com/givetide/givetide-go/internal/provider"

// Request describes one advice question.
type Request struct {
	// Query is the user's question about fundraising campaigns.
	Query string

	// Fast selects the fast model tier and the shorter prompt. Fast mode
	// also skips query enhancement.
	Fast bool

	// DisableEnhancement skips query enhancement even in detailed mode.
	DisableEnhancement bool

	// TopK overrides the number of case studies retrieved. Zero uses the
	// advisor's configured default.
	TopK int
}

// Reference is one case study the advice was grounded on.
type Reference struct {
	// RecordID identifies the case study in the source dataset.
	RecordID string `json:"record_id"`
	// Title is "Organization - Campaign" for display.
	Title        string `json:"title"`
	Organization string `json:"organization"`
	Campaign     string `json:"campaign"`
	// Excerpt is the retrieved case study content.
	Excerpt string `json:"excerpt"`
	// Score is the retrieval similarity score.
	Score float32 `json:"score"`
}

// Result is the advisor's answer to one request.
type Result struct {
	// Advice is the generated markdown advice text.
	Advice string `json:"advice"`
	// References lists the case studies the advice drew on, most relevant
	// first. Empty when no relevant case studies were found.
	References []Reference `json:"references"`
	// Tier records which model tier produced the advice.
	Tier provider.Tier `json:"tier"`
	// EnhancedQuery is the retrieval query actually used. Equals the
	// original query when enhancement was skipped or failed.
	EnhancedQuery string `json:"enhanced_query,omitempty"`
}
