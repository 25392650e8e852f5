// Package casestudy loads and models the fundraising-campaign case studies
// that ground every generated answer. Records are read once from a CSV
// inventory at ingestion time and are immutable afterwards — identity is the
// record id, which must be stable across reloads of the same dataset.
package casestudy

import (
	"fmt"
	"sort"
	"strings"
)

// Record is one case study row from the source dataset.
type Record struct {
	// ID is the unique, stable identifier of the case study.
	ID string

	// Organization is the name of the organization that ran the campaign.
	Organization string

	// Campaign is the campaign name, used for citations in generated advice.
	Campaign string

	// Description is the free-text story of the campaign.
	Description string

	// Strategy describes the campaign's approach and key activities.
	// Optional — empty when the source column is absent or blank.
	Strategy string

	// Results describes outcomes, numbers, and quotable successes.
	// Optional — empty when the source column is absent or blank.
	Results string

	// Extra holds all optional columns not mapped to a named field,
	// keyed by the normalized column header.
	Extra map[string]string
}

// Title returns the display title used in references: the campaign name,
// falling back to the organization when the campaign field is empty.
func (r Record) Title() string {
	if r.Campaign != "" {
		return r.Campaign
	}
	return r.Organization
}

// EmbeddingText formats the record into the text that gets embedded.
// The field order is fixed (organization, campaign, description, strategy,
// results, then extras in sorted key order) so that node text — and therefore
// retrieval scores — are stable and explainable across rebuilds.
func (r Record) EmbeddingText() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Organization: %s\n", r.Organization)
	fmt.Fprintf(&sb, "Campaign: %s\n", r.Campaign)
	if r.Description != "" {
		fmt.Fprintf(&sb, "\nDescription: %s\n", r.Description)
	}
	if r.Strategy != "" {
		fmt.Fprintf(&sb, "\nStrategy: %s\n", r.Strategy)
	}
	if r.Results != "" {
		fmt.Fprintf(&sb, "\nResults: %s\n", r.Results)
	}

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		if r.Extra[k] != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n%s: %s\n", headerTitle(k), r.Extra[k])
	}

	return strings.TrimRight(sb.String(), "\n")
}

// headerTitle converts a normalized column key ("focus_area") back into a
// readable label ("Focus area") for prompt and embedding text.
func headerTitle(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
