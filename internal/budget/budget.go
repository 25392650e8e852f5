// Package budget provides token budget estimation and excerpt trimming for
// prompt composition. Because the advisor supports multiple LLM backends
// with different tokenizers, this package uses a conservative
// character-based heuristic: 1 token ≈ 4 characters (English prose). This
// deliberately under-estimates token counts to leave headroom for
// model-specific overhead.
package budget

import (
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English; using 3 would be
	// more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models while leaving
	// room for the output.
	DefaultMaxContextTokens = 6000

	// minExcerptChars is the shortest excerpt worth keeping. Trimming an
	// excerpt below this loses the case study's substance, so the excerpt
	// is dropped instead.
	minExcerptChars = 200
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimExcerpts shortens retrieved case study excerpts until fixedTokens plus
// the excerpt total fits within maxTokens. Excerpts arrive ordered most
// relevant first and that order is never changed; trimming starts from the
// least relevant end. An excerpt that would shrink below a useful length is
// dropped entirely.
//
// If even an empty excerpt list exceeds the budget, an empty slice is
// returned; callers should warn separately when the fixed prompt alone
// overflows.
func TrimExcerpts(excerpts []string, fixedTokens, maxTokens int) []string {
	if len(excerpts) == 0 {
		return excerpts
	}

	out := make([]string, len(excerpts))
	copy(out, excerpts)

	available := maxTokens - fixedTokens
	for len(out) > 0 {
		total := 0
		for _, e := range out {
			total += Estimate(e)
		}
		if total <= available {
			break
		}

		last := len(out) - 1
		overTokens := total - available
		keepChars := len(out[last]) - overTokens*charsPerToken
		// Back up to a rune boundary so the cut never splits a multi-byte
		// character and feeds invalid UTF-8 into the prompt.
		for keepChars > 0 && keepChars < len(out[last]) && !utf8.RuneStart(out[last][keepChars]) {
			keepChars--
		}
		if keepChars >= minExcerptChars {
			out[last] = out[last][:keepChars]
			break
		}
		// Not enough left to be useful. Drop it and re-check.
		out = out[:last]
	}
	return out
}
