package budget

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"), // 4 overhead + 1 (role) + 2 (content) = 7
		schema.UserMessage("hello world"),
	}
	got := EstimateMessages(msgs)
	// Each message: 4 overhead + Estimate("user")=1 + Estimate("hello world")=2 = 7
	// Two messages: 14
	if got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func Test_TrimExcerpts_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	excerpts := []string{"short one", "short two"}
	got := TrimExcerpts(excerpts, 100, DefaultMaxContextTokens)
	if len(got) != 2 || got[0] != "short one" || got[1] != "short two" {
		t.Errorf("excerpts changed without need: %v", got)
	}
}

func Test_TrimExcerpts_ShortensLast(t *testing.T) {
	t.Parallel()
	excerpts := []string{
		strings.Repeat("a", 400), // 100 tokens
		strings.Repeat("b", 2000), // 500 tokens
	}
	// Budget of 400 tokens leaves 300 for the last excerpt (1200 chars).
	got := TrimExcerpts(excerpts, 0, 400)
	if len(got) != 2 {
		t.Fatalf("got %d excerpts, want 2", len(got))
	}
	if got[0] != excerpts[0] {
		t.Error("most relevant excerpt must not be touched")
	}
	if len(got[1]) >= 2000 {
		t.Errorf("last excerpt not shortened: %d chars", len(got[1]))
	}
	if Estimate(got[0])+Estimate(got[1]) > 400 {
		t.Errorf("still over budget: %d tokens", Estimate(got[0])+Estimate(got[1]))
	}
}

func Test_TrimExcerpts_DropsUselesslyShortTail(t *testing.T) {
	t.Parallel()
	excerpts := []string{
		strings.Repeat("a", 400), // 100 tokens
		strings.Repeat("b", 400), // 100 tokens
	}
	// 110 tokens available: the second excerpt would shrink to 40 chars,
	// below the useful minimum, so it is dropped.
	got := TrimExcerpts(excerpts, 0, 110)
	if len(got) != 1 {
		t.Fatalf("got %d excerpts, want 1", len(got))
	}
	if got[0] != excerpts[0] {
		t.Error("wrong excerpt survived")
	}
}

func Test_TrimExcerpts_PreservesOrder(t *testing.T) {
	t.Parallel()
	excerpts := []string{
		strings.Repeat("a", 800),
		strings.Repeat("b", 800),
		strings.Repeat("c", 800),
	}
	got := TrimExcerpts(excerpts, 0, 450)
	for i, e := range got {
		if e[0] != excerpts[i][0] {
			t.Errorf("excerpt %d reordered", i)
		}
	}
}

func Test_TrimExcerpts_EmptyInput(t *testing.T) {
	t.Parallel()
	if got := TrimExcerpts(nil, 0, 100); len(got) != 0 {
		t.Errorf("want empty, got %v", got)
	}
}

func Test_TrimExcerpts_FixedExceedsBudget(t *testing.T) {
	t.Parallel()
	excerpts := []string{strings.Repeat("a", 400)}
	got := TrimExcerpts(excerpts, 7000, 6000)
	if len(got) != 0 {
		t.Errorf("want all excerpts dropped, got %d", len(got))
	}
}

func Test_TrimExcerpts_CutsOnRuneBoundary(t *testing.T) {
	t.Parallel()
	// 300 three-byte runes: 900 bytes, 225 tokens. A 200-token budget puts
	// the raw byte cut at 800, in the middle of a rune.
	excerpts := []string{strings.Repeat("あ", 300)}
	got := TrimExcerpts(excerpts, 0, 200)
	if len(got) != 1 {
		t.Fatalf("got %d excerpts, want 1", len(got))
	}
	if len(got[0]) >= 900 {
		t.Errorf("excerpt not shortened: %d bytes", len(got[0]))
	}
	if !utf8.ValidString(got[0]) {
		t.Error("trim produced invalid UTF-8")
	}
}

func Test_TrimExcerpts_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	original := strings.Repeat("b", 2000)
	excerpts := []string{strings.Repeat("a", 400), original}
	_ = TrimExcerpts(excerpts, 0, 400)
	if excerpts[1] != original {
		t.Error("input slice was mutated")
	}
}
