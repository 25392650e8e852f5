package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/givetide/givetide-go/internal/index"
	"github.com/givetide/givetide-go/internal/provider"
)

// ── fakes ──

// fakeModel records Generate invocations and replies with a fixed string.
type fakeModel struct {
	name    string
	reply   string
	fail    error
	calls   int
	prompts []string
}

func (f *fakeModel) Generate(_ context.Context, msgs []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	if len(msgs) > 0 {
		f.prompts = append(f.prompts, msgs[len(msgs)-1].Content)
	}
	if f.fail != nil {
		return nil, f.fail
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported in tests")
}

// fakeIndex returns canned hits for any search.
type fakeIndex struct {
	hits []index.Hit
	err  error
}

func (f *fakeIndex) Replace(context.Context, []index.Entry) error { return nil }
func (f *fakeIndex) Search(_ context.Context, _ []float32, topK int) ([]index.Hit, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.hits) > topK {
		return f.hits[:topK], nil
	}
	return f.hits, nil
}
func (f *fakeIndex) Count(context.Context) (int, error) { return len(f.hits), nil }
func (f *fakeIndex) Ping(context.Context) error         { return nil }
func (f *fakeIndex) Close() error                       { return nil }

// fakeEmbedder returns a fixed unit vector for any text.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func hit(id, recordID string, score float32, org, campaign string) index.Hit {
	return index.Hit{
		ID:       id,
		RecordID: recordID,
		Score:    score,
		Content:  "Case study content for " + recordID,
		Metadata: map[string]string{"organization": org, "campaign": campaign},
	}
}

func newTestAdvisor(t *testing.T, idx index.Index, fast, detailed *fakeModel, opts ...Option) *Advisor {
	t.Helper()
	r, err := NewRetriever(fakeEmbedder{}, idx, 0)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	a, err := New(r, fast, detailed, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

// ── tests ──

func TestAdvise_DetailedTier(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []index.Hit{
		hit("n1", "cs-1", 0.95, "Oak Fund", "Winter Appeal"),
		hit("n2", "cs-2", 0.90, "River Trust", "Monthly Giving"),
		hit("n3", "cs-3", 0.30, "Hill House", "Capital Drive"),
	}}
	fast := &fakeModel{name: "fast", reply: "fast advice"}
	detailed := &fakeModel{name: "detailed", reply: "detailed advice"}
	a := newTestAdvisor(t, idx, fast, detailed)

	res, err := a.Advise(context.Background(), Request{Query: "How do I recruit matching gift sponsors?"})
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if res.Advice != "detailed advice" {
		t.Errorf("advice = %q", res.Advice)
	}
	if res.Tier != provider.TierDetailed {
		t.Errorf("tier = %s, want detailed", res.Tier)
	}
	if detailed.calls != 1 || fast.calls != 0 {
		t.Errorf("model calls: detailed=%d fast=%d, want 1/0", detailed.calls, fast.calls)
	}
	// References ordered by descending score.
	wantOrder := []string{"cs-1", "cs-2", "cs-3"}
	if len(res.References) != len(wantOrder) {
		t.Fatalf("got %d references, want %d", len(res.References), len(wantOrder))
	}
	for i, want := range wantOrder {
		if res.References[i].RecordID != want {
			t.Errorf("reference %d = %s, want %s", i, res.References[i].RecordID, want)
		}
	}
	if res.References[0].Title != "Oak Fund - Winter Appeal" {
		t.Errorf("title = %q", res.References[0].Title)
	}
	// The prompt must contain the retrieved case studies.
	if !strings.Contains(detailed.prompts[0], "Case study content for cs-1") {
		t.Error("prompt missing retrieved content")
	}
}

func TestAdvise_FastTierSelectsFastModel(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []index.Hit{hit("n1", "cs-1", 0.9, "Oak Fund", "Winter Appeal")}}
	fast := &fakeModel{name: "fast", reply: "fast advice"}
	detailed := &fakeModel{name: "detailed", reply: "detailed advice"}
	a := newTestAdvisor(t, idx, fast, detailed)

	res, err := a.Advise(context.Background(), Request{Query: "quick tips?", Fast: true})
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if res.Advice != "fast advice" || res.Tier != provider.TierFast {
		t.Errorf("advice=%q tier=%s", res.Advice, res.Tier)
	}
	if fast.calls != 1 || detailed.calls != 0 {
		t.Errorf("model calls: fast=%d detailed=%d, want 1/0", fast.calls, detailed.calls)
	}
}

func TestAdvise_DeduplicatesByRecord(t *testing.T) {
	t.Parallel()

	// Two nodes from the same case study; the better one must survive.
	idx := &fakeIndex{hits: []index.Hit{
		hit("n1", "cs-1", 0.8, "Oak Fund", "Winter Appeal"),
		hit("n2", "cs-1", 0.6, "Oak Fund", "Winter Appeal"),
		hit("n3", "cs-2", 0.7, "River Trust", "Monthly Giving"),
	}}
	fast := &fakeModel{reply: "x"}
	detailed := &fakeModel{reply: "y"}
	a := newTestAdvisor(t, idx, fast, detailed)

	res, err := a.Advise(context.Background(), Request{Query: "anything"})
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if len(res.References) != 2 {
		t.Fatalf("got %d references, want 2 after dedup", len(res.References))
	}
	if res.References[0].RecordID != "cs-1" || res.References[0].Score != 0.8 {
		t.Errorf("best cs-1 node not kept: %+v", res.References[0])
	}
	if res.References[1].RecordID != "cs-2" {
		t.Errorf("reference order wrong: %+v", res.References)
	}
}

func TestAdvise_EnhancementFailsOpen(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []index.Hit{hit("n1", "cs-1", 0.9, "Oak Fund", "Winter Appeal")}}
	enhancerModel := &fakeModel{fail: errors.New("enhancement model down")}
	enh, err := NewEnhancer(enhancerModel)
	if err != nil {
		t.Fatalf("NewEnhancer: %v", err)
	}
	fast := &fakeModel{reply: "x"}
	detailed := &fakeModel{reply: "grounded advice"}
	a := newTestAdvisor(t, idx, fast, detailed, WithEnhancer(enh))

	res, err := a.Advise(context.Background(), Request{Query: "original question"})
	if err != nil {
		t.Fatalf("Advise must succeed when enhancement fails: %v", err)
	}
	if res.EnhancedQuery != "original question" {
		t.Errorf("enhanced query = %q, want original", res.EnhancedQuery)
	}
	if res.Advice != "grounded advice" {
		t.Errorf("advice = %q", res.Advice)
	}
}

func TestAdvise_EnhancementEmptyOutputFallsBack(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []index.Hit{hit("n1", "cs-1", 0.9, "Oak Fund", "Winter Appeal")}}
	enh, _ := NewEnhancer(&fakeModel{reply: "   "})
	a := newTestAdvisor(t, idx, &fakeModel{reply: "x"}, &fakeModel{reply: "y"}, WithEnhancer(enh))

	res, err := a.Advise(context.Background(), Request{Query: "original question"})
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if res.EnhancedQuery != "original question" {
		t.Errorf("enhanced query = %q, want original", res.EnhancedQuery)
	}
}

func TestAdvise_EnhancementUsedInDetailedMode(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []index.Hit{hit("n1", "cs-1", 0.9, "Oak Fund", "Winter Appeal")}}
	enhancerModel := &fakeModel{reply: "expanded retrieval query"}
	enh, _ := NewEnhancer(enhancerModel)
	a := newTestAdvisor(t, idx, &fakeModel{reply: "x"}, &fakeModel{reply: "y"}, WithEnhancer(enh))

	res, err := a.Advise(context.Background(), Request{Query: "short q"})
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if res.EnhancedQuery != "expanded retrieval query" {
		t.Errorf("enhanced query = %q", res.EnhancedQuery)
	}
	if enhancerModel.calls != 1 {
		t.Errorf("enhancer model calls = %d, want 1", enhancerModel.calls)
	}
}

func TestAdvise_EnhancementSkippedInFastMode(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []index.Hit{hit("n1", "cs-1", 0.9, "Oak Fund", "Winter Appeal")}}
	enhancerModel := &fakeModel{reply: "should not be used"}
	enh, _ := NewEnhancer(enhancerModel)
	a := newTestAdvisor(t, idx, &fakeModel{reply: "x"}, &fakeModel{reply: "y"}, WithEnhancer(enh))

	if _, err := a.Advise(context.Background(), Request{Query: "q", Fast: true}); err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if enhancerModel.calls != 0 {
		t.Errorf("enhancer called %d times in fast mode, want 0", enhancerModel.calls)
	}
}

func TestAdvise_EnhancementDisabledByFlag(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []index.Hit{hit("n1", "cs-1", 0.9, "Oak Fund", "Winter Appeal")}}
	enhancerModel := &fakeModel{reply: "should not be used"}
	enh, _ := NewEnhancer(enhancerModel)
	a := newTestAdvisor(t, idx, &fakeModel{reply: "x"}, &fakeModel{reply: "y"}, WithEnhancer(enh))

	if _, err := a.Advise(context.Background(), Request{Query: "q", DisableEnhancement: true}); err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if enhancerModel.calls != 0 {
		t.Errorf("enhancer called %d times with enhancement disabled, want 0", enhancerModel.calls)
	}
}

func TestAdvise_MissingIndexSurfaces(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{err: index.ErrIndexNotFound}
	a := newTestAdvisor(t, idx, &fakeModel{reply: "x"}, &fakeModel{reply: "y"})

	_, err := a.Advise(context.Background(), Request{Query: "q"})
	if !errors.Is(err, index.ErrIndexNotFound) {
		t.Errorf("error = %v, want ErrIndexNotFound", err)
	}
}

func TestAdvise_NoHitsReturnsFallbackAdvice(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{}
	detailed := &fakeModel{reply: "should not run"}
	a := newTestAdvisor(t, idx, &fakeModel{reply: "x"}, detailed)

	res, err := a.Advise(context.Background(), Request{Query: "q"})
	if err != nil {
		t.Fatalf("Advise: %v", err)
	}
	if len(res.References) != 0 {
		t.Errorf("references = %v, want empty", res.References)
	}
	if detailed.calls != 0 {
		t.Error("model must not run without retrieved case studies")
	}
	if !strings.Contains(res.Advice, "couldn't find") {
		t.Errorf("advice = %q", res.Advice)
	}
}

func TestAdvise_GenerationErrorCarriesTier(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{hits: []index.Hit{hit("n1", "cs-1", 0.9, "Oak Fund", "Winter Appeal")}}
	fast := &fakeModel{fail: errors.New("model down")}
	a := newTestAdvisor(t, idx, fast, &fakeModel{reply: "y"})

	_, err := a.Advise(context.Background(), Request{Query: "q", Fast: true})
	var ge *GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("error = %v, want GenerationError", err)
	}
	if ge.Tier != provider.TierFast {
		t.Errorf("tier = %s, want fast", ge.Tier)
	}
}

func TestAdvise_EmptyQueryRejected(t *testing.T) {
	t.Parallel()

	a := newTestAdvisor(t, &fakeIndex{}, &fakeModel{reply: "x"}, &fakeModel{reply: "y"})
	if _, err := a.Advise(context.Background(), Request{Query: "  "}); err == nil {
		t.Fatal("expected error for empty query")
	}
}
