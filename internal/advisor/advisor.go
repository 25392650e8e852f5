package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/givetide/givetide-go/internal/budget"
	"github.com/givetide/givetide-go/internal/index"
	"github.com/givetide/givetide-go/internal/logging"
	"github.com/givetide/givetide-go/internal/provider"
)

// Advisor answers fundraising questions with advice grounded in retrieved
// case studies. It is safe for concurrent use.
type Advisor struct {
	retriever *Retriever
	enhancer  *Enhancer

	// fastModel and detailedModel are the two generation tiers.
	fastModel     model.BaseChatModel
	detailedModel model.BaseChatModel

	// maxContextTokens bounds the estimated prompt size; excerpts are
	// trimmed least-relevant-first to fit.
	maxContextTokens int
}

// Option customizes an Advisor.
type Option func(*Advisor)

// WithEnhancer attaches a query enhancer. Without one, queries go to
// retrieval unchanged.
func WithEnhancer(e *Enhancer) Option {
	return func(a *Advisor) { a.enhancer = e }
}

// WithMaxContextTokens overrides the input context budget.
func WithMaxContextTokens(n int) Option {
	return func(a *Advisor) {
		if n > 0 {
			a.maxContextTokens = n
		}
	}
}

// New constructs an Advisor from its dependencies.
func New(retriever *Retriever, fastModel, detailedModel model.BaseChatModel, opts ...Option) (*Advisor, error) {
	if retriever == nil {
		return nil, fmt.Errorf("advisor: retriever must not be nil")
	}
	if fastModel == nil || detailedModel == nil {
		return nil, fmt.Errorf("advisor: both model tiers must be provided")
	}
	a := &Advisor{
		retriever:        retriever,
		fastModel:        fastModel,
		detailedModel:    detailedModel,
		maxContextTokens: budget.DefaultMaxContextTokens,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Advise answers one request. Retrieval failures surface as errors
// (index.ErrIndexNotFound untouched); an empty retrieval result yields a
// "nothing found" answer with no references rather than an error.
func (a *Advisor) Advise(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("advisor: query must not be empty")
	}

	log := logging.FromContext(ctx)
	tier := provider.TierDetailed
	if req.Fast {
		tier = provider.TierFast
	}

	// Enhancement runs only in detailed mode; fast mode favors latency.
	retrievalQuery := req.Query
	if a.enhancer != nil && !req.Fast && !req.DisableEnhancement {
		retrievalQuery = a.enhancer.Enhance(ctx, req.Query)
	}

	hits, err := a.retriever.Retrieve(ctx, retrievalQuery, req.TopK)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		log.Warn("advisor: no case studies found", slog.String("query", retrievalQuery))
		return &Result{
			Advice:        noResultsAdvice,
			References:    []Reference{},
			Tier:          tier,
			EnhancedQuery: retrievalQuery,
		}, nil
	}

	references := buildReferences(hits)
	prompt := a.composePrompt(ctx, req.Query, references, req.Fast)

	chatModel := a.detailedModel
	if req.Fast {
		chatModel = a.fastModel
	}

	messages := []*schema.Message{
		schema.SystemMessage(advisorPersona),
		schema.UserMessage(prompt),
	}
	log.Debug("advisor: prompt composed",
		slog.String("tier", string(tier)),
		slog.Int("estimated_tokens", budget.EstimateMessages(messages)),
	)

	resp, err := chatModel.Generate(ctx, messages)
	if err != nil {
		return nil, &GenerationError{Tier: tier, Err: err}
	}
	advice := strings.TrimSpace(resp.Content)
	if advice == "" {
		return nil, &GenerationError{Tier: tier, Err: fmt.Errorf("model returned empty advice")}
	}

	log.Info("advisor: advice generated",
		slog.String("tier", string(tier)),
		slog.Int("references", len(references)),
	)

	return &Result{
		Advice:        advice,
		References:    references,
		Tier:          tier,
		EnhancedQuery: retrievalQuery,
	}, nil
}

// composePrompt formats the tier-appropriate prompt, trimming excerpts from
// the least relevant end until the estimate fits the context budget.
func (a *Advisor) composePrompt(ctx context.Context, query string, references []Reference, fast bool) string {
	template := detailedPromptTemplate
	if fast {
		template = fastPromptTemplate
	}

	excerpts := make([]string, len(references))
	for i, ref := range references {
		excerpts[i] = fmt.Sprintf("REFERENCE: %s\n%s", ref.Title, ref.Excerpt)
	}

	fixedTokens := budget.Estimate(advisorPersona) + budget.Estimate(template) + budget.Estimate(query)
	trimmed := budget.TrimExcerpts(excerpts, fixedTokens, a.maxContextTokens)
	if dropped := len(excerpts) - len(trimmed); dropped > 0 {
		logging.FromContext(ctx).Warn("advisor: trimmed case studies to fit context budget",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(trimmed)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	return fmt.Sprintf(template, query, strings.Join(trimmed, "\n\n"))
}

// buildReferences maps retrieval hits to answer references, preserving the
// most-relevant-first order.
func buildReferences(hits []index.Hit) []Reference {
	refs := make([]Reference, 0, len(hits))
	for _, h := range hits {
		org := h.Metadata["organization"]
		if org == "" {
			org = "Unknown Organization"
		}
		campaign := h.Metadata["campaign"]
		if campaign == "" {
			campaign = "Unknown Campaign"
		}
		refs = append(refs, Reference{
			RecordID:     h.RecordID,
			Title:        fmt.Sprintf("%s - %s", org, campaign),
			Organization: org,
			Campaign:     campaign,
			Excerpt:      h.Content,
			Score:        h.Score,
		})
	}
	return refs
}
