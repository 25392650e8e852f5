package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/givetide/givetide-go/internal/logging"
)

// Enhancer expands a user query with fundraising terminology before
// retrieval, using the fast model tier. It always fails open: any error,
// empty output, or degenerate output falls back to the original query so a
// broken enhancement model can never block an answer.
type Enhancer struct {
	model model.BaseChatModel
}

// NewEnhancer wraps the fast-tier chat model as a query enhancer.
func NewEnhancer(m model.BaseChatModel) (*Enhancer, error) {
	if m == nil {
		return nil, fmt.Errorf("advisor: enhancer model must not be nil")
	}
	return &Enhancer{model: m}, nil
}

// Enhance returns an expanded version of query for retrieval, or query
// itself when enhancement is not possible.
func (e *Enhancer) Enhance(ctx context.Context, query string) string {
	if strings.TrimSpace(query) == "" {
		return query
	}

	log := logging.FromContext(ctx)
	prompt := fmt.Sprintf(enhancementPromptTemplate, query)

	resp, err := e.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		log.Warn("advisor: query enhancement failed, using original query", slog.Any("error", err))
		return query
	}

	enhanced := strings.TrimSpace(resp.Content)
	if enhanced == "" {
		log.Warn("advisor: query enhancement returned empty result, using original query")
		return query
	}

	log.Debug("advisor: enhanced query",
		slog.Int("original_len", len(query)),
		slog.Int("enhanced_len", len(enhanced)),
	)
	return enhanced
}
