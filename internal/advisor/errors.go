package advisor

import (
	"fmt"

	"github.com/givetide/givetide-go/internal/provider"
)

// GenerationError reports a failed LLM call during advice generation. It
// records the model tier so operators can tell fast-mode failures apart
// from detailed-mode ones.
type GenerationError struct {
	Tier provider.Tier
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("advisor: %s tier generation failed: %v", e.Tier, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
