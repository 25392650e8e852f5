package embedder

import (
	"errors"
	"fmt"
)

// ProviderError describes a failed call to an embedding backend. Transient
// marks failures worth retrying (rate limits, server errors, network
// trouble); everything else is a configuration or request problem that a
// retry cannot fix.
type ProviderError struct {
	// Backend is the provider name ("openai", "ollama", "azure").
	Backend string
	// StatusCode is the HTTP status, or 0 for transport-level failures.
	StatusCode int
	// Message is the provider's error text, or a synthesized description.
	Message string
	// Transient reports whether the failure is worth retrying.
	Transient bool
	// Err is the underlying error, if any.
	Err error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s embedder: HTTP %d: %s", e.Backend, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s embedder: %s", e.Backend, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a ProviderError marked transient.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

// statusTransient classifies an HTTP status code. Rate limiting and server
// side failures are retryable; client errors are not.
func statusTransient(code int) bool {
	return code == 429 || code == 408 || code >= 500
}
