package embeddings

import "fmt"

// ProviderError is returned when an embedding provider fails to produce a
// vector, for example because the model is unavailable.
type ProviderError struct {
	// Provider names the failing backend (e.g. "ollama").
	Provider string

	Err error
}

// NewProviderError wraps err as a failure of the named provider.
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
