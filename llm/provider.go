// Package llm provides completion service provider abstractions.
//
// LLM Provider interface - the abstract interface for completion providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling
// - Streaming transport details

package llm

import (
	"context"
)

// Provider defines the abstract interface for completion providers.
// The engine only needs two capabilities: a single-shot completion and
// a streamed completion. Both are stateless except through the prompt text.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Complete sends a single-shot completion request and returns the text.
	Complete(ctx context.Context, prompt string) (string, error)

	// Stream streams a completion, sending text fragments to the provided
	// channel in order. Returns once the service signals end of stream.
	// The channel is not closed by the provider.
	Stream(ctx context.Context, prompt string, chunks chan<- string) error
}
