// OpenAI-compatible Provider implementation using go-openai library.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for the legacy /v1/completions API
// - Streaming via go-openai library
//
// The same provider serves api.openai.com and any OpenAI-compatible
// endpoint such as a local Ollama (http://localhost:11434/v1), which is
// the deployment the monitoring shell was written against.

package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface for OpenAI-compatible APIs.
type OpenAIProvider struct {
	client      *openai.Client
	name        string
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates a new provider against api.openai.com.
func NewOpenAIProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		name:        "openai",
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// NewOpenAICompatProvider creates a provider against an OpenAI-compatible
// base URL (e.g. an Ollama /v1 endpoint). The API key may be empty for
// servers that do not authenticate.
func NewOpenAICompatProvider(name, baseURL, apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		name:        name,
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Complete sends a single-shot completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       p.model,
		Prompt:      prompt,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return resp.Choices[0].Text, nil
}

// Stream streams a completion.
func (p *OpenAIProvider) Stream(ctx context.Context, prompt string, chunks chan<- string) error {
	stream, err := p.client.CreateCompletionStream(ctx, openai.CompletionRequest{
		Model:       p.model,
		Prompt:      prompt,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
		Stream:      true,
	})
	if err != nil {
		return fmt.Errorf("stream creation failed: %w", err)
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stream recv failed: %w", err)
		}

		if len(response.Choices) > 0 {
			text := response.Choices[0].Text
			if text != "" {
				select {
				case chunks <- text:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
