// Anthropic Provider implementation using official anthropic-sdk-go.
//
// Information Hiding:
// - API endpoint and authentication
// - Request/response format for Anthropic Messages API
// - Streaming via official SDK
//
// The Messages API has no raw-completions endpoint; the prompt is sent as
// a single user message.

package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements the Provider interface for Anthropic Claude.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string, maxTokens uint32, temperature float32) *AnthropicProvider {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:      client,
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: float64(temperature),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

func (p *AnthropicProvider) params(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(p.temperature),
	}
}

// Complete sends a single-shot completion request.
func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	message, err := p.client.Messages.New(ctx, p.params(prompt))
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	content := ""
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			content += variant.Text
		}
	}
	return content, nil
}

// Stream streams a completion.
func (p *AnthropicProvider) Stream(ctx context.Context, prompt string, chunks chan<- string) error {
	stream := p.client.Messages.NewStreaming(ctx, p.params(prompt))

	for stream.Next() {
		event := stream.Current()

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if deltaVariant.Text != "" {
					select {
					case chunks <- deltaVariant.Text:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			}
		}
	}

	if stream.Err() != nil {
		return fmt.Errorf("stream error: %w", stream.Err())
	}
	return nil
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
