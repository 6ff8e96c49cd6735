// Google Gemini Provider implementation using official google.golang.org/genai SDK.
//
// Information Hiding:
// - API authentication and client creation
// - Request/response format for Gemini API
// - Streaming via official SDK iterator

package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google Gemini.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	initErr     error // Stores client initialization error for deferred reporting
}

// NewGeminiProvider creates a new Gemini provider.
// If client initialization fails, the error is stored and returned on first use.
func NewGeminiProvider(apiKey, model string, maxTokens uint32, temperature float32) *GeminiProvider {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &GeminiProvider{
			model:       model,
			maxTokens:   int32(maxTokens),
			temperature: temperature,
			initErr:     fmt.Errorf("failed to initialize Gemini client: %w", err),
		}
	}

	return &GeminiProvider{
		client:      client,
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the current model.
func (p *GeminiProvider) Model() string {
	return p.model
}

func (p *GeminiProvider) ready() error {
	if p.initErr != nil {
		return p.initErr
	}
	if p.client == nil {
		return fmt.Errorf("gemini client not initialized")
	}
	return nil
}

func (p *GeminiProvider) config() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	}
}

// Complete sends a single-shot completion request.
func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := p.ready(); err != nil {
		return "", err
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	response, err := p.client.Models.GenerateContent(ctx, p.model, contents, p.config())
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	content := response.Text()
	if content == "" {
		return "", fmt.Errorf("empty response from Gemini")
	}
	return content, nil
}

// Stream streams a completion.
func (p *GeminiProvider) Stream(ctx context.Context, prompt string, chunks chan<- string) error {
	if err := p.ready(); err != nil {
		return err
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	// GenerateContentStream returns iter.Seq2[*GenerateContentResponse, error]
	for response, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, p.config()) {
		if err != nil {
			return fmt.Errorf("stream error: %w", err)
		}

		text := response.Text()
		if text != "" {
			select {
			case chunks <- text:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return nil
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
