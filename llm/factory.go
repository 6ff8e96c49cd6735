// LLM Provider Factory - builder-first API for creating completion providers.
//
// Quick Start:
//
//	// Local Ollama with defaults (no API key required)
//	local, err := llm.ProviderOllama.FromEnv()
//
//	// Hosted providers, API key from environment
//	claude, err := llm.ProviderAnthropic.FromEnv()
//
//	// Full configuration
//	custom, err := llm.ProviderOllama.
//	    Model("qwen2.5:14b").
//	    BaseURL("http://ollama.internal:11434/v1").
//	    Temperature(0.0).
//	    FromEnv()

package llm

import (
	"fmt"
	"os"
	"strings"
)

// ProviderType represents supported completion providers.
type ProviderType int

const (
	// ProviderOllama is a local OpenAI-compatible Ollama endpoint.
	ProviderOllama ProviderType = iota
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
)

const defaultOllamaBaseURL = "http://localhost:11434/v1"

// String returns the string representation of the provider type.
func (p ProviderType) String() string {
	switch p {
	case ProviderOllama:
		return "ollama"
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable name for this provider's API key.
// Ollama endpoints do not authenticate and have no key variable.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderOllama:
		return "llama3.1:8b"
	case ProviderOpenAI:
		return "gpt-4o"
	case ProviderAnthropic:
		return "claude-sonnet-4-20250514"
	case ProviderGemini:
		return "gemini-2.5-flash"
	default:
		return ""
	}
}

// ParseProviderType parses a provider from string (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(s) {
	case "ollama", "local":
		return ProviderOllama, nil
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// FromEnv creates a provider with defaults, reading the API key from the environment.
func (p ProviderType) FromEnv() (Provider, error) {
	return NewProviderBuilder(p).FromEnv()
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// APIKey creates a provider with an explicit API key (uses defaults for everything else).
func (p ProviderType) APIKey(key string) (Provider, error) {
	return NewProviderBuilder(p).APIKey(key)
}

// ProviderBuilder is a builder for configuring completion providers.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	baseURL      string
	maxTokens    uint32
	temperature  *float32
}

// NewProviderBuilder creates a new builder for the given provider.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{
		providerType: providerType,
	}
}

// Model sets the model to use.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// BaseURL sets the endpoint base URL (OpenAI-compatible providers only).
func (b *ProviderBuilder) BaseURL(baseURL string) *ProviderBuilder {
	b.baseURL = baseURL
	return b
}

// MaxTokens sets maximum tokens for responses.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

// Temperature sets temperature (0.0 = deterministic, 1.0 = creative).
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// FromEnv builds the provider, reading the API key from the environment.
func (b *ProviderBuilder) FromEnv() (Provider, error) {
	envVar := b.providerType.EnvVar()
	if envVar == "" {
		return b.build("")
	}
	apiKey := os.Getenv(envVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %s environment variable not set", b.providerType, envVar)
	}
	return b.build(apiKey)
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	return b.build(key)
}

func (b *ProviderBuilder) build(apiKey string) (Provider, error) {
	model := b.model
	if model == "" {
		model = b.providerType.DefaultModel()
	}

	maxTokens := b.maxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	// Deterministic by default: plan and repair calls must be reproducible.
	temperature := float32(0.0)
	if b.temperature != nil {
		temperature = *b.temperature
	}

	switch b.providerType {
	case ProviderOllama:
		baseURL := b.baseURL
		if baseURL == "" {
			baseURL = os.Getenv("OLLAMA_BASE_URL")
		}
		if baseURL == "" {
			baseURL = defaultOllamaBaseURL
		}
		return NewOpenAICompatProvider("ollama", baseURL, apiKey, model, maxTokens, temperature), nil
	case ProviderOpenAI:
		if b.baseURL != "" {
			return NewOpenAICompatProvider("openai", b.baseURL, apiKey, model, maxTokens, temperature), nil
		}
		return NewOpenAIProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(apiKey, model, maxTokens, temperature), nil
	case ProviderGemini:
		return NewGeminiProvider(apiKey, model, maxTokens, temperature), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %v", b.providerType)
	}
}
