// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	LLM      LLMConfig
	Workflow WorkflowConfig
	OCS      OCSConfig
}

// LLMConfig holds completion provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// WorkflowConfig bounds plan size and tool execution.
type WorkflowConfig struct {
	MinSteps    int
	MaxSteps    int
	StepTimeout time.Duration
}

// OCSConfig locates the context specification provider.
type OCSConfig struct {
	BaseURL string
	Timeout time.Duration
}

// New loads settings from environment variables, applying defaults.
// Returns an error if a variable contains an invalid value.
func New() (Settings, error) {
	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 1000)
	if err != nil {
		return Settings{}, err
	}
	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.0)
	if err != nil {
		return Settings{}, err
	}
	llmTimeout, err := getEnvDuration("LLM_TIMEOUT", 120*time.Second)
	if err != nil {
		return Settings{}, err
	}
	minSteps, err := getEnvInt("WORKFLOW_MIN_STEPS", 1)
	if err != nil {
		return Settings{}, err
	}
	maxSteps, err := getEnvInt("WORKFLOW_MAX_STEPS", 3)
	if err != nil {
		return Settings{}, err
	}
	stepTimeout, err := getEnvDuration("WORKFLOW_STEP_TIMEOUT", 60*time.Second)
	if err != nil {
		return Settings{}, err
	}
	ocsTimeout, err := getEnvDuration("OCS_TIMEOUT", 30*time.Second)
	if err != nil {
		return Settings{}, err
	}

	if minSteps < 1 || maxSteps < minSteps {
		return Settings{}, fmt.Errorf("invalid plan bounds: min=%d max=%d", minSteps, maxSteps)
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "ollama"),
			Model:       os.Getenv("LLM_MODEL"),
			BaseURL:     os.Getenv("OLLAMA_BASE_URL"),
			MaxTokens:   maxTokens,
			Temperature: temperature,
			Timeout:     llmTimeout,
		},
		Workflow: WorkflowConfig{
			MinSteps:    minSteps,
			MaxSteps:    maxSteps,
			StepTimeout: stepTimeout,
		},
		OCS: OCSConfig{
			BaseURL: getEnv("OCS_URL", "http://localhost:8000"),
			Timeout: ocsTimeout,
		},
	}, nil
}

// MustNew loads settings and panics on invalid values.
// Use this only when configuration errors should be fatal.
func MustNew() Settings {
	settings, err := New()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// Environment variable helpers with proper error handling

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
