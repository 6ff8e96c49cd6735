package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	settings, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "ollama" {
		t.Errorf("expected provider 'ollama', got %q", settings.LLM.Provider)
	}
	if settings.LLM.MaxTokens != 1000 {
		t.Errorf("expected max tokens 1000, got %d", settings.LLM.MaxTokens)
	}
	if settings.LLM.Temperature != 0.0 {
		t.Errorf("expected temperature 0.0, got %v", settings.LLM.Temperature)
	}
	if settings.Workflow.MinSteps != 1 || settings.Workflow.MaxSteps != 3 {
		t.Errorf("expected plan bounds 1..3, got %d..%d",
			settings.Workflow.MinSteps, settings.Workflow.MaxSteps)
	}
	if settings.OCS.BaseURL != "http://localhost:8000" {
		t.Errorf("expected default OCS URL, got %q", settings.OCS.BaseURL)
	}
}

func TestNewFromEnvironment(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_MAX_TOKENS", "2048")
	t.Setenv("WORKFLOW_STEP_TIMEOUT", "90s")

	settings, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("provider = %q", settings.LLM.Provider)
	}
	if settings.LLM.MaxTokens != 2048 {
		t.Errorf("max tokens = %d", settings.LLM.MaxTokens)
	}
	if settings.Workflow.StepTimeout != 90*time.Second {
		t.Errorf("step timeout = %v", settings.Workflow.StepTimeout)
	}
}

func TestNewInvalidValue(t *testing.T) {
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")
	if _, err := New(); err == nil {
		t.Error("expected error for invalid LLM_MAX_TOKENS")
	}
}

func TestNewInvalidPlanBounds(t *testing.T) {
	t.Setenv("WORKFLOW_MIN_STEPS", "5")
	t.Setenv("WORKFLOW_MAX_STEPS", "3")
	if _, err := New(); err == nil {
		t.Error("expected error when min exceeds max")
	}
}

func TestLoadInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instances.yaml")
	content := `prometheus_instances:
  - name: prod
    base_url: https://prom.prod.example.com
    headers:
      Authorization: Bearer token
  - name: staging
    base_url: http://prom.staging.example.com:9090
    disable_ssl: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	instances, err := LoadInstances(path)
	if err != nil {
		t.Fatalf("LoadInstances: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("instances = %d, want 2", len(instances))
	}
	if instances[0].Name != "prod" || instances[0].Headers["Authorization"] != "Bearer token" {
		t.Errorf("first instance = %+v", instances[0])
	}
	if !instances[1].DisableSSL {
		t.Error("staging should have disable_ssl set")
	}
}

func TestLoadInstancesRejectsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instances.yaml")
	content := `prometheus_instances:
  - base_url: http://prom:9090
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadInstances(path); err == nil {
		t.Error("expected error for instance without name")
	}
}

func TestLoadInstancesMissingFile(t *testing.T) {
	if _, err := LoadInstances(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
