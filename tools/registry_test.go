package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeTool struct {
	meta   ToolMetadata
	result any
	err    error
}

func (f *fakeTool) Metadata() ToolMetadata { return f.meta }

func (f *fakeTool) Invoke(ctx context.Context, params map[string]any) (any, error) {
	return f.result, f.err
}

func TestRegistryRegisterAndInvoke(t *testing.T) {
	registry := NewRegistry()
	tool := &fakeTool{
		meta:   ToolMetadata{Name: "pod_status_summary", Description: "counts pods"},
		result: map[string]any{"Running": 3},
	}
	if err := registry.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if !registry.Has("pod_status_summary") {
		t.Error("expected registry to have pod_status_summary")
	}

	result, err := registry.Invoke(context.Background(), "pod_status_summary", nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if result.(map[string]any)["Running"] != 3 {
		t.Errorf("unexpected result: %v", result)
	}
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	registry := NewRegistry()
	tool := &fakeTool{meta: ToolMetadata{Name: "dup"}}
	if err := registry.Register(tool); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := registry.Register(tool); err == nil {
		t.Fatal("expected error on duplicate registration")
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Invoke(context.Background(), "show pods exceeding 90% cpu", nil)
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
	if !errors.Is(err, ErrUnknownTool) {
		t.Errorf("expected ErrUnknownTool, got: %v", err)
	}
}

func TestRegistryCatalog(t *testing.T) {
	registry := NewRegistry()
	err := registry.Register(&fakeTool{
		meta: ToolMetadata{
			Name:        "pods_exceeding_cpu",
			Description: "threshold check",
			Parameters: []ToolParameter{
				{Name: "threshold", ParamType: "float", Default: "0.8"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	catalog := registry.Catalog()
	if !strings.Contains(catalog, "- pods_exceeding_cpu(threshold: float = 0.8)") {
		t.Errorf("unexpected catalog: %q", catalog)
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := registry.Register(&fakeTool{meta: ToolMetadata{Name: name}}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}
	names := registry.Names()
	if names[0] != "alpha" || names[1] != "mid" || names[2] != "zeta" {
		t.Errorf("expected sorted names, got %v", names)
	}
}
