// Package tools provides the monitoring tool capability registry.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and schemas hidden in implementations
// - Registry implementation details hidden from consumers
// - Error handling internalized per tool
package tools

import (
	"context"
	"fmt"
)

// ToolParameter defines a parameter schema for a tool.
// Defaults are declared for the planner prompt; the registry does not
// enforce types before invocation. Mismatches surface as invocation errors.
type ToolParameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
}

// ToolMetadata describes what a tool does and how to call it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Signature renders the tool as a call signature for planner prompts,
// e.g. "pods_exceeding_cpu(threshold: float = 0.8)".
func (m ToolMetadata) Signature() string {
	sig := m.Name + "("
	for i, p := range m.Parameters {
		if i > 0 {
			sig += ", "
		}
		sig += p.Name + ": " + p.ParamType
		if p.Default != "" {
			sig += " = " + p.Default
		}
	}
	return sig + ")"
}

// Tool is the interface that all monitoring tools implement.
//
// Information Hiding: Tool implementations hide their query construction,
// backend clients, and error handling strategies behind this interface.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Invoke runs the tool with the given parameter mapping.
	// The mapping is passed as resolved by the engine; values may be of
	// any JSON-decoded type.
	Invoke(ctx context.Context, params map[string]any) (any, error)
}

// Parameter coercion helpers shared by tool implementations. Planner
// output is JSON, so numbers arrive as float64 and lists as []any.

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func floatParam(params map[string]any, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f
		}
	}
	return fallback
}

func intParam(params map[string]any, key string, fallback int) int {
	return int(floatParam(params, key, float64(fallback)))
}

func stringListParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}
