// Package tools provides tool management and registration.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Registration and discovery mechanisms abstracted
// - Invocation dispatch by string name internalized

package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownTool is returned when an identifier resolves to no registered tool.
var ErrUnknownTool = errors.New("unknown tool")

// Registry maps tool identifiers to typed operation descriptors,
// resolved at call time.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a new tool to the registry.
// Returns error if a tool with the same name already exists.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Metadata().Name
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool '%s' already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Has checks if a tool exists in the registry.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns metadata for all registered tools in name order.
func (r *Registry) List() []ToolMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(r.tools))
	for _, tool := range r.tools {
		metadata = append(metadata, tool.Metadata())
	}
	sort.Slice(metadata, func(i, j int) bool { return metadata[i].Name < metadata[j].Name })
	return metadata
}

// Invoke dispatches a call to the named tool. An unknown identifier
// yields ErrUnknownTool. Parameter types are not validated against the
// schema before invocation.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]any) (any, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return tool.Invoke(ctx, params)
}

// Catalog returns a signature list of all tools for planner prompts,
// one "- name(param: type = default)" line per tool.
func (r *Registry) Catalog() string {
	var lines []string
	for _, meta := range r.List() {
		lines = append(lines, "- "+meta.Signature())
	}
	return strings.Join(lines, "\n")
}

// Description returns a formatted long-form description of all tools.
func (r *Registry) Description() string {
	var descriptions []string
	for _, meta := range r.List() {
		var params []string
		for _, p := range meta.Parameters {
			required := "optional"
			if p.Required {
				required = "required"
			}
			params = append(params, fmt.Sprintf("  - %s (%s): %s [%s]",
				p.Name, p.ParamType, p.Description, required))
		}

		paramStr := strings.Join(params, "\n")
		descriptions = append(descriptions, fmt.Sprintf(
			"Tool: %s\nDescription: %s\nParameters:\n%s",
			meta.Name, meta.Description, paramStr))
	}

	return strings.Join(descriptions, "\n\n")
}
