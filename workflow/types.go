// Package workflow implements the monitoring question-answering engine:
// plan generation, inter-step parameter resolution, sequential fault-isolated
// execution and streamed summarization.
//
// Information Hiding:
// - Prompt construction hidden in planner/resolver/summarizer
// - Repair sub-protocol hidden in the resolver
// - State machine sequencing hidden in the runner
package workflow

import (
	"encoding/json"
	"fmt"
)

// Step is a single tool invocation request: a tool name and its
// parameter mapping. Values may be scalars, strings, lists, or empty.
type Step struct {
	ToolName string         `json:"tool_name"`
	Params   map[string]any `json:"params"`
}

// String renders the step as compact JSON for prompts and logs.
func (s Step) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("{tool_name: %s}", s.ToolName)
	}
	return string(data)
}

// Plan is the ordered sequence of steps produced once per run.
// It is never empty; generation bounds it to 1-3 steps but the bound is
// not re-validated downstream.
type Plan []Step

// StepResult records the outcome of one step: the tool's value on
// success, or an error message on failure. Failures are data, not
// control flow.
type StepResult struct {
	ToolName string `json:"tool_name"`
	Result   any    `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Failed reports whether the step recorded an error.
func (r StepResult) Failed() bool {
	return r.Error != ""
}

// Trace is the ordered sequence of step results, always 1:1 and
// order-preserving with the plan that produced it.
type Trace []StepResult

// String renders the trace as compact JSON for digest and summary prompts.
func (t Trace) String() string {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Sprintf("%v", []StepResult(t))
	}
	return string(data)
}

// Store accumulates step results within one run for template
// substitution by later steps. It is scoped to a single run and never
// accessed concurrently.
type Store map[string]any

// Put records a step's result under its tool name.
func (s Store) Put(toolName string, result any) {
	s[toolName] = result
}

// Lookup returns the stored value rendered as a string, for splicing
// into template placeholders.
func (s Store) Lookup(key string) (string, bool) {
	v, ok := s[key]
	if !ok {
		return "", false
	}
	switch value := v.(type) {
	case string:
		return value, true
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value), true
		}
		return string(data), true
	}
}
