// Plan Generator - turns a natural-language query into a bounded tool
// call sequence.
//
// Information Hiding:
// - Planning prompt construction
// - JSON parse fallback chain
// - Step count bounds

package workflow

import (
	"context"
	"fmt"
	"strings"

	extjson "github.com/sodafoundation/contexture/internal/json"
	"github.com/sodafoundation/contexture/llm"
	"github.com/sodafoundation/contexture/tools"
)

// Planner generates a Plan from a natural-language query, the context
// specification and the registered tool catalog.
type Planner struct {
	client   *llm.Client
	registry *tools.Registry
	minSteps int
	maxSteps int
}

// NewPlanner creates a planner over the given completion client and
// tool registry. Step bounds apply at generation time only.
func NewPlanner(client *llm.Client, registry *tools.Registry, minSteps, maxSteps int) *Planner {
	if minSteps < 1 {
		minSteps = 1
	}
	if maxSteps < minSteps {
		maxSteps = 3
	}
	return &Planner{
		client:   client,
		registry: registry,
		minSteps: minSteps,
		maxSteps: maxSteps,
	}
}

// buildPrompt assembles the planning prompt: JSON-only output, bounded
// step count, empty strings for undeterminable parameters, and the
// context specification injected verbatim.
func (p *Planner) buildPrompt(query, contextSpec string) string {
	var b strings.Builder
	b.WriteString("You are an assistant that converts natural language queries into a sequence of available monitoring tool calls. ")
	b.WriteString("Return ONLY JSON. Each step should include 'tool_name', 'params' (dictionary), ")
	fmt.Fprintf(&b, "arrange it in a logical flow of calls. Limit to a maximum of %d calls and a minimum of %d call.\n", p.maxSteps, p.minSteps)
	b.WriteString("If there are params that can't be filled based on the info you have, make it empty string.\n")
	b.WriteString("A context specification from the context provider follows in JSON format. Based on the natural language query, ")
	b.WriteString("check which workload and metric is applicable along with other parameters from the specification, ")
	b.WriteString("and compose the other tool calls based on the topology in the specification.\n")
	fmt.Fprintf(&b, "Context specification: %s\n", contextSpec)
	b.WriteString("Available Tools:\n")
	b.WriteString(p.registry.Catalog())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Natural language query: %s", query)
	return b.String()
}

// GeneratePlan asks the completion service for a plan. It always returns
// a structurally valid, nonempty Plan: unparseable output degrades to a
// single-step fallback whose tool name is the raw query text (expected
// to fail at execution, which is acceptable).
//
// A transport failure is the only error: the run cannot proceed without
// the completion service.
func (p *Planner) GeneratePlan(ctx context.Context, query, contextSpec string) (Plan, error) {
	response, err := p.client.Complete(ctx, p.buildPrompt(query, contextSpec))
	if err != nil {
		return nil, fmt.Errorf("plan generation: %w", err)
	}

	plan, parseErr := ParsePlan(response)
	if parseErr != nil {
		return FallbackPlan(query), nil
	}
	return plan, nil
}

// ParsePlan parses planner output into a Plan. Code fences are stripped;
// a JSON array is used directly, a single JSON object is coerced into a
// one-element Plan. Anything else is a parse error - the caller decides
// whether to fall back.
func ParsePlan(response string) (Plan, error) {
	cleaned := extjson.StripCodeFences(response)

	if steps, err := extjson.ExtractJSONFromResponse[[]Step](cleaned); err == nil {
		if len(steps) == 0 {
			return nil, fmt.Errorf("planner returned an empty step list")
		}
		for i, step := range steps {
			if step.ToolName == "" {
				return nil, fmt.Errorf("planner step %d has no tool_name", i)
			}
		}
		return Plan(steps), nil
	}

	step, err := extjson.ExtractJSONFromResponse[Step](cleaned)
	if err != nil {
		return nil, fmt.Errorf("planner output is not a JSON plan: %w", err)
	}
	if step.ToolName == "" {
		return nil, fmt.Errorf("planner step has no tool_name")
	}
	return Plan{step}, nil
}

// FallbackPlan is the defined degraded mode for unparseable planner
// output: one step whose tool name is the raw query text.
func FallbackPlan(query string) Plan {
	return Plan{{
		ToolName: strings.TrimSpace(query),
		Params:   map[string]any{},
	}}
}
