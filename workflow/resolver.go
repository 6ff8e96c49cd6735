// Parameter Resolver - fills template placeholders and repairs
// parameters the planner could not determine up front.
//
// Information Hiding:
// - Placeholder syntax and substitution rules
// - The two-call repair sub-protocol and its prompts
// - Classification of "unresolved" values

package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	extjson "github.com/sodafoundation/contexture/internal/json"
	"github.com/sodafoundation/contexture/llm"
)

// ErrResolutionFailed marks a step whose repair output could not be
// parsed into a parameter mapping. The step is recorded as failed in the
// trace; raw repair text is never forwarded to the executor.
var ErrResolutionFailed = errors.New("parameter resolution failed")

var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Resolver resolves a step's parameters against the run's context store,
// invoking the repair sub-protocol when substitution leaves values empty.
type Resolver struct {
	client *llm.Client
}

// NewResolver creates a resolver over the given completion client.
func NewResolver(client *llm.Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve returns the fully-resolved parameter mapping for a step.
// Phase 1 substitutes brace placeholders from the store; phase 2 runs at
// most one repair round trip if any value is still empty. On return
// every parameter key declared on the step has some value (possibly
// still empty); type correctness is not guaranteed.
//
// ErrResolutionFailed is returned when the repair output is unusable; a
// transport error from the completion service is returned as-is and
// aborts the run.
func (r *Resolver) Resolve(ctx context.Context, step Step, store Store, trace Trace) (map[string]any, error) {
	params := make(map[string]any, len(step.Params))
	for k, v := range step.Params {
		if s, ok := v.(string); ok && strings.Contains(s, "{") {
			params[k] = Substitute(s, store)
		} else {
			params[k] = v
		}
	}

	if !hasUnresolved(params) {
		return params, nil
	}

	repaired, err := r.repair(ctx, step, params, trace)
	if err != nil {
		return nil, err
	}

	// The repair replaces the whole mapping, but every key declared on
	// the step must come out assigned.
	for k := range step.Params {
		if _, ok := repaired[k]; !ok {
			repaired[k] = params[k]
		}
	}
	return repaired, nil
}

// Substitute replaces {name} placeholders with store values. It never
// fails: placeholders with no matching key stay literal, and strings
// without placeholders pass through unchanged.
func Substitute(value string, store Store) string {
	return placeholderRe.ReplaceAllStringFunc(value, func(match string) string {
		key := match[1 : len(match)-1]
		if replacement, ok := store.Lookup(key); ok {
			return replacement
		}
		return match
	})
}

// hasUnresolved reports whether any parameter is still empty after
// substitution: nil, a blank string, or an empty list.
func hasUnresolved(params map[string]any) bool {
	for _, v := range params {
		if isEmptyValue(v) {
			return true
		}
	}
	return false
}

func isEmptyValue(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	case []any:
		return len(value) == 0
	case []string:
		return len(value) == 0
	default:
		return false
	}
}

// repairEnvelope is the JSON shape the resolution call must return.
type repairEnvelope struct {
	ToolName string         `json:"tool_name"`
	Params   map[string]any `json:"params"`
}

// repair runs the two-call repair sub-protocol: a digest of the results
// collected so far, then a resolution call that emits the full parameter
// mapping for the pending step. One round trip per step, no retries.
func (r *Resolver) repair(ctx context.Context, step Step, params map[string]any, trace Trace) (map[string]any, error) {
	digestPrompt := fmt.Sprintf(
		"Summarize these tool call results: %s\nProvide a neat minimal summary.", trace)
	digest, err := r.client.Complete(ctx, digestPrompt)
	if err != nil {
		return nil, fmt.Errorf("repair digest: %w", err)
	}

	pending := Step{ToolName: step.ToolName, Params: params}
	resolvePrompt := fmt.Sprintf(
		"Given the previous tool outputs, read carefully and pick the appropriate values "+
			"from previous tool outputs for the pending workflow step. Make sure each value is of "+
			"the correct type (string, number, list) and return the tool call only in JSON format "+
			"with 'tool_name' and 'params' fields. Remove unnecessary characters, and keep the "+
			"number of params the same as the workflow step.\n"+
			"Workflow Step: %s\nPrevious tool results: %s", pending, digest)
	resolution, err := r.client.Complete(ctx, resolvePrompt)
	if err != nil {
		return nil, fmt.Errorf("repair resolution: %w", err)
	}

	envelope, parseErr := extjson.ExtractJSONFromResponse[repairEnvelope](extjson.StripCodeFences(resolution))
	if parseErr != nil || envelope.Params == nil {
		// Raw repair text is not a parameter mapping; forwarding it to
		// the executor would be worse than failing the step.
		return nil, fmt.Errorf("%w for step %q: repair output is not a params mapping", ErrResolutionFailed, step.ToolName)
	}
	return envelope.Params, nil
}
