// Step Executor - one tool call, failures isolated as trace data.

package workflow

import (
	"context"
	"time"

	"github.com/sodafoundation/contexture/tools"
)

// Executor invokes single steps against the tool registry with a bounded
// timeout. Every failure - unknown tool, bad parameters, backend error -
// becomes a StepResult error; execution never aborts the run.
type Executor struct {
	registry *tools.Registry
	timeout  time.Duration
}

// NewExecutor creates an executor over the given registry. A zero
// timeout disables the per-invocation bound.
func NewExecutor(registry *tools.Registry, timeout time.Duration) *Executor {
	return &Executor{registry: registry, timeout: timeout}
}

// ExecuteStep invokes the step's tool with fully-resolved parameters and
// converts any failure into the result entry.
func (e *Executor) ExecuteStep(ctx context.Context, step Step, params map[string]any) StepResult {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	result, err := e.registry.Invoke(ctx, step.ToolName, params)
	if err != nil {
		return StepResult{ToolName: step.ToolName, Error: err.Error()}
	}
	return StepResult{ToolName: step.ToolName, Result: result}
}
