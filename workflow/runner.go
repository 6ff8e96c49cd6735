// Workflow Runner - drives one run through its state machine:
// PLANNING -> EXECUTING(0) -> ... -> EXECUTING(n-1) -> DONE.
//
// Per-step failures are data recorded in the trace, not control flow;
// there is no error terminal state distinct from DONE. Only a plan
// generation failure or an unreachable service aborts a run.

package workflow

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sodafoundation/contexture/llm"
	"github.com/sodafoundation/contexture/tools"
)

// ErrServiceUnavailable wraps transport failures against the completion
// service or the context specification provider. Runs abort on it.
var ErrServiceUnavailable = errors.New("service unavailable")

// SpecFetcher returns the opaque context specification blob, fetched
// once per run.
type SpecFetcher interface {
	FetchSpec(ctx context.Context) (string, error)
}

// Config carries everything a runner needs, constructed once and passed
// in explicitly. No package-level state.
type Config struct {
	Client      *llm.Client
	Registry    *tools.Registry
	ContextSpec SpecFetcher
	MinSteps    int
	MaxSteps    int
	StepTimeout time.Duration
}

// RunResult is the outcome of one completed run. Plan and Trace are
// discarded by callers after the turn; only the summary text outlives
// the run, folded into the conversational context by the shell.
type RunResult struct {
	RunID   string
	Plan    Plan
	Trace   Trace
	Summary string
}

// Runner executes one workflow run at a time: plan, then resolve and
// execute each step strictly sequentially, then summarize. Steps never
// run concurrently; a later step's parameters may reference only results
// of strictly earlier steps.
type Runner struct {
	planner    *Planner
	resolver   *Resolver
	executor   *Executor
	summarizer *Summarizer
	specs      SpecFetcher
}

// NewRunner builds a runner from an explicit configuration.
func NewRunner(cfg Config) *Runner {
	return &Runner{
		planner:    NewPlanner(cfg.Client, cfg.Registry, cfg.MinSteps, cfg.MaxSteps),
		resolver:   NewResolver(cfg.Client),
		executor:   NewExecutor(cfg.Registry, cfg.StepTimeout),
		summarizer: NewSummarizer(cfg.Client),
		specs:      cfg.ContextSpec,
	}
}

// Run executes one full workflow for the query and streams the summary
// fragments to chunks (if non-nil). On success the trace has exactly one
// entry per plan step, in plan order. An error means the run aborted and
// contributes nothing to conversational context.
func (r *Runner) Run(ctx context.Context, query string, chunks chan<- string) (RunResult, error) {
	runID := uuid.New().String()

	contextSpec, err := r.specs.FetchSpec(ctx)
	if err != nil {
		return RunResult{}, errors.Join(ErrServiceUnavailable, err)
	}
	log.Printf("run %s: fetched context specification (%d bytes)", runID, len(contextSpec))

	// PLANNING
	plan, err := r.planner.GeneratePlan(ctx, query, contextSpec)
	if err != nil {
		return RunResult{}, errors.Join(ErrServiceUnavailable, err)
	}
	log.Printf("run %s: plan has %d steps", runID, len(plan))

	// EXECUTING(i), strictly in plan order
	store := make(Store)
	trace := make(Trace, 0, len(plan))
	for i, step := range plan {
		log.Printf("run %s: executing step %d/%d: %s", runID, i+1, len(plan), step.ToolName)

		params, err := r.resolver.Resolve(ctx, step, store, trace)
		if err != nil {
			if errors.Is(err, ErrResolutionFailed) {
				// Resolution failure is a step outcome, not a run failure.
				trace = append(trace, StepResult{ToolName: step.ToolName, Error: err.Error()})
				continue
			}
			return RunResult{}, errors.Join(ErrServiceUnavailable, err)
		}

		result := r.executor.ExecuteStep(ctx, step, params)
		trace = append(trace, result)
		if !result.Failed() {
			store.Put(step.ToolName, result.Result)
		}
	}

	// DONE: stream the narrative
	summary, err := r.summarizer.Summarize(ctx, trace, contextSpec, chunks)
	if err != nil {
		return RunResult{}, errors.Join(ErrServiceUnavailable, err)
	}

	return RunResult{
		RunID:   runID,
		Plan:    plan,
		Trace:   trace,
		Summary: summary,
	}, nil
}
