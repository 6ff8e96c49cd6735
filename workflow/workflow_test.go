package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/sodafoundation/contexture/llm"
	"github.com/sodafoundation/contexture/tools"
)

// scriptedProvider replays a fixed sequence of completion responses and
// a fixed set of stream fragments.
type scriptedProvider struct {
	completions []string
	calls       int
	fragments   []string
	completeErr error
	streamErr   error
	prompts     []string
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "test" }

func (p *scriptedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.completeErr != nil {
		return "", p.completeErr
	}
	if p.calls >= len(p.completions) {
		return "", fmt.Errorf("no scripted completion for call %d", p.calls)
	}
	response := p.completions[p.calls]
	p.calls++
	return response, nil
}

func (p *scriptedProvider) Stream(ctx context.Context, prompt string, chunks chan<- string) error {
	p.prompts = append(p.prompts, prompt)
	if p.streamErr != nil {
		return p.streamErr
	}
	for _, f := range p.fragments {
		select {
		case chunks <- f:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func newTestClient(p *scriptedProvider) *llm.Client {
	return llm.NewClient(p, time.Second)
}

// recordingTool remembers the parameters of its last invocation.
type recordingTool struct {
	meta       tools.ToolMetadata
	result     any
	err        error
	lastParams map[string]any
	calls      int
}

func (t *recordingTool) Metadata() tools.ToolMetadata { return t.meta }

func (t *recordingTool) Invoke(ctx context.Context, params map[string]any) (any, error) {
	t.calls++
	t.lastParams = params
	return t.result, t.err
}

func monitoringRegistry(toolsToAdd ...tools.Tool) *tools.Registry {
	registry := tools.NewRegistry()
	for _, t := range toolsToAdd {
		if err := registry.Register(t); err != nil {
			panic(err)
		}
	}
	return registry
}

// staticSpec serves a fixed context specification blob.
type staticSpec struct {
	blob string
	err  error
}

func (s *staticSpec) FetchSpec(ctx context.Context) (string, error) {
	return s.blob, s.err
}
