// Summarizer - streams the final narrative from the full trace.

package workflow

import (
	"context"
	"fmt"

	"github.com/sodafoundation/contexture/llm"
)

// Summarizer produces the turn's answer: one streaming completion over
// the execution trace and the context specification. The stream has no
// timeout and is read until the service signals completion.
type Summarizer struct {
	client *llm.Client
}

// NewSummarizer creates a summarizer over the given completion client.
func NewSummarizer(client *llm.Client) *Summarizer {
	return &Summarizer{client: client}
}

// Summarize streams the narrative, forwarding fragments to chunks (if
// non-nil) and returning the concatenated text. The specification's
// policy section drives how results are interpreted.
func (s *Summarizer) Summarize(ctx context.Context, trace Trace, contextSpec string, chunks chan<- string) (string, error) {
	prompt := fmt.Sprintf(
		"Summarize these tool call results: %s\nProvide a neat minimal summary. "+
			"Interpret based on the context specification provided and apply the policy "+
			"in the specification to the results: %s", trace, contextSpec)

	summary, err := s.client.Stream(ctx, prompt, chunks)
	if err != nil {
		return "", fmt.Errorf("summarization: %w", err)
	}
	return summary, nil
}
