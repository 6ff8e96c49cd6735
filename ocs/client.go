// Package ocs provides the operational context specification service and
// its client. The specification is an opaque blob to the workflow engine:
// fetched once per run and injected verbatim into planning and
// summarization prompts.
package ocs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client fetches the context specification over HTTP, one GET per run.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a specification client with a bounded timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchSpec returns the specification blob as text. Transport failures
// propagate; the engine aborts the run on them.
func (c *Client) FetchSpec(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get_ocs_prompt", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch context specification: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read context specification: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("context provider returned status %d: %s", resp.StatusCode, string(body))
	}

	return string(body), nil
}
