// Client - timeout-enforcing wrapper around providers.

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Client wraps a Provider and applies the engine's timeout discipline:
// single-shot completions are bounded, streamed completions are read until
// the service signals completion with no deadline.
type Client struct {
	provider Provider
	timeout  time.Duration
}

// NewClient creates a new completion client from a provider.
// A zero timeout disables the bound on single-shot completions.
func NewClient(provider Provider, timeout time.Duration) *Client {
	return &Client{provider: provider, timeout: timeout}
}

// Complete sends a single-shot completion request with the configured timeout.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	text, err := c.provider.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("completion via %s: %w", c.provider.Name(), err)
	}
	return text, nil
}

// Stream streams a completion and returns the concatenated text. Fragments
// are forwarded to chunks (if non-nil) as they arrive. No timeout applies;
// the stream is read until the provider reports end of stream.
func (c *Client) Stream(ctx context.Context, prompt string, chunks chan<- string) (string, error) {
	inner := make(chan string)
	done := make(chan error, 1)

	go func() {
		done <- c.provider.Stream(ctx, prompt, inner)
		close(inner)
	}()

	var full strings.Builder
	for fragment := range inner {
		full.WriteString(fragment)
		if chunks != nil {
			select {
			case chunks <- fragment:
			case <-ctx.Done():
			}
		}
	}

	if err := <-done; err != nil {
		return full.String(), fmt.Errorf("streaming completion via %s: %w", c.provider.Name(), err)
	}
	return full.String(), nil
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}
