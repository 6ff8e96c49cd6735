// Prometheus HTTP API client.
//
// Information Hiding:
// - Query URL construction and escaping
// - Response envelope decoding
// - Per-instance headers and transport configuration
//
// Tools fan a query out across every configured Prometheus instance and
// report per-instance results, so a multi-cluster deployment answers in
// one call.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Sample is one instant-query result: a label set and its value.
type Sample struct {
	Metric map[string]string
	Value  float64
}

// queryResponse is the Prometheus API envelope for instant queries.
type queryResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Value  []interface{}     `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

// PromClient queries a single Prometheus instance over its HTTP API.
type PromClient struct {
	name       string
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
}

// NewPromClient creates a client for one Prometheus instance.
func NewPromClient(name, baseURL string, headers map[string]string, timeout time.Duration) *PromClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &PromClient{
		name:    name,
		baseURL: baseURL,
		headers: headers,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the configured instance name.
func (c *PromClient) Name() string {
	return c.name
}

// Query executes a PromQL instant query.
func (c *PromClient) Query(ctx context.Context, promql string) ([]Sample, error) {
	queryURL := fmt.Sprintf("%s/api/v1/query?query=%s", c.baseURL, url.QueryEscape(promql))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("prometheus returned status %d: %s", resp.StatusCode, string(body))
	}

	var envelope queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Status != "success" {
		return nil, fmt.Errorf("prometheus query failed with status: %s", envelope.Status)
	}

	samples := make([]Sample, 0, len(envelope.Data.Result))
	for _, r := range envelope.Data.Result {
		if len(r.Value) != 2 {
			continue
		}
		raw, ok := r.Value[1].(string)
		if !ok {
			continue
		}
		var value float64
		if _, err := fmt.Sscanf(raw, "%g", &value); err != nil {
			continue
		}
		samples = append(samples, Sample{Metric: r.Metric, Value: value})
	}
	return samples, nil
}

// PromPool fans queries out across all configured Prometheus instances.
type PromPool struct {
	clients []*PromClient
}

// NewPromPool creates a pool from per-instance clients.
func NewPromPool(clients ...*PromClient) *PromPool {
	return &PromPool{clients: clients}
}

// Empty reports whether the pool has no instances configured.
func (p *PromPool) Empty() bool {
	return len(p.clients) == 0
}

// Clients returns the configured per-instance clients, for tools that
// need more than one query per instance.
func (p *PromPool) Clients() []*PromClient {
	return p.clients
}

// InstanceResult is the outcome of a query on one instance. Err is set
// when the instance could not be queried; the other instances still answer.
type InstanceResult struct {
	Samples []Sample
	Err     error
}

// QueryAll runs the query sequentially against every instance and returns
// per-instance results keyed by instance name.
func (p *PromPool) QueryAll(ctx context.Context, promql string) map[string]InstanceResult {
	results := make(map[string]InstanceResult, len(p.clients))
	for _, client := range p.clients {
		samples, err := client.Query(ctx, promql)
		results[client.Name()] = InstanceResult{Samples: samples, Err: err}
	}
	return results
}
