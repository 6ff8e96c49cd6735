// Topology collection: service mesh traffic queried from Prometheus and
// reduced to a workload adjacency list.
//
// Information Hiding:
// - PromQL construction for mesh request counters
// - Instant vs range query selection
// - Response envelope decoding

package ocs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// meshQueryResult is the Prometheus envelope for instant queries.
type meshQueryResult struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Value  []interface{}     `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

// meshRangeResult is the Prometheus envelope for range queries.
type meshRangeResult struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Values [][]interface{}   `json:"values"`
		} `json:"result"`
	} `json:"data"`
}

// MeshConnector queries istio request metrics from one Prometheus.
type MeshConnector struct {
	prometheusURL string
	httpClient    *http.Client
}

// NewMeshConnector creates a connector against the given Prometheus URL.
func NewMeshConnector(prometheusURL string) *MeshConnector {
	return &MeshConnector{
		prometheusURL: prometheusURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CollectAdjacency queries istio_requests_total for the given source
// workloads and reduces the series to an adjacency list. A nil time
// range selects an instant query; otherwise unique source/destination
// pairs over the range are collected.
func (m *MeshConnector) CollectAdjacency(ctx context.Context, sourceWorkloads []string, from, to *time.Time) (map[string][]string, error) {
	if len(sourceWorkloads) == 0 {
		return nil, fmt.Errorf("no source workloads provided")
	}

	query := fmt.Sprintf(`istio_requests_total{source_workload=~"%s"}`, strings.Join(sourceWorkloads, "|"))

	var labelSets []map[string]string
	var err error
	if from != nil && to != nil {
		labelSets, err = m.queryRangeLabels(ctx, query, *from, *to)
	} else {
		labelSets, err = m.queryInstantLabels(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	return extractAdjacency(labelSets), nil
}

func (m *MeshConnector) queryInstantLabels(ctx context.Context, query string) ([]map[string]string, error) {
	queryURL := fmt.Sprintf("%s/api/v1/query?query=%s", m.prometheusURL, url.QueryEscape(query))
	log.Printf("querying prometheus (instant): %s", query)

	body, err := m.get(ctx, queryURL)
	if err != nil {
		return nil, err
	}

	var result meshQueryResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("prometheus query failed with status: %s", result.Status)
	}

	labelSets := make([]map[string]string, 0, len(result.Data.Result))
	for _, r := range result.Data.Result {
		labelSets = append(labelSets, r.Metric)
	}
	return labelSets, nil
}

func (m *MeshConnector) queryRangeLabels(ctx context.Context, query string, from, to time.Time) ([]map[string]string, error) {
	const step = "15s"
	queryURL := fmt.Sprintf("%s/api/v1/query_range?query=%s&start=%d&end=%d&step=%s",
		m.prometheusURL, url.QueryEscape(query), from.Unix(), to.Unix(), step)
	log.Printf("querying prometheus (range): %s from %s to %s",
		query, from.Format(time.RFC3339), to.Format(time.RFC3339))

	body, err := m.get(ctx, queryURL)
	if err != nil {
		return nil, err
	}

	var result meshRangeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Status != "success" {
		return nil, fmt.Errorf("prometheus query failed with status: %s", result.Status)
	}

	// Only the unique label combinations matter for topology.
	seen := make(map[string]map[string]string)
	for _, r := range result.Data.Result {
		seen[fmt.Sprintf("%v", r.Metric)] = r.Metric
	}
	labelSets := make([]map[string]string, 0, len(seen))
	for _, metric := range seen {
		labelSets = append(labelSets, metric)
	}
	return labelSets, nil
}

func (m *MeshConnector) get(ctx context.Context, queryURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prometheus returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// extractAdjacency reduces label sets to a source -> destinations map
// with duplicates removed.
func extractAdjacency(labelSets []map[string]string) map[string][]string {
	adjacency := make(map[string][]string)
	for _, labels := range labelSets {
		source := labels["source_workload"]
		destination := labels["destination_workload"]
		if source == "" || destination == "" {
			continue
		}

		exists := false
		for _, dest := range adjacency[source] {
			if dest == destination {
				exists = true
				break
			}
		}
		if !exists {
			adjacency[source] = append(adjacency[source], destination)
		}
	}
	return adjacency
}

// BuildContextDefinitions renders one context definition per workload
// known from either topology or configuration: identity, the metric
// catalog, the policy lines, and the workload's dependency edges.
func BuildContextDefinitions(adjacency map[string][]string, config *Config) []ContextDefinition {
	workloadSet := make(map[string]bool)
	for source, destinations := range adjacency {
		workloadSet[source] = true
		for _, dest := range destinations {
			workloadSet[dest] = true
		}
	}
	for _, workload := range config.Workload {
		workloadSet[workload] = true
	}

	workloads := make([]string, 0, len(workloadSet))
	for workload := range workloadSet {
		workloads = append(workloads, workload)
	}
	sort.Strings(workloads)

	definitions := make([]ContextDefinition, 0, len(workloads))
	for _, workload := range workloads {
		definition := ContextDefinition{
			ResourceID: fmt.Sprintf("workload-%s", workload),
			Domain:     "compute.k8s",
			Identity: map[string]any{
				"workload": workload,
			},
			Metrics: config.Metrics,
			Policy:  config.Policy,
		}

		if topology := buildTopology(adjacency, workload); len(topology) > 0 {
			definition.Topology = topology
		}

		definitions = append(definitions, definition)
	}
	return definitions
}

// buildTopology collects forward and reverse dependency edges for one workload.
func buildTopology(adjacency map[string][]string, workload string) map[string]any {
	topology := make(map[string]any)

	if destinations, exists := adjacency[workload]; exists && len(destinations) > 0 {
		topology["dependencies"] = destinations
	}

	var dependents []string
	for source, destinations := range adjacency {
		for _, dest := range destinations {
			if dest == workload {
				dependents = append(dependents, source)
			}
		}
	}
	if len(dependents) > 0 {
		sort.Strings(dependents)
		topology["dependents"] = dependents
	}

	return topology
}
