package ocs

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MetricConfig describes one metric exposed through the specification.
type MetricConfig struct {
	Name             string         `yaml:"name" json:"name"`
	Type             string         `yaml:"type" json:"type"`
	Unit             string         `yaml:"unit" json:"unit"`
	Description      string         `yaml:"description" json:"description"`
	AggregationLogic string         `yaml:"aggregation_logic,omitempty" json:"aggregation_logic,omitempty"`
	HealthConfig     map[string]any `yaml:"health_config,omitempty" json:"health_config,omitempty"`
}

// Config is the service configuration loaded from YAML: the policy
// lines, the metric catalog, the source workloads to trace, and an
// optional collection time window.
type Config struct {
	Policy            []string       `yaml:"policy"`
	Metrics           []MetricConfig `yaml:"metrics"`
	Workload          []string       `yaml:"workload"`
	TimeWindowMinutes *int           `yaml:"time_window_minutes"`
}

// AdjacencyDocument is the stored topology snapshot: which workloads
// talk to which, derived from mesh traffic.
type AdjacencyDocument struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty"`
	AdjacencyList    map[string][]string `bson:"adjacency_list"`
	Timestamp        time.Time           `bson:"timestamp"`
	SourceCount      int                 `bson:"source_count"`
	TotalConnections int                 `bson:"total_connections"`
}

// ContextDefinition is one entry of the rendered specification.
type ContextDefinition struct {
	ResourceID string         `json:"resource_id,omitempty"`
	Domain     string         `json:"domain,omitempty"`
	Identity   map[string]any `json:"identity,omitempty"`
	Metrics    []MetricConfig `json:"metrics,omitempty"`
	Topology   map[string]any `json:"topology,omitempty"`
	Policy     []string       `json:"policy,omitempty"`
}

// PromptResponse is the full specification payload served to the engine.
type PromptResponse struct {
	SpecVersion        string              `json:"spec_version"`
	ContextDefinitions []ContextDefinition `json:"context_definitions"`
}
