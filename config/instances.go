package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PrometheusInstance describes one monitoring backend the tools query.
type PrometheusInstance struct {
	Name       string            `yaml:"name"`
	BaseURL    string            `yaml:"base_url"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	DisableSSL bool              `yaml:"disable_ssl,omitempty"`
	Timeout    time.Duration     `yaml:"timeout,omitempty"`
}

type instancesFile struct {
	PrometheusInstances []PrometheusInstance `yaml:"prometheus_instances"`
}

// LoadInstances reads the Prometheus instance list from a YAML file.
// Every instance needs a name and a base URL.
func LoadInstances(path string) ([]PrometheusInstance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instances config: %w", err)
	}

	var file instancesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse instances config: %w", err)
	}

	if len(file.PrometheusInstances) == 0 {
		return nil, fmt.Errorf("no prometheus_instances defined in %s", path)
	}
	for i, instance := range file.PrometheusInstances {
		if instance.Name == "" {
			return nil, fmt.Errorf("instance %d has no name", i)
		}
		if instance.BaseURL == "" {
			return nil, fmt.Errorf("instance %q has no base_url", instance.Name)
		}
	}

	return file.PrometheusInstances, nil
}
