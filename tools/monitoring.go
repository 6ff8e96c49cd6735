// Monitoring tool catalog.
//
// Each tool wraps one PromQL question about a Kubernetes fleet and fans
// it out across the configured Prometheus instances. Results are plain
// maps so the engine can feed them back into digest and summary prompts
// without a schema.

package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// promTool is a registry tool backed by the Prometheus pool.
type promTool struct {
	pool *PromPool
	meta ToolMetadata
	run  func(ctx context.Context, pool *PromPool, params map[string]any) (any, error)
}

func (t *promTool) Metadata() ToolMetadata {
	return t.meta
}

func (t *promTool) Invoke(ctx context.Context, params map[string]any) (any, error) {
	if t.pool.Empty() {
		return nil, fmt.Errorf("no prometheus instances configured")
	}
	return t.run(ctx, t.pool, params)
}

// perInstance runs a query on every instance and maps each to the tool's
// shaped payload. Per-instance errors are carried as data, not returned.
func perInstance(ctx context.Context, pool *PromPool, promql string, shape func([]Sample) any) map[string]any {
	out := make(map[string]any)
	for name, res := range pool.QueryAll(ctx, promql) {
		if res.Err != nil {
			out[name] = map[string]any{"error": res.Err.Error()}
			continue
		}
		out[name] = shape(res.Samples)
	}
	return out
}

// perInstanceMulti is perInstance for tools that need more than one
// query per instance; the shape callback drives the instance's client
// directly and its error becomes that instance's payload.
func perInstanceMulti(ctx context.Context, pool *PromPool, shape func(ctx context.Context, client *PromClient) (any, error)) map[string]any {
	out := make(map[string]any)
	for _, client := range pool.Clients() {
		payload, err := shape(ctx, client)
		if err != nil {
			out[client.Name()] = map[string]any{"error": err.Error()}
			continue
		}
		out[client.Name()] = payload
	}
	return out
}

func stamped(key string, value any) map[string]any {
	return map[string]any{
		key:         value,
		"timestamp": time.Now().Format(time.RFC3339),
	}
}

// RegisterMonitoringTools registers the full monitoring catalog against
// the given Prometheus pool.
func RegisterMonitoringTools(registry *Registry, pool *PromPool) error {
	catalog := []Tool{
		newPodsExceedingCPU(pool),
		newCurrentMetricForPods(pool),
		newTopNPodsByMetric(pool),
		newPodNetworkIO(pool),
		newPodStatusSummary(pool),
		newRecentPodEvents(pool),
		newNodeDiskUsage(pool),
		newDescribeClusterHealth(pool),
		newTopDiskPressureNodes(pool),
		newPodRestartTrend(pool),
		newDetectPodAnomalies(pool),
		newNamespaceResourceSummary(pool),
		newDetectCrashloopPods(pool),
		newCorrelateMetrics(pool),
		newPodEventTimeline(pool),
		newNodeConditionSummary(pool),
		newWorkloadMetrics(pool),
	}
	for _, t := range catalog {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("failed to register monitoring tools: %w", err)
		}
	}
	return nil
}

func newPodsExceedingCPU(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "pods_exceeding_cpu",
			Description: "List pods whose CPU usage rate exceeds a threshold (cores)",
			Parameters: []ToolParameter{
				{Name: "threshold", ParamType: "float", Description: "CPU rate threshold", Default: "0.8"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			threshold := floatParam(params, "threshold", 0.8)
			query := fmt.Sprintf("rate(container_cpu_usage_seconds_total[5m]) > %g", threshold)
			results := perInstance(ctx, pool, query, func(samples []Sample) any {
				pods := make([]map[string]any, 0, len(samples))
				for _, s := range samples {
					if pod, ok := s.Metric["pod"]; ok {
						pods = append(pods, map[string]any{"pod": pod, "cpu_value": s.Value})
					}
				}
				return pods
			})
			result := stamped("pods_exceeding_cpu_per_prometheus", results)
			result["threshold"] = threshold
			return result, nil
		},
	}
}

func newTopNPodsByMetric(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "top_n_pods_by_metric",
			Description: "Rank pods by the rate of a counter metric over a window",
			Parameters: []ToolParameter{
				{Name: "metric_name", ParamType: "string", Description: "Counter metric to rank by", Default: "container_cpu_usage_seconds_total"},
				{Name: "top_n", ParamType: "int", Description: "Number of pods to return", Default: "5"},
				{Name: "window", ParamType: "string", Description: "Rate window", Default: "5m"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			metric := stringParam(params, "metric_name", "container_cpu_usage_seconds_total")
			topN := intParam(params, "top_n", 5)
			window := stringParam(params, "window", "5m")
			query := fmt.Sprintf("topk(%d, sum by (pod) (rate(%s[%s])))", topN, metric, window)
			results := perInstance(ctx, pool, query, func(samples []Sample) any {
				pods := make([]map[string]any, 0, len(samples))
				for _, s := range samples {
					if pod, ok := s.Metric["pod"]; ok {
						pods = append(pods, map[string]any{"pod": pod, "value": s.Value})
					}
				}
				sort.Slice(pods, func(i, j int) bool {
					return pods[i]["value"].(float64) > pods[j]["value"].(float64)
				})
				return pods
			})
			result := stamped("top_pods_per_prometheus", results)
			result["metric"] = metric
			result["window"] = window
			return result, nil
		},
	}
}

func phaseCounts(samples []Sample) map[string]int {
	summary := make(map[string]int)
	total := 0
	for _, s := range samples {
		if phase, ok := s.Metric["phase"]; ok {
			summary[phase] = int(s.Value)
			total += int(s.Value)
		}
	}
	summary["total"] = total
	return summary
}

func newPodStatusSummary(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "pod_status_summary",
			Description: "Count pods by lifecycle phase across the fleet",
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			results := perInstance(ctx, pool, "sum(kube_pod_status_phase) by (phase)", func(samples []Sample) any {
				return phaseCounts(samples)
			})
			return stamped("pod_status_summary_per_prometheus", results), nil
		},
	}
}

func newDescribeClusterHealth(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "describe_cluster_health",
			Description: "One-line health assessment derived from pod phases",
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			results := perInstance(ctx, pool, "sum(kube_pod_status_phase) by (phase)", func(samples []Sample) any {
				summary := phaseCounts(samples)
				total := summary["total"]
				running := summary["Running"]
				pending := summary["Pending"]
				failed := summary["Failed"]

				var message string
				switch {
				case failed > 0:
					message = fmt.Sprintf("%d pods are failing. %d/%d pods are running.", failed, running, total)
				case pending > 0:
					message = fmt.Sprintf("%d pods are pending. %d/%d are running fine.", pending, running, total)
				default:
					message = fmt.Sprintf("All systems nominal: %d/%d pods are healthy.", running, total)
				}
				return map[string]any{"summary": summary, "message": message}
			})
			return stamped("cluster_health_per_prometheus", results), nil
		},
	}
}

func newTopDiskPressureNodes(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "top_disk_pressure_nodes",
			Description: "Nodes whose filesystem usage exceeds a percentage threshold",
			Parameters: []ToolParameter{
				{Name: "threshold", ParamType: "float", Description: "Usage percentage threshold", Default: "80.0"},
				{Name: "top_n", ParamType: "int", Description: "Number of nodes to return", Default: "5"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			threshold := floatParam(params, "threshold", 80.0)
			topN := intParam(params, "top_n", 5)
			query := `100 * (1 - (node_filesystem_avail_bytes{fstype!~"tmpfs|overlay"} / node_filesystem_size_bytes{fstype!~"tmpfs|overlay"}))`
			results := perInstance(ctx, pool, query, func(samples []Sample) any {
				nodes := make([]map[string]any, 0)
				for _, s := range samples {
					if s.Value < threshold {
						continue
					}
					nodes = append(nodes, map[string]any{
						"node":          s.Metric["instance"],
						"mount":         s.Metric["mountpoint"],
						"usage_percent": s.Value,
					})
				}
				sort.Slice(nodes, func(i, j int) bool {
					return nodes[i]["usage_percent"].(float64) > nodes[j]["usage_percent"].(float64)
				})
				if len(nodes) > topN {
					nodes = nodes[:topN]
				}
				message := "No nodes are under disk pressure."
				if len(nodes) > 0 {
					message = fmt.Sprintf("%d nodes above %g%% disk usage.", len(nodes), threshold)
				}
				return map[string]any{"nodes": nodes, "message": message, "threshold": threshold}
			})
			return stamped("top_disk_pressure_nodes_per_prometheus", results), nil
		},
	}
}

func newPodRestartTrend(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "pod_restart_trend",
			Description: "Pods with the most container restarts in a window",
			Parameters: []ToolParameter{
				{Name: "window", ParamType: "string", Description: "Lookback window", Default: "30m"},
				{Name: "top_n", ParamType: "int", Description: "Number of pods to return", Default: "5"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			window := stringParam(params, "window", "30m")
			topN := intParam(params, "top_n", 5)
			query := fmt.Sprintf("topk(%d, increase(kube_pod_container_status_restarts_total[%s]))", topN, window)
			results := perInstance(ctx, pool, query, func(samples []Sample) any {
				trends := make([]map[string]any, 0, len(samples))
				for _, s := range samples {
					pod, ok := s.Metric["pod"]
					if !ok {
						continue
					}
					trends = append(trends, map[string]any{
						"pod":       pod,
						"container": s.Metric["container"],
						"restarts":  s.Value,
					})
				}
				sort.Slice(trends, func(i, j int) bool {
					return trends[i]["restarts"].(float64) > trends[j]["restarts"].(float64)
				})
				message := fmt.Sprintf("No recent restarts in the last %s.", window)
				if len(trends) > 0 {
					message = fmt.Sprintf("Pods with recent restarts detected (last %s).", window)
				}
				return map[string]any{"pods": trends, "message": message, "window": window}
			})
			return stamped("pod_restart_trend_per_prometheus", results), nil
		},
	}
}

func newDetectCrashloopPods(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "detect_crashloop_pods",
			Description: "Pods restarting more than a threshold number of times in a window",
			Parameters: []ToolParameter{
				{Name: "window", ParamType: "string", Description: "Lookback window", Default: "10m"},
				{Name: "threshold", ParamType: "int", Description: "Restart count threshold", Default: "2"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			window := stringParam(params, "window", "10m")
			threshold := intParam(params, "threshold", 2)
			query := fmt.Sprintf("increase(kube_pod_container_status_restarts_total[%s]) > %d", window, threshold)
			results := perInstance(ctx, pool, query, func(samples []Sample) any {
				pods := make([]map[string]any, 0, len(samples))
				for _, s := range samples {
					if pod, ok := s.Metric["pod"]; ok {
						pods = append(pods, map[string]any{"pod": pod, "restarts": s.Value})
					}
				}
				return pods
			})
			result := stamped("crashloop_pods_per_prometheus", results)
			result["window"] = window
			result["threshold"] = threshold
			return result, nil
		},
	}
}

func newPodEventTimeline(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "pod_event_timeline",
			Description: "Event reasons recorded for one pod over a window",
			Parameters: []ToolParameter{
				{Name: "pod_name", ParamType: "string", Description: "Pod to inspect", Required: true},
				{Name: "window", ParamType: "string", Description: "Lookback window", Default: "30m"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			pod := stringParam(params, "pod_name", "")
			if pod == "" {
				return nil, fmt.Errorf("pod_name must be provided")
			}
			window := stringParam(params, "window", "30m")
			query := fmt.Sprintf(
				`sort_desc(sum by (reason) (increase(kube_event_count{involved_object_name=%q}[%s])))`,
				pod, window)
			results := perInstance(ctx, pool, query, func(samples []Sample) any {
				events := make([]map[string]any, 0, len(samples))
				for _, s := range samples {
					events = append(events, map[string]any{
						"reason": s.Metric["reason"],
						"count":  int(s.Value),
					})
				}
				return events
			})
			result := stamped("pod_event_timeline_per_prometheus", results)
			result["pod"] = pod
			result["window"] = window
			return result, nil
		},
	}
}

func newNodeConditionSummary(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "node_condition_summary",
			Description: "Count of nodes per active node condition",
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			query := `sum by (condition) (kube_node_status_condition{status="true"})`
			results := perInstance(ctx, pool, query, func(samples []Sample) any {
				conditions := make(map[string]int)
				for _, s := range samples {
					if condition, ok := s.Metric["condition"]; ok {
						conditions[condition] = int(s.Value)
					}
				}
				return conditions
			})
			return stamped("node_condition_summary_per_prometheus", results), nil
		},
	}
}

func newCurrentMetricForPods(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "current_metric_for_pods",
			Description: "Current value of a metric for specific pods",
			Parameters: []ToolParameter{
				{Name: "metric_name", ParamType: "string", Description: "Metric to read", Default: "container_cpu_usage_seconds_total"},
				{Name: "pod_names", ParamType: "list", Description: "Restrict to these pods"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			metric := stringParam(params, "metric_name", "container_cpu_usage_seconds_total")
			var query string
			if pods := stringListParam(params, "pod_names"); len(pods) > 0 {
				query = fmt.Sprintf("%s{pod=~%q}", metric, strings.Join(pods, "|"))
			} else {
				query = fmt.Sprintf(`%s{pod!=""}`, metric)
			}
			results := perInstance(ctx, pool, query, func(samples []Sample) any {
				values := make([]map[string]any, 0, len(samples))
				for _, s := range samples {
					if pod, ok := s.Metric["pod"]; ok {
						values = append(values, map[string]any{"pod": pod, "value": s.Value})
					}
				}
				return values
			})
			result := stamped("current_metric_per_prometheus", results)
			result["metric"] = metric
			return result, nil
		},
	}
}

func newPodNetworkIO(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "pod_network_io",
			Description: "Current network receive/transmit rates for specific pods",
			Parameters: []ToolParameter{
				{Name: "pod_names", ParamType: "list", Description: "Pods to inspect"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			pods := stringListParam(params, "pod_names")
			results := perInstanceMulti(ctx, pool, func(ctx context.Context, client *PromClient) (any, error) {
				io := make([]map[string]any, 0, len(pods))
				for _, pod := range pods {
					rx, err := client.Query(ctx, fmt.Sprintf(`rate(container_network_receive_bytes_total{pod=%q}[5m])`, pod))
					if err != nil {
						return nil, err
					}
					tx, err := client.Query(ctx, fmt.Sprintf(`rate(container_network_transmit_bytes_total{pod=%q}[5m])`, pod))
					if err != nil {
						return nil, err
					}
					entry := map[string]any{"pod": pod, "rx_bytes_per_sec": 0.0, "tx_bytes_per_sec": 0.0}
					if len(rx) > 0 {
						entry["rx_bytes_per_sec"] = rx[0].Value
					}
					if len(tx) > 0 {
						entry["tx_bytes_per_sec"] = tx[0].Value
					}
					io = append(io, entry)
				}
				return io, nil
			})
			return stamped("pod_network_io_per_prometheus", results), nil
		},
	}
}

func newRecentPodEvents(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "recent_pod_events",
			Description: "Most frequent pod events recorded in the last 10 minutes",
			Parameters: []ToolParameter{
				{Name: "limit", ParamType: "int", Description: "Number of events to return", Default: "10"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			limit := intParam(params, "limit", 10)
			query := "sort_desc(sum by (reason, involved_object_name) (increase(kube_event_count[10m])))"
			results := perInstance(ctx, pool, query, func(samples []Sample) any {
				events := make([]map[string]any, 0, len(samples))
				for _, s := range samples {
					if len(events) == limit {
						break
					}
					events = append(events, map[string]any{
						"pod":    s.Metric["involved_object_name"],
						"reason": s.Metric["reason"],
						"count":  int(s.Value),
					})
				}
				return events
			})
			result := stamped("recent_pod_events_per_prometheus", results)
			result["lookback"] = "10m"
			return result, nil
		},
	}
}

// importantMounts are the mount points node_disk_usage reports on.
var importantMounts = map[string]bool{
	"/":        true,
	"/var/lib": true,
	"/data":    true,
}

func newNodeDiskUsage(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "node_disk_usage",
			Description: "Average and peak disk usage (%) per node for important mount points",
			Parameters: []ToolParameter{
				{Name: "window_minutes", ParamType: "int", Description: "Lookback window in minutes", Default: "20"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			windowMinutes := intParam(params, "window_minutes", 20)
			usage := `(100 * (1 - (node_filesystem_avail_bytes{fstype!~"tmpfs|overlay"} / node_filesystem_size_bytes{fstype!~"tmpfs|overlay"})))`
			avgQuery := fmt.Sprintf("avg_over_time(%s[%dm:1m])", usage, windowMinutes)
			maxQuery := fmt.Sprintf("max_over_time(%s[%dm:1m])", usage, windowMinutes)

			results := perInstanceMulti(ctx, pool, func(ctx context.Context, client *PromClient) (any, error) {
				avgSamples, err := client.Query(ctx, avgQuery)
				if err != nil {
					return nil, err
				}
				maxSamples, err := client.Query(ctx, maxQuery)
				if err != nil {
					return nil, err
				}

				peaks := make(map[string]float64, len(maxSamples))
				for _, s := range maxSamples {
					peaks[diskKey(s.Metric)] = s.Value
				}

				nodes := make([]map[string]any, 0)
				for _, s := range avgSamples {
					mount := s.Metric["mountpoint"]
					if !importantMounts[mount] {
						continue
					}
					nodes = append(nodes, map[string]any{
						"node":                   diskNode(s.Metric),
						"mount":                  mount,
						"avg_disk_usage_percent": round2(s.Value),
						"max_disk_usage_percent": round2(peaks[diskKey(s.Metric)]),
					})
				}
				sort.Slice(nodes, func(i, j int) bool {
					return nodes[i]["max_disk_usage_percent"].(float64) > nodes[j]["max_disk_usage_percent"].(float64)
				})
				if len(nodes) > 10 {
					nodes = nodes[:10]
				}
				return map[string]any{"top_nodes": nodes, "window_minutes": windowMinutes}, nil
			})
			return stamped("node_disk_usage_per_prometheus", results), nil
		},
	}
}

func diskNode(metric map[string]string) string {
	if node := metric["node"]; node != "" {
		return node
	}
	return metric["instance"]
}

func diskKey(metric map[string]string) string {
	return diskNode(metric) + "|" + metric["mountpoint"]
}

func newDetectPodAnomalies(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "detect_pod_anomalies",
			Description: "Pods whose recent average of a metric deviates beyond a z-score threshold",
			Parameters: []ToolParameter{
				{Name: "metric_name", ParamType: "string", Description: "Metric to analyze", Default: "container_cpu_usage_seconds_total"},
				{Name: "z_threshold", ParamType: "float", Description: "Absolute z-score cutoff", Default: "3.0"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			metric := stringParam(params, "metric_name", "container_cpu_usage_seconds_total")
			zThreshold := floatParam(params, "z_threshold", 3.0)
			query := fmt.Sprintf(`avg_over_time(%s{pod!=""}[15m])`, metric)
			results := perInstance(ctx, pool, query, func(samples []Sample) any {
				if len(samples) == 0 {
					return map[string]any{"message": "No data"}
				}

				var sum float64
				for _, s := range samples {
					sum += s.Value
				}
				mean := sum / float64(len(samples))
				var variance float64
				for _, s := range samples {
					d := s.Value - mean
					variance += d * d
				}
				std := math.Sqrt(variance / float64(len(samples)))

				anomalies := make([]map[string]any, 0)
				for _, s := range samples {
					z := 0.0
					if std > 0 {
						z = (s.Value - mean) / std
					}
					if math.Abs(z) > zThreshold {
						anomalies = append(anomalies, map[string]any{
							"pod":     s.Metric["pod"],
							"value":   s.Value,
							"z_score": round2(z),
						})
					}
				}
				return map[string]any{"anomalies": anomalies, "mean": mean, "std": std}
			})
			result := stamped("pod_anomalies_per_prometheus", results)
			result["metric"] = metric
			return result, nil
		},
	}
}

func newNamespaceResourceSummary(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "namespace_resource_summary",
			Description: "Resource usage rate per namespace with share of total",
			Parameters: []ToolParameter{
				{Name: "resource", ParamType: "string", Description: "cpu or memory", Default: "cpu"},
				{Name: "window", ParamType: "string", Description: "Rate window", Default: "5m"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			resource := stringParam(params, "resource", "cpu")
			window := stringParam(params, "window", "5m")
			metric := "container_cpu_usage_seconds_total"
			if resource != "cpu" {
				metric = "container_memory_usage_bytes"
			}
			query := fmt.Sprintf(`sum(rate(%s{namespace!=""}[%s])) by (namespace)`, metric, window)
			results := perInstance(ctx, pool, query, func(samples []Sample) any {
				var total float64
				for _, s := range samples {
					total += s.Value
				}
				usage := make([]map[string]any, 0, len(samples))
				for _, s := range samples {
					percent := 0.0
					if total > 0 {
						percent = round2(s.Value / total * 100)
					}
					usage = append(usage, map[string]any{
						"namespace":        s.Metric["namespace"],
						"value":            s.Value,
						"percent_of_total": percent,
					})
				}
				sort.Slice(usage, func(i, j int) bool {
					return usage[i]["value"].(float64) > usage[j]["value"].(float64)
				})
				return map[string]any{"resource": resource, "usage_by_namespace": usage}
			})
			return stamped("namespace_resource_summary_per_prometheus", results), nil
		},
	}
}

func newCorrelateMetrics(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "correlate_metrics",
			Description: "Pearson correlation of two metric rates across the pods reporting both",
			Parameters: []ToolParameter{
				{Name: "metric_a", ParamType: "string", Description: "First counter metric", Default: "container_cpu_usage_seconds_total"},
				{Name: "metric_b", ParamType: "string", Description: "Second counter metric", Default: "container_network_receive_bytes_total"},
				{Name: "window", ParamType: "string", Description: "Rate window", Default: "10m"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			metricA := stringParam(params, "metric_a", "container_cpu_usage_seconds_total")
			metricB := stringParam(params, "metric_b", "container_network_receive_bytes_total")
			window := stringParam(params, "window", "10m")

			results := perInstanceMulti(ctx, pool, func(ctx context.Context, client *PromClient) (any, error) {
				samplesA, err := client.Query(ctx, fmt.Sprintf("rate(%s[%s])", metricA, window))
				if err != nil {
					return nil, err
				}
				samplesB, err := client.Query(ctx, fmt.Sprintf("rate(%s[%s])", metricB, window))
				if err != nil {
					return nil, err
				}

				byPodA := podValues(samplesA)
				byPodB := podValues(samplesB)
				var xs, ys []float64
				for pod, a := range byPodA {
					if b, ok := byPodB[pod]; ok {
						xs = append(xs, a)
						ys = append(ys, b)
					}
				}
				if len(xs) == 0 {
					return map[string]any{"message": "No overlapping pods"}, nil
				}
				return map[string]any{
					"correlation": round3(pearson(xs, ys)),
					"metric_a":    metricA,
					"metric_b":    metricB,
					"window":      window,
				}, nil
			})
			return stamped("correlation_per_prometheus", results), nil
		},
	}
}

func podValues(samples []Sample) map[string]float64 {
	values := make(map[string]float64, len(samples))
	for _, s := range samples {
		if pod, ok := s.Metric["pod"]; ok {
			values[pod] = s.Value
		}
	}
	return values
}

// pearson computes the sample correlation coefficient. Zero variance on
// either side yields 0, matching the degenerate-input convention above.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func newWorkloadMetrics(pool *PromPool) Tool {
	return &promTool{
		pool: pool,
		meta: ToolMetadata{
			Name:        "workload_metrics",
			Description: "Aggregate a gauge metric across the pods of one workload",
			Parameters: []ToolParameter{
				{Name: "metric_name", ParamType: "string", Description: "Gauge metric to aggregate", Default: "container_cpu_utilization"},
				{Name: "workload_name", ParamType: "string", Description: "Workload app label", Required: true},
				{Name: "pod_names", ParamType: "list", Description: "Restrict to these pods"},
				{Name: "time_window", ParamType: "string", Description: "Aggregate over this window instead of the current instant"},
				{Name: "aggregation", ParamType: "string", Description: "avg, max, min or sum", Default: "avg"},
			},
		},
		run: func(ctx context.Context, pool *PromPool, params map[string]any) (any, error) {
			workload := stringParam(params, "workload_name", "")
			if workload == "" {
				return nil, fmt.Errorf("workload_name (app label) must be provided")
			}
			metric := stringParam(params, "metric_name", "container_cpu_utilization")
			aggregation := stringParam(params, "aggregation", "avg")
			switch aggregation {
			case "avg", "max", "min", "sum":
			default:
				return nil, fmt.Errorf("invalid aggregation %q", aggregation)
			}

			filters := []string{fmt.Sprintf("app=%q", workload)}
			if pods := stringListParam(params, "pod_names"); len(pods) > 0 {
				filters = append(filters, fmt.Sprintf("pod=~%q", strings.Join(pods, "|")))
			}
			selector := strings.Join(filters, ",")

			window := stringParam(params, "time_window", "")
			effectiveWindow := "current"
			var query string
			if window != "" {
				query = fmt.Sprintf("%s(%s_over_time(%s{%s}[%s]))", aggregation, aggregation, metric, selector, window)
				effectiveWindow = window
			} else {
				query = fmt.Sprintf("%s(%s{%s})", aggregation, metric, selector)
			}

			results := perInstance(ctx, pool, query, func(samples []Sample) any {
				payload := map[string]any{"query": query}
				if len(samples) > 0 {
					payload["value"] = samples[0].Value
				} else {
					payload["value"] = nil
				}
				return payload
			})

			result := stamped("workload_metrics_per_prometheus", results)
			result["metric"] = metric
			result["workload"] = workload
			result["aggregation"] = aggregation
			result["window"] = effectiveWindow
			return result, nil
		},
	}
}
