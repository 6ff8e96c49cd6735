package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakePrometheus serves canned instant-query responses keyed by a
// substring of the PromQL query.
func fakePrometheus(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query" {
			http.NotFound(w, r)
			return
		}
		query := r.URL.Query().Get("query")
		for needle, body := range responses {
			if strings.Contains(query, needle) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(body))
				return
			}
		}
		w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[]}}`))
	}))
}

func testPool(t *testing.T, responses map[string]string) (*PromPool, func()) {
	t.Helper()
	server := fakePrometheus(t, responses)
	client := NewPromClient("primary", server.URL, nil, 5*time.Second)
	return NewPromPool(client), server.Close
}

func TestPromClientQuery(t *testing.T) {
	pool, cleanup := testPool(t, map[string]string{
		"up": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"instance":"node-1"},"value":[1700000000,"1"]},
			{"metric":{"instance":"node-2"},"value":[1700000000,"0.5"]}]}}`,
	})
	defer cleanup()

	results := pool.QueryAll(context.Background(), "up")
	res := results["primary"]
	if res.Err != nil {
		t.Fatalf("query failed: %v", res.Err)
	}
	if len(res.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(res.Samples))
	}
	if res.Samples[0].Metric["instance"] != "node-1" || res.Samples[0].Value != 1 {
		t.Errorf("unexpected first sample: %+v", res.Samples[0])
	}
}

func TestPromClientErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewPromClient("primary", server.URL, nil, 5*time.Second)
	if _, err := client.Query(context.Background(), "up"); err == nil {
		t.Fatal("expected error from 500 response")
	}
}

func TestPodsExceedingCPU(t *testing.T) {
	pool, cleanup := testPool(t, map[string]string{
		"rate(container_cpu_usage_seconds_total": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"pod":"nginx-123"},"value":[1700000000,"0.95"]}]}}`,
	})
	defer cleanup()

	tool := newPodsExceedingCPU(pool)
	result, err := tool.Invoke(context.Background(), map[string]any{"threshold": 0.9})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	payload := result.(map[string]any)
	if payload["threshold"] != 0.9 {
		t.Errorf("expected threshold 0.9, got %v", payload["threshold"])
	}
	perProm := payload["pods_exceeding_cpu_per_prometheus"].(map[string]any)
	pods := perProm["primary"].([]map[string]any)
	if len(pods) != 1 || pods[0]["pod"] != "nginx-123" {
		t.Errorf("unexpected pods: %v", pods)
	}
}

func TestPodStatusSummary(t *testing.T) {
	pool, cleanup := testPool(t, map[string]string{
		"kube_pod_status_phase": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"phase":"Running"},"value":[1700000000,"7"]},
			{"metric":{"phase":"Pending"},"value":[1700000000,"1"]}]}}`,
	})
	defer cleanup()

	tool := newPodStatusSummary(pool)
	result, err := tool.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	perProm := result.(map[string]any)["pod_status_summary_per_prometheus"].(map[string]any)
	summary := perProm["primary"].(map[string]int)
	if summary["Running"] != 7 || summary["Pending"] != 1 || summary["total"] != 8 {
		t.Errorf("unexpected summary: %v", summary)
	}
}

func TestDescribeClusterHealthMessage(t *testing.T) {
	pool, cleanup := testPool(t, map[string]string{
		"kube_pod_status_phase": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"phase":"Running"},"value":[1700000000,"5"]},
			{"metric":{"phase":"Failed"},"value":[1700000000,"2"]}]}}`,
	})
	defer cleanup()

	tool := newDescribeClusterHealth(pool)
	result, err := tool.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	perProm := result.(map[string]any)["cluster_health_per_prometheus"].(map[string]any)
	health := perProm["primary"].(map[string]any)
	if !strings.Contains(health["message"].(string), "2 pods are failing") {
		t.Errorf("unexpected message: %v", health["message"])
	}
}

func TestWorkloadMetricsRequiresWorkload(t *testing.T) {
	pool, cleanup := testPool(t, nil)
	defer cleanup()

	tool := newWorkloadMetrics(pool)
	if _, err := tool.Invoke(context.Background(), map[string]any{}); err == nil {
		t.Fatal("expected error without workload_name")
	}
}

func TestWorkloadMetricsQueryShape(t *testing.T) {
	var seenQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenQuery = r.URL.Query().Get("query")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": map[string]any{
				"resultType": "vector",
				"result": []map[string]any{
					{"metric": map[string]string{}, "value": []any{1700000000, "0.42"}},
				},
			},
		})
	}))
	defer server.Close()

	pool := NewPromPool(NewPromClient("primary", server.URL, nil, 5*time.Second))
	tool := newWorkloadMetrics(pool)
	result, err := tool.Invoke(context.Background(), map[string]any{
		"workload_name": "checkout",
		"pod_names":     []any{"checkout-1", "checkout-2"},
		"time_window":   "5m",
		"aggregation":   "max",
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if !strings.Contains(seenQuery, `max(max_over_time(container_cpu_utilization{app="checkout",pod=~"checkout-1|checkout-2"}[5m]))`) {
		t.Errorf("unexpected query: %q", seenQuery)
	}
	perProm := result.(map[string]any)["workload_metrics_per_prometheus"].(map[string]any)
	payload := perProm["primary"].(map[string]any)
	if payload["value"] != 0.42 {
		t.Errorf("expected value 0.42, got %v", payload["value"])
	}
}

func TestCurrentMetricForPods(t *testing.T) {
	var seenQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenQuery = r.URL.Query().Get("query")
		w.Write([]byte(`{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"pod":"cart-1"},"value":[1700000000,"0.4"]},
			{"metric":{"pod":"cart-2"},"value":[1700000000,"0.6"]}]}}`))
	}))
	defer server.Close()

	pool := NewPromPool(NewPromClient("primary", server.URL, nil, 5*time.Second))
	tool := newCurrentMetricForPods(pool)
	result, err := tool.Invoke(context.Background(), map[string]any{
		"pod_names": []any{"cart-1", "cart-2"},
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if !strings.Contains(seenQuery, `container_cpu_usage_seconds_total{pod=~"cart-1|cart-2"}`) {
		t.Errorf("unexpected query: %q", seenQuery)
	}
	perProm := result.(map[string]any)["current_metric_per_prometheus"].(map[string]any)
	values := perProm["primary"].([]map[string]any)
	if len(values) != 2 || values[0]["pod"] != "cart-1" || values[0]["value"] != 0.4 {
		t.Errorf("unexpected values: %v", values)
	}
}

func TestPodNetworkIO(t *testing.T) {
	pool, cleanup := testPool(t, map[string]string{
		"container_network_receive_bytes_total": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"pod":"cart-1"},"value":[1700000000,"1024"]}]}}`,
		"container_network_transmit_bytes_total": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"pod":"cart-1"},"value":[1700000000,"512"]}]}}`,
	})
	defer cleanup()

	tool := newPodNetworkIO(pool)
	result, err := tool.Invoke(context.Background(), map[string]any{
		"pod_names": []any{"cart-1"},
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	perProm := result.(map[string]any)["pod_network_io_per_prometheus"].(map[string]any)
	io := perProm["primary"].([]map[string]any)
	if len(io) != 1 {
		t.Fatalf("expected one pod entry, got %v", io)
	}
	if io[0]["rx_bytes_per_sec"] != 1024.0 || io[0]["tx_bytes_per_sec"] != 512.0 {
		t.Errorf("unexpected io entry: %v", io[0])
	}
}

func TestRecentPodEventsLimit(t *testing.T) {
	pool, cleanup := testPool(t, map[string]string{
		"kube_event_count": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"reason":"BackOff","involved_object_name":"cart-1"},"value":[1700000000,"9"]},
			{"metric":{"reason":"Killing","involved_object_name":"cart-2"},"value":[1700000000,"4"]},
			{"metric":{"reason":"Pulled","involved_object_name":"cart-3"},"value":[1700000000,"1"]}]}}`,
	})
	defer cleanup()

	tool := newRecentPodEvents(pool)
	result, err := tool.Invoke(context.Background(), map[string]any{"limit": 2})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	payload := result.(map[string]any)
	if payload["lookback"] != "10m" {
		t.Errorf("lookback = %v", payload["lookback"])
	}
	perProm := payload["recent_pod_events_per_prometheus"].(map[string]any)
	events := perProm["primary"].([]map[string]any)
	if len(events) != 2 {
		t.Fatalf("expected limit of 2 events, got %d", len(events))
	}
	if events[0]["pod"] != "cart-1" || events[0]["reason"] != "BackOff" || events[0]["count"] != 9 {
		t.Errorf("unexpected first event: %v", events[0])
	}
}

func TestNodeDiskUsage(t *testing.T) {
	pool, cleanup := testPool(t, map[string]string{
		"avg_over_time": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"node":"node-1","mountpoint":"/"},"value":[1700000000,"72.5"]},
			{"metric":{"node":"node-1","mountpoint":"/boot"},"value":[1700000000,"95.0"]}]}}`,
		"max_over_time": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"node":"node-1","mountpoint":"/"},"value":[1700000000,"88.123"]}]}}`,
	})
	defer cleanup()

	tool := newNodeDiskUsage(pool)
	result, err := tool.Invoke(context.Background(), map[string]any{"window_minutes": 30})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	perProm := result.(map[string]any)["node_disk_usage_per_prometheus"].(map[string]any)
	payload := perProm["primary"].(map[string]any)
	if payload["window_minutes"] != 30 {
		t.Errorf("window_minutes = %v", payload["window_minutes"])
	}
	nodes := payload["top_nodes"].([]map[string]any)
	// /boot is not an important mount point and must be filtered out.
	if len(nodes) != 1 {
		t.Fatalf("expected one mount entry, got %v", nodes)
	}
	if nodes[0]["node"] != "node-1" || nodes[0]["mount"] != "/" {
		t.Errorf("unexpected entry: %v", nodes[0])
	}
	if nodes[0]["avg_disk_usage_percent"] != 72.5 || nodes[0]["max_disk_usage_percent"] != 88.12 {
		t.Errorf("unexpected usage values: %v", nodes[0])
	}
}

func TestDetectPodAnomalies(t *testing.T) {
	// Nine pods near 1.0 and one extreme outlier.
	results := `{"status":"success","data":{"resultType":"vector","result":[
		{"metric":{"pod":"p1"},"value":[1700000000,"1.0"]},
		{"metric":{"pod":"p2"},"value":[1700000000,"1.0"]},
		{"metric":{"pod":"p3"},"value":[1700000000,"1.0"]},
		{"metric":{"pod":"p4"},"value":[1700000000,"1.0"]},
		{"metric":{"pod":"p5"},"value":[1700000000,"1.0"]},
		{"metric":{"pod":"p6"},"value":[1700000000,"1.0"]},
		{"metric":{"pod":"p7"},"value":[1700000000,"1.0"]},
		{"metric":{"pod":"p8"},"value":[1700000000,"1.0"]},
		{"metric":{"pod":"p9"},"value":[1700000000,"1.0"]},
		{"metric":{"pod":"spike"},"value":[1700000000,"100.0"]}]}}`
	pool, cleanup := testPool(t, map[string]string{"avg_over_time": results})
	defer cleanup()

	tool := newDetectPodAnomalies(pool)
	result, err := tool.Invoke(context.Background(), map[string]any{"z_threshold": 2.0})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	perProm := result.(map[string]any)["pod_anomalies_per_prometheus"].(map[string]any)
	payload := perProm["primary"].(map[string]any)
	anomalies := payload["anomalies"].([]map[string]any)
	if len(anomalies) != 1 || anomalies[0]["pod"] != "spike" {
		t.Errorf("unexpected anomalies: %v", anomalies)
	}
}

func TestNamespaceResourceSummary(t *testing.T) {
	pool, cleanup := testPool(t, map[string]string{
		"by (namespace)": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"namespace":"shop"},"value":[1700000000,"3.0"]},
			{"metric":{"namespace":"infra"},"value":[1700000000,"1.0"]}]}}`,
	})
	defer cleanup()

	tool := newNamespaceResourceSummary(pool)
	result, err := tool.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	perProm := result.(map[string]any)["namespace_resource_summary_per_prometheus"].(map[string]any)
	payload := perProm["primary"].(map[string]any)
	if payload["resource"] != "cpu" {
		t.Errorf("resource = %v", payload["resource"])
	}
	usage := payload["usage_by_namespace"].([]map[string]any)
	if len(usage) != 2 || usage[0]["namespace"] != "shop" {
		t.Fatalf("unexpected usage: %v", usage)
	}
	if usage[0]["percent_of_total"] != 75.0 || usage[1]["percent_of_total"] != 25.0 {
		t.Errorf("unexpected shares: %v", usage)
	}
}

func TestCorrelateMetrics(t *testing.T) {
	// metric_b is exactly 2x metric_a per pod: correlation 1.
	pool, cleanup := testPool(t, map[string]string{
		"container_cpu_usage_seconds_total": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"pod":"p1"},"value":[1700000000,"1.0"]},
			{"metric":{"pod":"p2"},"value":[1700000000,"2.0"]},
			{"metric":{"pod":"p3"},"value":[1700000000,"3.0"]}]}}`,
		"container_network_receive_bytes_total": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"pod":"p1"},"value":[1700000000,"2.0"]},
			{"metric":{"pod":"p2"},"value":[1700000000,"4.0"]},
			{"metric":{"pod":"p3"},"value":[1700000000,"6.0"]}]}}`,
	})
	defer cleanup()

	tool := newCorrelateMetrics(pool)
	result, err := tool.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	perProm := result.(map[string]any)["correlation_per_prometheus"].(map[string]any)
	payload := perProm["primary"].(map[string]any)
	if payload["correlation"] != 1.0 {
		t.Errorf("correlation = %v, want 1.0", payload["correlation"])
	}
}

func TestCorrelateMetricsNoOverlap(t *testing.T) {
	pool, cleanup := testPool(t, map[string]string{
		"container_cpu_usage_seconds_total": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"pod":"p1"},"value":[1700000000,"1.0"]}]}}`,
		"container_network_receive_bytes_total": `{"status":"success","data":{"resultType":"vector","result":[
			{"metric":{"pod":"other"},"value":[1700000000,"2.0"]}]}}`,
	})
	defer cleanup()

	tool := newCorrelateMetrics(pool)
	result, err := tool.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	perProm := result.(map[string]any)["correlation_per_prometheus"].(map[string]any)
	payload := perProm["primary"].(map[string]any)
	if payload["message"] != "No overlapping pods" {
		t.Errorf("unexpected payload: %v", payload)
	}
}

func TestPerInstanceErrorIsData(t *testing.T) {
	client := NewPromClient("unreachable", "http://127.0.0.1:1", nil, time.Second)
	pool := NewPromPool(client)

	tool := newPodStatusSummary(pool)
	result, err := tool.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("instance failure should be data, got error: %v", err)
	}
	perProm := result.(map[string]any)["pod_status_summary_per_prometheus"].(map[string]any)
	if _, ok := perProm["unreachable"].(map[string]any)["error"]; !ok {
		t.Error("expected per-instance error payload")
	}
}
