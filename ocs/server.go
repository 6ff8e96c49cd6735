package ocs

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// AdjacencyCollector queries the mesh for workload adjacency.
type AdjacencyCollector interface {
	CollectAdjacency(ctx context.Context, sourceWorkloads []string, from, to *time.Time) (map[string][]string, error)
}

// Server serves the rendered context specification and the topology
// collection endpoint.
type Server struct {
	config     *Config
	repository TopologyRepository
	collector  AdjacencyCollector
}

// NewServer wires the specification service from its parts.
func NewServer(config *Config, repository TopologyRepository, collector AdjacencyCollector) *Server {
	return &Server{
		config:     config,
		repository: repository,
		collector:  collector,
	}
}

// Router builds the gin router with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	router.GET("/get_ocs_prompt", s.handleGetPrompt)
	router.POST("/collect_istio_metrics", s.handleCollectMetrics)
	router.GET("/health", s.handleHealth)
	return router
}

// Run starts the HTTP server on PORT (default 8000).
func (s *Server) Run() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	log.Printf("ocs server listening on :%s", port)
	return s.Router().Run(":" + port)
}

// handleGetPrompt renders the specification from the latest stored
// topology snapshot and the configured metric catalog and policy.
func (s *Server) handleGetPrompt(c *gin.Context) {
	adjacency, err := s.repository.GetLatestAdjacencyList(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to load topology: %v", err)})
		return
	}

	c.JSON(http.StatusOK, PromptResponse{
		SpecVersion:        "0.1",
		ContextDefinitions: BuildContextDefinitions(adjacency, s.config),
	})
}

// handleCollectMetrics queries the mesh for the configured source
// workloads and stores the resulting snapshot. An explicit from/to pair
// selects a range query; with neither, the configured time window (if
// any) is applied, else an instant query.
func (s *Server) handleCollectMetrics(c *gin.Context) {
	from, to, err := parseTimeRange(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if from == nil && s.config.TimeWindowMinutes != nil {
		end := time.Now().UTC()
		start := end.Add(-time.Duration(*s.config.TimeWindowMinutes) * time.Minute)
		from, to = &start, &end
	}

	adjacency, err := s.collector.CollectAdjacency(c.Request.Context(), s.config.Workload, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to collect metrics: %v", err)})
		return
	}

	if err := s.repository.SaveAdjacencyList(c.Request.Context(), adjacency); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to save topology: %v", err)})
		return
	}

	total := 0
	for _, destinations := range adjacency {
		total += len(destinations)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"source_count":      len(adjacency),
		"total_connections": total,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// parseTimeRange accepts both-or-neither from/to, each either RFC3339
// or a Unix epoch in seconds.
func parseTimeRange(fromRaw, toRaw string) (*time.Time, *time.Time, error) {
	if fromRaw == "" && toRaw == "" {
		return nil, nil, nil
	}
	if fromRaw == "" || toRaw == "" {
		return nil, nil, fmt.Errorf("from and to must be provided together")
	}

	from, err := parseTimestamp(fromRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid from timestamp: %w", err)
	}
	to, err := parseTimestamp(toRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid to timestamp: %w", err)
	}
	if !from.Before(to) {
		return nil, nil, fmt.Errorf("from must be earlier than to")
	}
	return &from, &to, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(epoch, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("expected RFC3339 or unix seconds, got %q", raw)
}
