package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"collisio/internal/config"
)

// ClientCounter reports connected progress listeners
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	paths     config.PathsConfig
	narrative bool
	hub       ClientCounter
	runs      *RunStore
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service. hub and runs may be nil.
func NewHealthService(version, buildTime string, paths config.PathsConfig, narrativeEnabled bool, hub ClientCounter, runs *RunStore, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		paths:     paths,
		narrative: narrativeEnabled,
		hub:       hub,
		runs:      runs,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck returns readiness status. Only the output directory can
// make the server not ready; narrative availability is informational.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"output":    hs.checkOutputHealth(),
			"narrative": hs.checkNarrativeHealth(),
			"websocket": hs.checkWebSocketHealth(),
		},
	}

	if status.Services["output"].Status != "ready" {
		status.Status = "not_ready"
		hs.logger.WarnContext(ctx, "ReadinessCheck: not ready",
			slog.String("reason", status.Services["output"].Message))
	}

	return status
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"start_time": hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.runs != nil {
		result["runs"] = hs.runs.Stats()
	}
	return result
}

// checkOutputHealth verifies reports can be written
func (hs *HealthService) checkOutputHealth() ServiceHealth {
	dir := hs.paths.OutputDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot create output directory: %v", err),
		}
	}

	probe, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot write to output directory: %v", err),
		}
	}
	probe.Close()
	os.Remove(probe.Name())

	return ServiceHealth{Status: "ready", Message: "Output directory is writable"}
}

func (hs *HealthService) checkNarrativeHealth() ServiceHealth {
	if !hs.narrative {
		return ServiceHealth{Status: "disabled", Message: "Summaries will show a placeholder"}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "disabled"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount()),
	}
}
