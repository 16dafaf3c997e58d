package http

import (
	"context"

	"collisio/internal/report"
	"collisio/internal/services"
)

// ReportServiceInterface is what the report handler needs from services.ReportService
type ReportServiceInterface interface {
	Generate(ctx context.Context, req services.Request) (*services.Result, error)
	Runs() *services.RunStore
}

// ProgressPublisher forwards run events to websocket listeners
type ProgressPublisher interface {
	Progress(runID string) report.Progress
	Complete(runID string, data interface{})
	Fail(runID string, err error)
}
