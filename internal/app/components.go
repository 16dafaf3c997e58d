package app

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"

	"collisio/internal/chart"
	"collisio/internal/config"
	"collisio/internal/document"
	"collisio/internal/infrastructure"
	"collisio/internal/narrative"
	"collisio/internal/records"
	"collisio/internal/report"
	"collisio/internal/services"
	"collisio/internal/spatial"
)

// NewTelemetry initialises OpenTelemetry from cfg and creates the instruments.
func NewTelemetry(cfg *config.Config, logger *slog.Logger) (*infrastructure.OTelProviders, *infrastructure.Metrics, error) {
	otelCfg := infrastructure.DefaultOTelConfig()
	otelCfg.ServiceVersion = Version
	otelCfg.EnableMetrics = cfg.Telemetry.Metrics
	otelCfg.EnableTracing = cfg.Telemetry.Tracing
	otelCfg.TraceExporter = cfg.Telemetry.TraceExporter

	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateMetrics(providers.Meter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	return providers, metrics, nil
}

// NewReportService wires the loader, assembler and writer described by cfg.
func NewReportService(ctx context.Context, cfg *config.Config, metrics *infrastructure.Metrics, logger *slog.Logger) *services.ReportService {
	var maps report.MapBuilder
	if cfg.Report.Map {
		maps = spatial.NewBuilder(cfg.Report.HotspotRes, logger)
	}

	assembler := report.NewAssembler(
		chart.NewPlotRenderer(),
		narrative.New(cfg.Narrative, logger),
		maps,
		logger,
	)
	assembler.DefaultStyle = narrative.Style(cfg.Narrative.Style)

	return services.NewReportService(cfg, NewLoader(ctx, cfg.Sheets, logger), assembler, NewWriter(cfg), metrics, logger)
}

// NewLoader returns a loader for files, plus Google Sheets when a client
// can be created. Sheets failures only disable gsheet:// sources.
func NewLoader(ctx context.Context, cfg config.SheetsConfig, logger *slog.Logger) *records.Loader {
	var opts []option.ClientOption
	switch {
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	sheets, err := records.NewSheetsLoader(ctx, opts...)
	if err != nil {
		logger.DebugContext(ctx, "Google Sheets sources disabled", slog.String("reason", err.Error()))
		return &records.Loader{}
	}
	return &records.Loader{Sheets: sheets}
}

// NewWriter returns a document writer; PDF output gets a headless Chrome printer.
func NewWriter(cfg *config.Config) *document.Writer {
	w := &document.Writer{}
	if cfg.PDFEnabled() {
		w.Printer = document.NewChromePrinter(cfg.Report.ChromePath)
	}
	return w
}
