package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "collisio"
	ServiceVersion = "1.0.0"
	MeterName      = "collisio"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
	// Registry receives the Prometheus collector; nil means a fresh registry.
	Registry *promclient.Registry
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "none",
		EnableMetrics:  true,
		EnableTracing:  false,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes tracing and metrics providers
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{
		Logger: logger,
		Tracer: otel.Tracer(MeterName),
		Meter:  metricnoop.NewMeterProvider().Meter(MeterName),
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up a Prometheus-backed meter provider
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := cfg.Registry
	if registry == nil {
		registry = promclient.NewRegistry()
	}

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetMeterProvider(mp)

	providers.Logger.InfoContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// Metrics holds the report-generation instruments
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Report metrics
	ReportRuns        metric.Int64Counter
	ReportRunDuration metric.Float64Histogram
	SectionsEmitted   metric.Int64Counter
	SectionsSkipped   metric.Int64Counter
	NarrativeFailures metric.Int64Counter

	// Progress websocket metrics
	WSConnections  metric.Int64UpDownCounter
	WSMessagesSent metric.Int64Counter
	WSDropped      metric.Int64Counter
}

// CreateMetrics creates the application instruments on meter
func CreateMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.ReportRuns, err = meter.Int64Counter(
		"report_runs_total",
		metric.WithDescription("Total number of report generation runs"),
	); err != nil {
		return nil, err
	}

	if m.ReportRunDuration, err = meter.Float64Histogram(
		"report_run_duration_seconds",
		metric.WithDescription("Report generation duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.SectionsEmitted, err = meter.Int64Counter(
		"report_sections_emitted_total",
		metric.WithDescription("Total number of report sections emitted"),
	); err != nil {
		return nil, err
	}

	if m.SectionsSkipped, err = meter.Int64Counter(
		"report_sections_skipped_total",
		metric.WithDescription("Total number of worklist entries skipped"),
	); err != nil {
		return nil, err
	}

	if m.NarrativeFailures, err = meter.Int64Counter(
		"narrative_failures_total",
		metric.WithDescription("Total number of failed narrative requests"),
	); err != nil {
		return nil, err
	}

	if m.WSConnections, err = meter.Int64UpDownCounter(
		"websocket_connections_active",
		metric.WithDescription("Number of connected progress listeners"),
	); err != nil {
		return nil, err
	}

	if m.WSMessagesSent, err = meter.Int64Counter(
		"websocket_messages_sent_total",
		metric.WithDescription("Total number of progress messages delivered"),
	); err != nil {
		return nil, err
	}

	if m.WSDropped, err = meter.Int64Counter(
		"websocket_messages_dropped_total",
		metric.WithDescription("Total number of progress messages dropped for slow clients"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// NoopMetrics returns instruments that record nothing
func NoopMetrics() *Metrics {
	m, _ := CreateMetrics(metricnoop.NewMeterProvider().Meter(MeterName))
	return m
}

// RecordRun records the outcome of one report run
func (m *Metrics) RecordRun(ctx context.Context, duration time.Duration, emitted, skipped, narrativeFailures int, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))

	m.ReportRuns.Add(ctx, 1, attrs)
	m.ReportRunDuration.Record(ctx, duration.Seconds(), attrs)
	m.SectionsEmitted.Add(ctx, int64(emitted))
	m.SectionsSkipped.Add(ctx, int64(skipped))
	m.NarrativeFailures.Add(ctx, int64(narrativeFailures))
}

// RecordWSConnection adjusts the active listener gauge by delta
func (m *Metrics) RecordWSConnection(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.WSConnections.Add(ctx, delta)
}

// RecordWSBroadcast records one broadcast's delivered and dropped counts
func (m *Metrics) RecordWSBroadcast(ctx context.Context, sent, dropped int) {
	if m == nil {
		return
	}
	m.WSMessagesSent.Add(ctx, int64(sent))
	if dropped > 0 {
		m.WSDropped.Add(ctx, int64(dropped))
	}
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
