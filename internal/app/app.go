package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"collisio/internal/config"
	apierrors "collisio/internal/errors"
	"collisio/internal/infrastructure"
	"collisio/internal/middleware"
	"collisio/internal/services"
	handlers "collisio/internal/transport/http"
	ws "collisio/internal/websocket"
)

const AppName = "Collisio"

// Build information, set with -ldflags "-X collisio/internal/app.Version=..."
var (
	Version   = "dev"
	BuildTime = ""
)

// cleanupInterval is how often expired runs are removed
const cleanupInterval = 10 * time.Minute

// Application represents the web application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.Metrics
	WebSocketHub  *ws.Hub
	ReportService *services.ReportService
	HealthService *services.HealthService
	ErrorHandler  *apierrors.ErrorHandler
}

// NewApplication wires every component of collisio-web from cfg
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.InfoContext(ctx, "Application starting",
		slog.String("name", AppName),
		slog.String("version", Version))

	if err := cfg.Paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	providers, metrics, err := NewTelemetry(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	a.WebSocketHub = ws.NewHub(logger, metrics)
	a.ReportService = NewReportService(ctx, cfg, metrics, logger)
	a.HealthService = services.NewHealthService(
		Version,
		BuildTime,
		cfg.Paths,
		cfg.Narrative.Enabled && cfg.Narrative.APIKey != "",
		a.WebSocketHub,
		a.ReportService.Runs(),
		logger,
	)

	a.setupRouter()
	a.createServer()

	return a, nil
}

// setupRouter configures the HTTP router with all routes.
// Order: RequestID, RealIP, OTel, Logger, Recoverer, SecurityHeaders.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics).Handler)
	r.Use(middleware.StructuredLogger(a.Logger))
	r.Use(middleware.Recoverer(a.ErrorHandler))
	r.Use(middleware.SecurityHeaders)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	health := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Get("/healthz", health.HealthCheck)
	r.Get("/readyz", health.ReadinessCheck)

	r.Get("/", handlers.ServeUploadPage(a.Config.Paths.WebDir, handlers.PageData{
		Title:        a.Config.Report.Title,
		Organization: a.Config.Report.Organization,
		Formats:      a.Config.Report.Formats,
		PDF:          a.Config.PDFEnabled(),
	}, a.Logger))

	r.Handle("/ws", handlers.NewWebSocketHandler(a.WebSocketHub, a.ErrorHandler, a.Logger))

	reports := handlers.NewReportHandler(
		a.ReportService,
		a.WebSocketHub,
		a.Config.Paths.UploadDir,
		middleware.NewValidator(),
		a.ErrorHandler,
		a.Logger,
	)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/version", health.Version)
		r.Get("/template", handlers.ServeTemplate(a.ErrorHandler))
		r.With(middleware.MaxBodySize(a.Config.Server.MaxUploadBytes)).Mount("/reports", reports.Routes())
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port)),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run serves until ctx is cancelled or the server fails, then shuts down.
func (a *Application) Run(ctx context.Context) error {
	a.WebSocketHub.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening", slog.String("address", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.cleanupLoop(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

func (a *Application) cleanupLoop(ctx context.Context) {
	if a.Config.Server.RunRetention <= 0 {
		return
	}
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.cleanupRuns(ctx)
		}
	}
}

// cleanupRuns forgets expired runs and deletes their output directories
func (a *Application) cleanupRuns(ctx context.Context) int {
	expired := a.ReportService.Runs().Cleanup(a.Config.Server.RunRetention)
	for _, run := range expired {
		if run.Dir == "" {
			continue
		}
		if err := os.RemoveAll(run.Dir); err != nil {
			a.Logger.WarnContext(ctx, "Failed to remove run directory",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()))
		}
	}
	if len(expired) > 0 {
		a.Logger.InfoContext(ctx, "Expired runs removed", slog.Int("count", len(expired)))
	}
	return len(expired)
}
