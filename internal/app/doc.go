// Package app wires collisio's components together: configuration,
// logging, OpenTelemetry, the report service and, for collisio-web, the
// router, websocket hub and HTTP server.
//
// The report pipeline is built by NewReportService and shared by both
// commands. NewApplication adds the web surface on top:
//
//	cfg, _ := config.Load()
//	logger, _ := infrastructure.InitializeLogger(cfg.Logging)
//	application, err := app.NewApplication(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Run serves until its context is cancelled, typically by SIGINT or
// SIGTERM, then drains requests for up to server.shutdown_timeout, closes
// websocket clients and flushes telemetry. Finished runs older than
// server.run_retention are forgotten and their output deleted.
//
// Initialisation errors are returned; the package never calls os.Exit.
package app
