// Package services implements the business logic layer of Collisio. It sits
// between the transports (the collisio CLI and the collisio-web HTTP server)
// and the pipeline packages, so both front ends produce identical reports.
//
// # Report Generation
//
// ReportService.Generate runs one report end to end:
//
//	1. Load the spreadsheet (the only fatal step, ErrLoadFailed)
//	2. Resolve the worklist (request, configured file or embedded default)
//	3. Assemble sections with the report.Assembler
//	4. Write every requested document format into the run directory
//	5. Export the frequency tables as an appendix workbook and optional CSVs
//	6. Record run metrics
//
// Every run gets an identifier that names its output directory and is
// registered in a RunStore, which the web transport consults to serve
// downloads.
//
// # Usage
//
//	svc := services.NewReportService(cfg, loader, assembler, writer, metrics, logger)
//	result, err := svc.Generate(ctx, services.Request{Source: "accidents.xlsx"})
//	if errors.Is(err, services.ErrLoadFailed) {
//	    // the spreadsheet could not be read; nothing was written
//	}
//
// # Health
//
// HealthService reports liveness and readiness for the web server, checking
// that the output directory is writable.
package services
