// Package http implements the HTTP handlers of collisio-web. Handlers stay
// thin: they parse and validate the request, call the report service and
// render either JSON or an RFC 7807 problem through the error handler.
//
// # Routes
//
//	GET  /                          upload page
//	POST /api/reports               multipart upload, synchronous generation
//	GET  /api/reports               recent runs, newest first
//	GET  /api/reports/{id}          one run with download links
//	GET  /api/reports/{id}/{format} download a generated document
//	GET  /api/template              blank input workbook
//	GET  /ws?run={id}               progress events, optionally for one run
//	GET  /healthz, /readyz          liveness and readiness
//
// Routing and the middleware chain are assembled in internal/app.
//
// # Progress
//
// A browser that wants live progress picks the run ID itself, opens
// /ws?run=<id>, then posts the upload with the same run_id form field.
// Uploads without a run_id get a generated one and still receive the final
// JSON response.
package http
