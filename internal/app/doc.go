// Package app wires the results viewer together and manages its lifecycle.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and optional YAML file
//	2. Initialize logging and OpenTelemetry
//	3. Build the WebSocket hub and the pipeline runner
//	4. Initialize services with their dependencies
//	5. Set up HTTP handlers and middleware
//	6. Configure and start the HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.New(cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run handles SIGINT and SIGTERM. Shutdown drains in-flight requests,
// disconnects WebSocket clients, and flushes the metric providers before
// returning. Initialization errors are returned to the caller; the package
// never calls os.Exit directly.
package app
