// Package config provides centralized configuration management for Collisio.
// It loads configuration from multiple sources, validates it, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// A .env file in the working directory is read first, so values placed there
// behave exactly like exported environment variables.
//
// # Environment Variables
//
// All environment variables follow the pattern COLLISIO_<SECTION>_<FIELD>:
//
//	COLLISIO_SERVER_PORT=8080
//	COLLISIO_LOGGING_LEVEL=debug
//	COLLISIO_NARRATIVE_MODEL=gpt-4o
//	COLLISIO_REPORT_PIE_MAX=6
//
// The narrative API key additionally falls back to OPENAI_API_KEY.
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing
//
// Use Default() to obtain a configuration that does not depend on the
// environment or on files.
package config
