// Package config loads runtime configuration for the TillaPos CLI.
//
// Sources & precedence (later wins)
//
//  1. Built-in defaults (see NewConfig).
//  2. A .env file in the working directory (see LoadDotEnv).
//  3. Process environment (see LoadEnv).
//  4. Optional JSON file selected with -c/--config (see LoadJSON).
//  5. Command-line flags (see ParseFlags).
//
// Environment
//
//	API_BASE_URL   base URL of the TillaPos API
//	API_TIMEOUT    request timeout in milliseconds
//	APP_ENV        development | production
//	LOG_LEVEL      debug | info | warn | error
//	LOG_FORMAT     text | json
//	DB_PATH        path of the local SQLite database
//	REFRESH_MODE   singleflight | per-request
//	RATE_LIMIT     max requests per second, 0 disables
//
// # JSON schema
//
// Durations are strings like "10s" or integer nanoseconds:
//
//	{
//	  "base_url": "https://api.tillapos.dev",
//	  "timeout": "10s",
//	  "log_level": "debug",
//	  "db_path": "/var/lib/tillapos/tillapos.db"
//	}
package config
