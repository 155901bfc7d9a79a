// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: SQLite file or PostgreSQL connection string (required)
  - DatabaseType: sqlite (default) or postgres
  - AdminKeySalt: Secret for admin key HMAC (required)
  - LogLevel: slog level (default: info)
  - IgnoreInvalidVotes: don't log each null ballot during a tally

# CLI Flags

	-p, --port                  Server port
	-d, --database-url          Database URL
	-t, --database-type         sqlite or postgres
	    --log-level             debug, info, warn or error
	    --ignore-invalid-votes  Quiet tallies
	    --admin-salt            Admin key salt

# Environment Variables

Flags fall back to environment variables:

	PORT                 → --port
	DATABASE_URL         → --database-url
	DATABASE_TYPE        → --database-type
	LOG_LEVEL            → --log-level
	IGNORE_INVALID_VOTES → --ignore-invalid-votes
	ADMIN_KEY_SALT       → --admin-salt

CLI flags take precedence over environment variables. A .env file in the
working directory is loaded before the environment is read; it never
overrides a variable that is already set.

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - ADMIN_KEY_SALT must be provided

# Example

	// In main.go
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open(driverName(cfg.DatabaseType), cfg.DatabaseURL)
	// ...
	mux := router.NewRouter(db, cfg)
*/
package cliparse
