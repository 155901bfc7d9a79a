// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates its schema.

# Connections

Open picks the driver from the configured database type and pings it:

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

	sqlite    modernc.org/sqlite (pure Go, default)
	postgres  github.com/lib/pq

SQLite connections are limited to one open connection.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables.

# Tables

The schema includes:

  - election: Election metadata and the count of ballots that failed to decrypt
  - question: JSON question definitions, addressed by (election, index)
  - plaintext: Decrypted ballot integers per question, ordered by line_no
  - withdrawal: Answers removed from a question before the tally

# Relationships

	election 1──* question
	election 1──* plaintext
	election 1──* withdrawal

Tally results are computed on request and never stored.
*/
package db
