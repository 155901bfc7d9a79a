// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Tally API server.

Quickly Tally counts decrypted election ballots. Each question's selections
are packed into one integer with a mixed-radix code (an invalid-vote digit,
one digit per answer and the bytes of any write-in texts), so ballots can go
through an encryption scheme that works on integers. After decryption the
plaintexts are uploaded here and tallied with plurality-at-large,
cumulative or one of the Borda variants.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=postgres://... ADMIN_KEY_SALT=... go run .

Or with flags:

	go run . -p 3318 -t sqlite -d tally.db --admin-salt secret

Variables can also be put in a .env file in the working directory.

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL connection string or SQLite file
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - LOG_LEVEL (--log-level): debug, info, warn or error
  - IGNORE_INVALID_VOTES (--ignore-invalid-votes): Do not log null ballots

# Architecture

  - handlers: HTTP request handlers (elections, ballots, tallies)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - tally: Ballot parsing, counting and winner selection
  - methods: Voting method scoring rules
  - ballotcodec: Question to digits conversion
  - mixedradix: Mixed-radix integer encoding
  - models: Question, ballot and request/response types
  - metrics: Prometheus counters for tally runs
  - auth: Election ids and admin keys
  - db: Connection and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
