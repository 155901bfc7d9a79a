// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Database types accepted by Open
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// DriverName maps a database type to its database/sql driver
func DriverName(databaseType string) (string, error) {
	switch databaseType {
	case TypeSQLite, "":
		return "sqlite", nil
	case TypePostgres:
		return "postgres", nil
	}
	return "", fmt.Errorf("unsupported database type %q", databaseType)
}

// Open connects to the database and checks that it answers
func Open(ctx context.Context, databaseType, url string) (*sql.DB, error) {
	driver, err := DriverName(databaseType)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", databaseType, err)
	}
	if driver == "sqlite" {
		// one writer at a time, and every connection of an in-memory
		// database would otherwise see its own empty schema
		conn.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", databaseType, err)
	}

	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The schema sticks to types and defaults both SQLite and PostgreSQL accept
const schema = `
-- Elections
CREATE TABLE IF NOT EXISTS election (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    encrypted_invalid_votes INTEGER NOT NULL DEFAULT 0 CHECK (encrypted_invalid_votes >= 0),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Questions, stored as their JSON definition
CREATE TABLE IF NOT EXISTS question (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    question_index INTEGER NOT NULL CHECK (question_index >= 0),
    definition TEXT NOT NULL,
    PRIMARY KEY (election_id, question_index)
);

-- Decrypted ballots, one 1-indexed decimal integer per row, in arrival order
CREATE TABLE IF NOT EXISTS plaintext (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    question_index INTEGER NOT NULL,
    line_no INTEGER NOT NULL,
    value TEXT NOT NULL,
    PRIMARY KEY (election_id, question_index, line_no)
);

-- Withdrawn answers, ignored on every ballot of their question
CREATE TABLE IF NOT EXISTS withdrawal (
    election_id TEXT NOT NULL REFERENCES election(id) ON DELETE CASCADE,
    question_index INTEGER NOT NULL,
    answer_id INTEGER NOT NULL,
    PRIMARY KEY (election_id, question_index, answer_id)
);
`
