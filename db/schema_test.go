// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"testing"
)

func TestDriverName(t *testing.T) {
	tests := []struct {
		databaseType string
		want         string
		wantErr      bool
	}{
		{"sqlite", "sqlite", false},
		{"", "sqlite", false},
		{"postgres", "postgres", false},
		{"mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.databaseType, func(t *testing.T) {
			got, err := DriverName(tt.databaseType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DriverName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DriverName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateSchemaIsIdempotent(t *testing.T) {
	conn, err := Open(context.Background(), TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		if err := CreateSchema(conn); err != nil {
			t.Fatalf("CreateSchema() run %d error = %v", i+1, err)
		}
	}

	if _, err := conn.Exec(`INSERT INTO election (id, title) VALUES ($1, $2)`, "e1", "Test"); err != nil {
		t.Fatalf("insert election: %v", err)
	}

	var invalid int
	if err := conn.QueryRow(`SELECT encrypted_invalid_votes FROM election WHERE id = $1`, "e1").Scan(&invalid); err != nil {
		t.Fatalf("select election: %v", err)
	}
	if invalid != 0 {
		t.Errorf("encrypted_invalid_votes default = %d, want 0", invalid)
	}

	if _, err := conn.Exec(`UPDATE election SET encrypted_invalid_votes = -1 WHERE id = $1`, "e1"); err == nil {
		t.Error("expected the CHECK constraint to reject a negative count")
	}
}

func TestOpenRejectsUnknownType(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "x"); err == nil {
		t.Error("expected an error for an unknown database type")
	}
}
