// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-tally/auth"
	"github.com/danielhkuo/quickly-tally/cliparse"
	"github.com/danielhkuo/quickly-tally/db"
	"github.com/danielhkuo/quickly-tally/models"
)

// TestDBURL is the connection string for the test database
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh in-memory test database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(context.Background(), db.TypeSQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  TestDBURL,
		DatabaseType: db.TypeSQLite,
		AdminKeySalt: "test-admin-salt",
	}
}

// IntPtr returns a pointer to v, for the optional question fields
func IntPtr(v int) *int {
	return &v
}

// PluralityQuestion returns a question with three candidates, two write-in
// slots and an invalid vote flag
func PluralityQuestion() models.Question {
	return models.Question{
		Title:        "Board",
		TallyType:    models.TallyPluralityAtLarge,
		Min:          IntPtr(0),
		Max:          IntPtr(2),
		NumWinners:   1,
		ExtraOptions: models.ExtraOptions{AllowWriteIns: true},
		Answers: []models.Answer{
			{ID: 0, Text: "Alpha"},
			{ID: 1, Text: "Beta"},
			{ID: 2, Text: "Gamma"},
			{ID: 3, WriteIn: true},
			{ID: 4, WriteIn: true},
			{ID: 5, Text: "Invalid", InvalidVoteFlag: true},
		},
	}
}

// BordaQuestion returns a ranked question over three colors
func BordaQuestion() models.Question {
	return models.Question{
		Title:      "Color",
		TallyType:  models.TallyBorda,
		Min:        IntPtr(1),
		Max:        IntPtr(3),
		NumWinners: 1,
		Answers: []models.Answer{
			{ID: 0, Text: "Red"},
			{ID: 1, Text: "Green"},
			{ID: 2, Text: "Blue"},
		},
	}
}

// CreateTestElection stores an election with the given questions and
// returns its ID and admin key
func CreateTestElection(t *testing.T, conn *sql.DB, cfg cliparse.Config, questions ...models.Question) (electionID, adminKey string) {
	t.Helper()

	electionID = auth.NewElectionID()
	adminKey = auth.GenerateAdminKey(electionID, cfg.AdminKeySalt)

	_, err := conn.Exec(`
		INSERT INTO election (id, title, created_at)
		VALUES ($1, 'Test Election', $2)
	`, electionID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	for i, q := range questions {
		definition, err := json.Marshal(q)
		if err != nil {
			t.Fatalf("Failed to marshal question %d: %v", i, err)
		}
		_, err = conn.Exec(`
			INSERT INTO question (election_id, question_index, definition)
			VALUES ($1, $2, $3)
		`, electionID, i, string(definition))
		if err != nil {
			t.Fatalf("Failed to create test question: %v", err)
		}
	}

	return electionID, adminKey
}

// AddTestPlaintexts appends plaintext lines to a question
func AddTestPlaintexts(t *testing.T, conn *sql.DB, electionID string, questionIndex int, lines ...string) {
	t.Helper()

	var next int
	err := conn.QueryRow(`
		SELECT COALESCE(MAX(line_no) + 1, 0) FROM plaintext
		WHERE election_id = $1 AND question_index = $2
	`, electionID, questionIndex).Scan(&next)
	if err != nil {
		t.Fatalf("Failed to find next line: %v", err)
	}

	for i, line := range lines {
		_, err := conn.Exec(`
			INSERT INTO plaintext (election_id, question_index, line_no, value)
			VALUES ($1, $2, $3, $4)
		`, electionID, questionIndex, next+i, line)
		if err != nil {
			t.Fatalf("Failed to create test plaintext: %v", err)
		}
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body any, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
