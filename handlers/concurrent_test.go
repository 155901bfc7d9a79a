// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/testutil"
)

// TestConcurrentPlaintextUploads verifies that simultaneous uploads to the
// same question never reuse a line number or lose a line
func TestConcurrentPlaintextUploads(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewTallyHandler(db, cfg, nil)
	electionID, adminKey := testutil.CreateTestElection(t, db, cfg, testutil.PluralityQuestion())

	numUploads := 10
	linesPerUpload := 5

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numUploads; i++ {
		wg.Add(1)
		go func(upload int) {
			defer wg.Done()

			lines := make([]string, linesPerUpload)
			for j := range lines {
				lines[j] = fmt.Sprint(upload*linesPerUpload + j + 1)
			}
			w := httptest.NewRecorder()
			handler.AddPlaintexts(w, electionRequest("POST", electionID, "plaintexts", adminKey,
				models.AddPlaintextsRequest{Plaintexts: lines, EncryptedInvalidVotes: 1}))

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numUploads {
		t.Errorf("Expected %d successful uploads, got %d", numUploads, successCount.Load())
	}

	var lines, distinctLines, maxLine int
	err := db.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT line_no), MAX(line_no) FROM plaintext
		WHERE election_id = $1 AND question_index = 0
	`, electionID).Scan(&lines, &distinctLines, &maxLine)
	if err != nil {
		t.Fatalf("Failed to count plaintexts: %v", err)
	}

	want := numUploads * linesPerUpload
	if lines != want || distinctLines != want || maxLine != want-1 {
		t.Errorf("Expected %d lines numbered 0..%d, got %d lines, %d distinct, max %d",
			want, want-1, lines, distinctLines, maxLine)
	}

	var invalid int
	if err := db.QueryRow(`SELECT encrypted_invalid_votes FROM election WHERE id = $1`, electionID).Scan(&invalid); err != nil {
		t.Fatalf("Failed to read election: %v", err)
	}
	if invalid != numUploads {
		t.Errorf("Expected %d encrypted invalid votes, got %d", numUploads, invalid)
	}
}

// TestConcurrentTallies verifies that tallies running side by side over the
// same election agree
func TestConcurrentTallies(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	handler := NewTallyHandler(db, cfg, nil)
	electionID, adminKey := testutil.CreateTestElection(t, db, cfg, testutil.PluralityQuestion(), testutil.BordaQuestion())
	seedBallots(t, db, electionID)

	numRuns := 5
	results := make([]models.Result, numRuns)
	codes := make([]int, numRuns)

	var wg sync.WaitGroup
	for i := 0; i < numRuns; i++ {
		wg.Add(1)
		go func(run int) {
			defer wg.Done()

			w := httptest.NewRecorder()
			handler.RunTally(w, electionRequest("POST", electionID, "tally", adminKey, nil))
			codes[run] = w.Code
			if w.Code == http.StatusOK {
				if err := json.NewDecoder(w.Body).Decode(&results[run]); err != nil {
					t.Errorf("Run %d: failed to decode result: %v", run, err)
				}
			}
		}(i)
	}

	wg.Wait()

	runIDs := make(map[string]struct{}, numRuns)
	for i, code := range codes {
		if code != http.StatusOK {
			t.Fatalf("Run %d failed with status %d", i, code)
		}
		runIDs[results[i].RunID] = struct{}{}

		for q := range results[i].Questions {
			got, want := results[i].Questions[q], results[0].Questions[q]
			if *got.Totals != *want.Totals {
				t.Errorf("Run %d question %d totals %+v, want %+v", i, q, *got.Totals, *want.Totals)
			}
			if fmt.Sprint(got.Winners) != fmt.Sprint(want.Winners) {
				t.Errorf("Run %d question %d winners %v, want %v", i, q, got.Winners, want.Winners)
			}
		}
	}

	if len(runIDs) != numRuns {
		t.Errorf("Expected %d distinct run ids, got %d", numRuns, len(runIDs))
	}
}

// TestParallelElections verifies that elections created at the same time
// stay isolated from each other
func TestParallelElections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	electionHandler := NewElectionHandler(db, cfg)
	tallyHandler := NewTallyHandler(db, cfg, nil)

	numElections := 4
	created := make([]models.CreateElectionResponse, numElections)

	var wg sync.WaitGroup
	for i := 0; i < numElections; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			w := httptest.NewRecorder()
			electionHandler.CreateElection(w, testutil.MakeRequest("POST", "/elections", models.CreateElectionRequest{
				Title:     fmt.Sprintf("Parallel %d", idx),
				Questions: []models.Question{testutil.BordaQuestion()},
			}, nil))
			if w.Code == http.StatusCreated {
				if err := json.NewDecoder(w.Body).Decode(&created[idx]); err != nil {
					t.Errorf("Election %d: failed to decode response: %v", idx, err)
				}
			}
		}(i)
	}
	wg.Wait()

	// election i gets i+1 ballots ranking Red first
	borda := testutil.BordaQuestion()
	redFirst := plaintextFor(t, borda, map[int]uint32{0: 0}, nil)
	for i, c := range created {
		if c.ElectionID == "" {
			t.Fatalf("Election %d was not created", i)
		}
		lines := make([]string, i+1)
		for j := range lines {
			lines[j] = redFirst
		}
		testutil.AddTestPlaintexts(t, db, c.ElectionID, 0, lines...)
	}

	for i, c := range created {
		w := httptest.NewRecorder()
		tallyHandler.RunTally(w, electionRequest("POST", c.ElectionID, "tally", c.AdminKey, nil))
		testutil.AssertStatus(t, w, http.StatusOK)

		var result models.Result
		testutil.AssertJSON(t, w, &result)
		if result.TotalVotes != i+1 {
			t.Errorf("Election %d: total_votes = %d, want %d", i, result.TotalVotes, i+1)
		}
		if got := totalsByText(result.Questions[0])["Red"]; got != float64(3*(i+1)) {
			t.Errorf("Election %d: Red = %v, want %d", i, got, 3*(i+1))
		}
	}
}
