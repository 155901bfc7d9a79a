// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/quickly-tally/ballotcodec"
	"github.com/danielhkuo/quickly-tally/cliparse"
	"github.com/danielhkuo/quickly-tally/metrics"
	"github.com/danielhkuo/quickly-tally/middleware"
	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/tally"
)

type TallyHandler struct {
	db      *sql.DB
	cfg     cliparse.Config
	metrics *metrics.Metrics
}

func NewTallyHandler(db *sql.DB, cfg cliparse.Config, m *metrics.Metrics) *TallyHandler {
	return &TallyHandler{db: db, cfg: cfg, metrics: m}
}

// AddPlaintexts handles POST /elections/{id}/plaintexts
// Lines are stored as given; malformed ones count as null votes at tally time
func (h *TallyHandler) AddPlaintexts(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return
	}
	if !requireAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	var req models.AddPlaintextsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.EncryptedInvalidVotes < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "encrypted_invalid_votes must not be negative")
		return
	}
	for i, line := range req.Plaintexts {
		if strings.TrimSpace(line) == "" || strings.ContainsAny(line, "\r\n") {
			middleware.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("plaintext %d must be a single non-empty line", i))
			return
		}
	}

	if _, err := loadQuestion(r.Context(), h.db, electionID, req.QuestionIndex); err != nil {
		if !errors.Is(err, errElectionNotFound) && !errors.Is(err, errQuestionNotFound) {
			slog.Error("failed to load question", "error", err, "election_id", electionID)
		}
		writeLoadError(w, err)
		return
	}

	total, err := h.appendPlaintexts(r.Context(), electionID, req)
	if err != nil {
		slog.Error("failed to store plaintexts", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to store plaintexts")
		return
	}

	slog.Info("plaintexts stored",
		"election_id", electionID,
		"question_index", req.QuestionIndex,
		"added", len(req.Plaintexts),
		"encrypted_invalid_votes", req.EncryptedInvalidVotes,
	)

	middleware.JSONResponse(w, http.StatusCreated, models.AddPlaintextsResponse{
		QuestionIndex: req.QuestionIndex,
		Added:         len(req.Plaintexts),
		Total:         total,
	})
}

// appendPlaintexts stores the lines after the existing ones and returns the
// new number of lines of the question
func (h *TallyHandler) appendPlaintexts(ctx context.Context, electionID string, req models.AddPlaintextsRequest) (int, error) {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(line_no) + 1, 0) FROM plaintext
		WHERE election_id = $1 AND question_index = $2
	`, electionID, req.QuestionIndex).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to find next line: %w", err)
	}

	for i, line := range req.Plaintexts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO plaintext (election_id, question_index, line_no, value)
			VALUES ($1, $2, $3, $4)
		`, electionID, req.QuestionIndex, next+i, strings.TrimSpace(line))
		if err != nil {
			return 0, fmt.Errorf("failed to insert plaintext: %w", err)
		}
	}

	if req.EncryptedInvalidVotes > 0 {
		_, err := tx.ExecContext(ctx, `
			UPDATE election SET encrypted_invalid_votes = encrypted_invalid_votes + $1
			WHERE id = $2
		`, req.EncryptedInvalidVotes, electionID)
		if err != nil {
			return 0, fmt.Errorf("failed to update encrypted invalid votes: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit plaintexts: %w", err)
	}
	return next + len(req.Plaintexts), nil
}

// GetBallotCount handles GET /elections/{id}/ballot-count
// Returns the number of stored plaintexts of every question
func (h *TallyHandler) GetBallotCount(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return
	}

	election, err := loadElection(r.Context(), h.db, electionID)
	if err != nil {
		if !errors.Is(err, errElectionNotFound) {
			slog.Error("failed to load election", "error", err, "election_id", electionID)
		}
		writeLoadError(w, err)
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT q.question_index, COUNT(p.line_no)
		FROM question q
		LEFT JOIN plaintext p
			ON p.election_id = q.election_id AND p.question_index = q.question_index
		WHERE q.election_id = $1
		GROUP BY q.question_index
		ORDER BY q.question_index
	`, electionID)
	if err != nil {
		slog.Error("failed to count plaintexts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	resp := models.BallotCountResponse{
		Counts:                []models.QuestionBallotCount{},
		EncryptedInvalidVotes: election.EncryptedInvalidVotes,
	}
	for rows.Next() {
		var c models.QuestionBallotCount
		if err := rows.Scan(&c.QuestionIndex, &c.Count); err != nil {
			slog.Error("failed to scan ballot count", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		resp.Counts = append(resp.Counts, c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to count plaintexts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// RunTally handles POST /elections/{id}/tally
// Tallies every question over the stored plaintexts. The result is returned,
// never stored; running it again gives the same answer.
func (h *TallyHandler) RunTally(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return
	}
	if !requireAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	// the body is optional
	var req models.TallyRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	jobs, err := h.loadJobs(r.Context(), electionID, req)
	if err != nil {
		var badRequest *requestError
		switch {
		case errors.As(err, &badRequest):
			middleware.ErrorResponse(w, http.StatusBadRequest, badRequest.Error())
		case errors.Is(err, errElectionNotFound):
			writeLoadError(w, err)
		default:
			slog.Error("failed to load tally input", "error", err, "election_id", electionID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	start := time.Now()
	result, err := tally.Run(r.Context(), jobs)
	elapsed := time.Since(start)
	if h.metrics != nil {
		h.metrics.ObserveRun(elapsed, err)
	}
	if err != nil {
		var cfgErr *ballotcodec.ConfigError
		if errors.As(err, &cfgErr) {
			middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("tally failed", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Tally failed")
		return
	}
	if h.metrics != nil {
		h.metrics.RecordResult(result)
	}

	slog.Info("tally complete",
		"election_id", electionID,
		"run_id", result.RunID,
		"total_votes", humanize.Comma(int64(result.TotalVotes)),
		"duration_ms", elapsed.Milliseconds(),
	)

	middleware.JSONResponse(w, http.StatusOK, result)
}

// requestError is a tally request that does not fit the election
type requestError struct {
	msg string
}

func (e *requestError) Error() string {
	return e.msg
}

// loadJobs reads everything a tally needs before any ballot is counted
func (h *TallyHandler) loadJobs(ctx context.Context, electionID string, req models.TallyRequest) ([]tally.Job, error) {
	election, err := loadElection(ctx, h.db, electionID)
	if err != nil {
		return nil, err
	}
	questions, err := loadQuestions(ctx, h.db, electionID)
	if err != nil {
		return nil, err
	}
	withdrawals, err := loadWithdrawals(ctx, h.db, electionID)
	if err != nil {
		return nil, err
	}

	truncate := make(map[int]int, len(req.TruncateVotes))
	for _, tv := range req.TruncateVotes {
		if tv.QuestionIndex < 0 || tv.QuestionIndex >= len(questions) {
			return nil, &requestError{msg: fmt.Sprintf("truncate_votes: question %d does not exist", tv.QuestionIndex)}
		}
		if tv.TruncateVotes < 1 {
			return nil, &requestError{msg: fmt.Sprintf("truncate_votes: question %d needs a positive limit", tv.QuestionIndex)}
		}
		truncate[tv.QuestionIndex] = tv.TruncateVotes
	}

	jobs := make([]tally.Job, len(questions))
	for i, q := range questions {
		lines, err := h.loadPlaintexts(ctx, electionID, i)
		if err != nil {
			return nil, err
		}
		jobs[i] = tally.Job{
			Question: q,
			Ballots:  strings.NewReader(lines),
			Options: tally.Options{
				Withdrawals:           withdrawals[i],
				TruncateVotes:         truncate[i],
				EncryptedInvalidVotes: election.EncryptedInvalidVotes,
				IgnoreInvalidVotes:    h.cfg.IgnoreInvalidVotes,
				Logger:                slog.Default().With("election_id", electionID, "question_index", i),
			},
		}
	}
	return jobs, nil
}

// loadPlaintexts returns the stored lines of one question, newline separated
func (h *TallyHandler) loadPlaintexts(ctx context.Context, electionID string, index int) (string, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT value FROM plaintext
		WHERE election_id = $1 AND question_index = $2
		ORDER BY line_no
	`, electionID, index)
	if err != nil {
		return "", fmt.Errorf("failed to query plaintexts: %w", err)
	}
	defer rows.Close()

	var sb strings.Builder
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return "", fmt.Errorf("failed to scan plaintext: %w", err)
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String(), rows.Err()
}
