// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/quickly-tally/auth"
	"github.com/danielhkuo/quickly-tally/ballotcodec"
	"github.com/danielhkuo/quickly-tally/cliparse"
	"github.com/danielhkuo/quickly-tally/middleware"
	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/tally"
)

type ElectionHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewElectionHandler(db *sql.DB, cfg cliparse.Config) *ElectionHandler {
	return &ElectionHandler{db: db, cfg: cfg}
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if len(req.Questions) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "at least one question is required")
		return
	}

	// Every question must be encodable and tallyable before anything is stored
	definitions := make([]string, len(req.Questions))
	for i := range req.Questions {
		q := &req.Questions[i]
		if _, err := tally.NewQuestionTally(q, tally.Options{}); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("question %d: %v", i, err))
			return
		}
		// results are computed on demand, never part of the definition
		q.Totals = nil
		q.Winners = nil
		for j := range q.Answers {
			q.Answers[j].Selected = models.Selection{}
			q.Answers[j].TotalCount = 0
			q.Answers[j].WinnerPosition = nil
		}

		definition, err := json.Marshal(q)
		if err != nil {
			slog.Error("failed to encode question", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
			return
		}
		definitions[i] = string(definition)
	}

	electionID := auth.NewElectionID()
	adminKey := auth.GenerateAdminKey(electionID, h.cfg.AdminKeySalt)

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(r.Context(), `
		INSERT INTO election (id, title, created_at)
		VALUES ($1, $2, $3)
	`, electionID, req.Title, time.Now().UTC())
	if err != nil {
		slog.Error("failed to insert election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	for i, definition := range definitions {
		_, err = tx.ExecContext(r.Context(), `
			INSERT INTO question (election_id, question_index, definition)
			VALUES ($1, $2, $3)
		`, electionID, i, definition)
		if err != nil {
			slog.Error("failed to insert question", "error", err, "question_index", i)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	slog.Info("election created", "election_id", electionID, "questions", len(definitions))

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectionResponse{
		ElectionID: electionID,
		AdminKey:   adminKey,
	})
}

// GetElection handles GET /elections/{id}
// Returns every question with the bases a client needs to encode ballots
func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
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

	questions, err := loadQuestions(r.Context(), h.db, electionID)
	if err != nil {
		slog.Error("failed to load questions", "error", err, "election_id", electionID)
		writeLoadError(w, err)
		return
	}

	withdrawals, err := loadWithdrawals(r.Context(), h.db, electionID)
	if err != nil {
		slog.Error("failed to load withdrawals", "error", err, "election_id", electionID)
		writeLoadError(w, err)
		return
	}

	election.Questions = make([]models.QuestionInfo, 0, len(questions))
	for i, q := range questions {
		codec, err := ballotcodec.New(q)
		if err != nil {
			slog.Error("stored question no longer valid", "error", err, "election_id", electionID, "question_index", i)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Invalid stored question")
			return
		}

		withdrawn := withdrawals[i]
		if withdrawn == nil {
			withdrawn = []int{}
		}
		election.Questions = append(election.Questions, models.QuestionInfo{
			Index:               i,
			Question:            q,
			Bases:               codec.Bases(),
			BiggestNormalBallot: codec.BiggestEncodableNormalBallot().String(),
			Withdrawals:         withdrawn,
		})
	}

	middleware.JSONResponse(w, http.StatusOK, election)
}

// AddWithdrawals handles POST /elections/{id}/withdrawals
// Withdrawn answers are dropped from every ballot at tally time
func (h *ElectionHandler) AddWithdrawals(w http.ResponseWriter, r *http.Request) {
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return
	}
	if !requireAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	var req models.AddWithdrawalsRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Withdrawals) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "withdrawals are required")
		return
	}

	questions, err := loadQuestions(r.Context(), h.db, electionID)
	if err != nil {
		slog.Error("failed to load questions", "error", err, "election_id", electionID)
		writeLoadError(w, err)
		return
	}
	if len(questions) == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return
	}

	for _, wd := range req.Withdrawals {
		if wd.QuestionIndex < 0 || wd.QuestionIndex >= len(questions) {
			middleware.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("question %d does not exist", wd.QuestionIndex))
			return
		}
		if !hasCandidate(questions[wd.QuestionIndex], wd.AnswerID) {
			middleware.ErrorResponse(w, http.StatusBadRequest,
				fmt.Sprintf("question %d has no answer %d that can be withdrawn", wd.QuestionIndex, wd.AnswerID))
			return
		}
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add withdrawals")
		return
	}
	defer tx.Rollback()

	added := 0
	for _, wd := range req.Withdrawals {
		res, err := tx.ExecContext(r.Context(), `
			INSERT INTO withdrawal (election_id, question_index, answer_id)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, electionID, wd.QuestionIndex, wd.AnswerID)
		if err != nil {
			slog.Error("failed to insert withdrawal", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add withdrawals")
			return
		}
		if n, err := res.RowsAffected(); err == nil {
			added += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit withdrawals", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to add withdrawals")
		return
	}

	slog.Info("answers withdrawn", "election_id", electionID, "added", added)

	middleware.JSONResponse(w, http.StatusOK, map[string]int{
		"added": added,
	})
}

// hasCandidate reports whether id names a non write-in, non flag answer
func hasCandidate(q *models.Question, id int) bool {
	for i := range q.Answers {
		a := &q.Answers[i]
		if a.ID == id {
			return !a.IsWriteIn() && !a.IsInvalidVoteFlag()
		}
	}
	return false
}
