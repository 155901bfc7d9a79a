// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielhkuo/quickly-tally/auth"
	"github.com/danielhkuo/quickly-tally/middleware"
	"github.com/danielhkuo/quickly-tally/models"
)

var (
	errElectionNotFound = errors.New("election not found")
	errQuestionNotFound = errors.New("question not found")
)

// querier is the part of *sql.DB and *sql.Tx the loaders need
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// pathElectionID validates the {id} path value, writing a 400 when it is malformed
func pathElectionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	electionID, err := auth.ParseElectionID(r.PathValue("id"))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid election id")
		return "", false
	}
	return electionID, true
}

// pathQuestionIndex validates the {index} path value
func pathQuestionIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid question index")
		return 0, false
	}
	return index, true
}

// requireAdmin checks the admin key of the request, writing a 401 when it is wrong
func requireAdmin(w http.ResponseWriter, r *http.Request, electionID, salt string) bool {
	if err := auth.ValidateAdminKey(electionID, auth.AdminKeyFromRequest(r), salt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

// writeLoadError maps loader errors to responses
func writeLoadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errElectionNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
	case errors.Is(err, errQuestionNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Question not found")
	default:
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
	}
}

func loadElection(ctx context.Context, q querier, electionID string) (models.Election, error) {
	e := models.Election{ID: electionID}
	err := q.QueryRowContext(ctx, `
		SELECT title, encrypted_invalid_votes, created_at FROM election WHERE id = $1
	`, electionID).Scan(&e.Title, &e.EncryptedInvalidVotes, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return e, errElectionNotFound
	}
	if err != nil {
		return e, fmt.Errorf("failed to query election: %w", err)
	}
	return e, nil
}

// loadQuestions returns the questions of an election in index order
func loadQuestions(ctx context.Context, q querier, electionID string) ([]*models.Question, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT question_index, definition FROM question
		WHERE election_id = $1
		ORDER BY question_index
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []*models.Question
	for rows.Next() {
		var index int
		var definition string
		if err := rows.Scan(&index, &definition); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if index != len(questions) {
			return nil, fmt.Errorf("question %d stored without question %d", index, len(questions))
		}
		var question models.Question
		if err := json.Unmarshal([]byte(definition), &question); err != nil {
			return nil, fmt.Errorf("failed to decode question %d: %w", index, err)
		}
		questions = append(questions, &question)
	}
	return questions, rows.Err()
}

func loadQuestion(ctx context.Context, q querier, electionID string, index int) (*models.Question, error) {
	var definition string
	err := q.QueryRowContext(ctx, `
		SELECT definition FROM question
		WHERE election_id = $1 AND question_index = $2
	`, electionID, index).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := loadElection(ctx, q, electionID); err != nil {
			return nil, err
		}
		return nil, errQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query question: %w", err)
	}

	var question models.Question
	if err := json.Unmarshal([]byte(definition), &question); err != nil {
		return nil, fmt.Errorf("failed to decode question %d: %w", index, err)
	}
	return &question, nil
}

// loadWithdrawals returns withdrawn answer ids by question index
func loadWithdrawals(ctx context.Context, q querier, electionID string) (map[int][]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT question_index, answer_id FROM withdrawal
		WHERE election_id = $1
		ORDER BY question_index, answer_id
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals := make(map[int][]int)
	for rows.Next() {
		var index, answerID int
		if err := rows.Scan(&index, &answerID); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals[index] = append(withdrawals[index], answerID)
	}
	return withdrawals, rows.Err()
}
