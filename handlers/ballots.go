// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/quickly-tally/ballotcodec"
	"github.com/danielhkuo/quickly-tally/cliparse"
	"github.com/danielhkuo/quickly-tally/middleware"
	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/tally"
)

// BallotHandler encodes and decodes ballots of stored questions.
// Nothing here touches stored ballots; it is what voting clients and
// auditors use to check their integers.
type BallotHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewBallotHandler(db *sql.DB, cfg cliparse.Config) *BallotHandler {
	return &BallotHandler{db: db, cfg: cfg}
}

// question loads the {id}/{index} question of the request, writing the
// error response itself
func (h *BallotHandler) question(w http.ResponseWriter, r *http.Request) (*models.Question, bool) {
	electionID, ok := pathElectionID(w, r)
	if !ok {
		return nil, false
	}
	index, ok := pathQuestionIndex(w, r)
	if !ok {
		return nil, false
	}

	q, err := loadQuestion(r.Context(), h.db, electionID, index)
	if err != nil {
		if !errors.Is(err, errElectionNotFound) && !errors.Is(err, errQuestionNotFound) {
			slog.Error("failed to load question", "error", err, "election_id", electionID, "question_index", index)
		}
		writeLoadError(w, err)
		return nil, false
	}
	return q, true
}

func rawBallotResponse(raw ballotcodec.RawBallot) models.RawBallotResponse {
	return models.RawBallotResponse{Bases: raw.Bases, Choices: raw.Choices}
}

// EncodeBallot handles POST /elections/{id}/questions/{index}/encode
func (h *BallotHandler) EncodeBallot(w http.ResponseWriter, r *http.Request) {
	q, ok := h.question(w, r)
	if !ok {
		return
	}

	var req models.EncodeBallotRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	byID := make(map[int]*models.Answer, len(q.Answers))
	for i := range q.Answers {
		byID[q.Answers[i].ID] = &q.Answers[i]
	}
	for id, sel := range req.Selections {
		a, ok := byID[id]
		if !ok {
			middleware.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("answer %d does not exist", id))
			return
		}
		a.Selected = models.Selected(sel)
	}
	for id, text := range req.WriteIns {
		a, ok := byID[id]
		if !ok || !a.IsWriteIn() {
			middleware.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("answer %d is not a write-in", id))
			return
		}
		a.Text = text
	}

	codec, err := ballotcodec.New(q)
	if err != nil {
		slog.Error("stored question no longer valid", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Invalid stored question")
		return
	}

	raw, err := codec.EncodeRawBallot()
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	encoded, err := codec.EncodeToInt(raw)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.EncodeBallotResponse{
		RawBallot: rawBallotResponse(raw),
		Encoded:   encoded.String(),
		Plaintext: new(big.Int).Add(encoded, big.NewInt(1)).String(),
	})
}

// DecodeBallot handles POST /elections/{id}/questions/{index}/decode
// Decodes a ballot integer and reports how the tally would count it
func (h *BallotHandler) DecodeBallot(w http.ResponseWriter, r *http.Request) {
	q, ok := h.question(w, r)
	if !ok {
		return
	}

	var req models.DecodeBallotRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	n, ok := new(big.Int).SetString(strings.TrimSpace(req.Encoded), 10)
	if !ok || n.Sign() < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "encoded must be a non-negative decimal integer")
		return
	}

	qt, err := tally.NewQuestionTally(q, tally.Options{})
	if err != nil {
		slog.Error("stored question no longer valid", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Invalid stored question")
		return
	}

	resp := models.DecodeBallotResponse{Outcome: models.OutcomeValid}

	raw, err := qt.Codec().DecodeFromInt(n)
	if err == nil {
		resp.RawBallot = rawBallotResponse(raw)
		if decoded, err := qt.Codec().DecodeRawBallot(raw); err == nil {
			resp.Answers = decoded.Answers
		}
	}

	choices, err := qt.ParseVote(n)
	var ballotErr *tally.BallotError
	switch {
	case errors.As(err, &ballotErr):
		resp.Outcome = models.OutcomeNull
		if ballotErr.Outcome == tally.OutcomeBlank {
			resp.Outcome = models.OutcomeBlank
		}
		resp.Reason = ballotErr.Error()
		choices = ballotErr.Partial
	case err != nil:
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, c := range choices.Choices() {
		resp.Choices = append(resp.Choices, models.ScoredChoice{
			AnswerID:    c.AnswerID,
			WriteInText: c.Key.WriteInText,
			Points:      c.Points,
		})
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetCapacity handles GET /elections/{id}/questions/{index}/capacity?modulus=N
// Without a modulus only the bases and the biggest normal ballot are returned
func (h *BallotHandler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	q, ok := h.question(w, r)
	if !ok {
		return
	}

	codec, err := ballotcodec.New(q)
	if err != nil {
		slog.Error("stored question no longer valid", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Invalid stored question")
		return
	}

	biggest := codec.BiggestEncodableNormalBallot()
	resp := models.CapacityResponse{
		Bases:                      codec.Bases(),
		BiggestNormalBallot:        biggest.String(),
		BiggestNormalBallotDisplay: humanize.BigComma(biggest),
	}

	if m := r.URL.Query().Get("modulus"); m != "" {
		modulus, ok := new(big.Int).SetString(m, 10)
		if !ok {
			middleware.ErrorResponse(w, http.StatusBadRequest, "modulus must be a decimal integer")
			return
		}

		left, err := codec.NumWriteInBytesLeft(modulus)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		resp.Modulus = modulus.String()
		resp.WriteInBytesLeft = &left
		if left > 0 {
			resp.WriteInBudget = humanize.Bytes(uint64(left))
		}
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
