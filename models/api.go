// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Ballot outcome constants
const (
	OutcomeValid = "valid"
	OutcomeBlank = "blank"
	OutcomeNull  = "null"
)

// Request types

type CreateElectionRequest struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// answer_id -> selection, answer_id -> write-in text
type EncodeBallotRequest struct {
	Selections map[int]uint32 `json:"selections"`
	WriteIns   map[int]string `json:"write_ins,omitempty"`
}

// Encoded is the 0-indexed ballot integer in decimal
type DecodeBallotRequest struct {
	Encoded string `json:"encoded"`
}

type AddPlaintextsRequest struct {
	QuestionIndex int      `json:"question_index"`
	Plaintexts    []string `json:"plaintexts"`
	// ballots that could not be decrypted, added to the election counter
	EncryptedInvalidVotes int `json:"encrypted_invalid_votes,omitempty"`
}

type Withdrawal struct {
	QuestionIndex int `json:"question_index"`
	AnswerID      int `json:"answer_id"`
}

type AddWithdrawalsRequest struct {
	Withdrawals []Withdrawal `json:"withdrawals"`
}

type TruncateVotes struct {
	QuestionIndex int `json:"question_index"`
	TruncateVotes int `json:"truncate_votes"`
}

type TallyRequest struct {
	TruncateVotes []TruncateVotes `json:"truncate_votes,omitempty"`
}

// Response types

type CreateElectionResponse struct {
	ElectionID string `json:"election_id"`
	AdminKey   string `json:"admin_key"`
}

type QuestionInfo struct {
	Index               int       `json:"index"`
	Question            *Question `json:"question"`
	Bases               []uint32  `json:"bases"`
	BiggestNormalBallot string    `json:"biggest_normal_ballot"`
	Withdrawals         []int     `json:"withdrawals"`
}

type Election struct {
	ID                    string         `json:"id"`
	Title                 string         `json:"title"`
	EncryptedInvalidVotes int            `json:"encrypted_invalid_votes"`
	CreatedAt             time.Time      `json:"created_at"`
	Questions             []QuestionInfo `json:"questions"`
}

type RawBallotResponse struct {
	Bases   []uint32 `json:"bases"`
	Choices []uint32 `json:"choices"`
}

type EncodeBallotResponse struct {
	RawBallot RawBallotResponse `json:"raw_ballot"`
	Encoded   string            `json:"encoded"`
	// what gets encrypted: encoded + 1
	Plaintext string `json:"plaintext"`
}

type DecodeBallotResponse struct {
	RawBallot RawBallotResponse `json:"raw_ballot"`
	Answers   []Answer          `json:"answers,omitempty"`
	Outcome   string            `json:"outcome"`
	Reason    string            `json:"reason,omitempty"`
	Choices   []ScoredChoice    `json:"choices,omitempty"`
}

type ScoredChoice struct {
	AnswerID    int     `json:"answer_id"`
	WriteInText string  `json:"write_in_text,omitempty"`
	Points      float64 `json:"points"`
}

type CapacityResponse struct {
	Bases               []uint32 `json:"bases"`
	BiggestNormalBallot string   `json:"biggest_normal_ballot"`
	// digit-grouped form for display, e.g. "4,194,303"
	BiggestNormalBallotDisplay string `json:"biggest_normal_ballot_display"`
	Modulus                    string `json:"modulus,omitempty"`
	WriteInBytesLeft           *int   `json:"write_in_bytes_left,omitempty"`
	// WriteInBytesLeft for display, e.g. "5 B"; empty when it is not positive
	WriteInBudget string `json:"write_in_budget,omitempty"`
}

type AddPlaintextsResponse struct {
	QuestionIndex int `json:"question_index"`
	Added         int `json:"added"`
	Total         int `json:"total"`
}

type QuestionBallotCount struct {
	QuestionIndex int `json:"question_index"`
	Count         int `json:"count"`
}

type BallotCountResponse struct {
	Counts                []QuestionBallotCount `json:"counts"`
	EncryptedInvalidVotes int                   `json:"encrypted_invalid_votes"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
