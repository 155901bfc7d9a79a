// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"errors"
	"fmt"

	"github.com/danielhkuo/quickly-tally/ballotcodec"
	"github.com/danielhkuo/quickly-tally/models"
)

var (
	ErrExplicitInvalid = errors.New("explicitly invalid vote")
	ErrBlank           = errors.New("blank vote")
	ErrImplicitInvalid = errors.New("implicitly invalid vote")
	ErrTooManyChoices  = errors.New("too many choices")
	ErrMalformedLine   = errors.New("malformed ballot line")
)

// Outcome is how a rejected ballot is counted
type Outcome int

const (
	OutcomeNull Outcome = iota
	OutcomeBlank
)

func (o Outcome) String() string {
	if o == OutcomeBlank {
		return "blank"
	}
	return "null"
}

// BallotError rejects a single ballot. The tally counts it and moves on.
type BallotError struct {
	Outcome Outcome
	Err     error
	Reason  string
	// choices built before the ballot was found invalid, if any
	Partial models.ChoiceSet
}

func (e *BallotError) Error() string {
	if e.Reason == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *BallotError) Unwrap() error {
	return e.Err
}

func nullVote(err error, format string, args ...any) *BallotError {
	return &BallotError{Outcome: OutcomeNull, Err: err, Reason: fmt.Sprintf(format, args...)}
}

func configError(format string, args ...any) *ballotcodec.ConfigError {
	return &ballotcodec.ConfigError{Reason: fmt.Sprintf(format, args...), Err: ballotcodec.ErrInvalidQuestion}
}
