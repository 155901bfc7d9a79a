// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/quickly-tally/models"
)

// maxLineSize bounds one plaintext line; write-in ballots can be long
const maxLineSize = 1 << 20

// ParseLine reads one plaintext line: a decimal integer, optionally wrapped
// in double quotes, counted from 1. The returned ballot integer counts from 0.
func ParseLine(line string) (*big.Int, error) {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)

	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, nullVote(ErrMalformedLine, "not a decimal integer: %q", line)
	}
	n.Sub(n, big.NewInt(1))
	if n.Sign() < 0 {
		return nil, nullVote(ErrMalformedLine, "plaintexts start at 1, got %q", line)
	}
	return n, nil
}

// Job is one question together with its decrypted plaintexts
type Job struct {
	Question *models.Question
	Ballots  io.Reader
	Options  Options
}

// Run tallies every job, one worker per question, and returns the
// questions in job order. Configuration errors abort before any ballot
// is read.
func Run(ctx context.Context, jobs []Job) (*models.Result, error) {
	tallies := make([]*QuestionTally, len(jobs))
	for i, job := range jobs {
		t, err := NewQuestionTally(job.Question, job.Options)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		tallies[i] = t
	}

	lineCounts := make([]int, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	for i := range jobs {
		g.Go(func() error {
			n, err := tallies[i].Fold(ctx, jobs[i].Ballots)
			if err != nil {
				return fmt.Errorf("question %d: %w", i, err)
			}
			lineCounts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &models.Result{
		RunID:     uuid.NewString(),
		Questions: make([]*models.Question, len(tallies)),
	}
	for i, t := range tallies {
		result.Questions[i] = t.PostTally()
	}
	if last := len(jobs) - 1; last >= 0 {
		result.TotalVotes = lineCounts[last] + jobs[last].Options.EncryptedInvalidVotes
	}

	return result, nil
}

// Fold counts every non-empty line of r in order and returns how many
// lines were read
func (t *QuestionTally) Fold(ctx context.Context, r io.Reader) (int, error) {
	if r == nil {
		return 0, nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	count := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		count++

		n, err := ParseLine(line)
		if err == nil {
			var choices models.ChoiceSet
			choices, err = t.ParseVote(n)
			if err == nil {
				if err := t.AddVote(choices, nil); err != nil {
					return count, err
				}
				continue
			}
		}

		var ballotErr *BallotError
		if !errors.As(err, &ballotErr) {
			return count, err
		}
		if err := t.AddVote(models.ChoiceSet{}, ballotErr); err != nil {
			return count, err
		}
		if ballotErr.Outcome == OutcomeNull && !t.opts.IgnoreInvalidVotes {
			t.log.Warn("invalid vote", "line", line, "error", ballotErr)
		}
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed to read plaintexts: %w", err)
	}

	return count, nil
}
