// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"strings"

	"github.com/danielhkuo/quickly-tally/ballotcodec"
	"github.com/danielhkuo/quickly-tally/methods"
	"github.com/danielhkuo/quickly-tally/models"
)

// Options tune how one question is tallied
type Options struct {
	// answer ids removed from every ballot
	Withdrawals []int
	// keep at most this many choices per ballot, 0 disables
	TruncateVotes int
	// ballots that failed to decrypt, counted as null up front
	EncryptedInvalidVotes int
	// don't log rejected ballots
	IgnoreInvalidVotes bool
	Logger             *slog.Logger
}

// QuestionTally accumulates the ballots of a single question
type QuestionTally struct {
	question    *models.Question
	method      methods.Method
	codec       *ballotcodec.Codec
	opts        Options
	withdrawals map[int]struct{}
	log         *slog.Logger

	normalAnswers map[int]*candidate
	maxAnswerID   int
	// write-in arena: records in creation order, indexed by text
	writeIns     []candidate
	writeInIndex map[string]int
	totals       models.Totals
}

// candidate is an answer with its exact running total. Totals are summed as
// fractions so the ballot order can never change a comparison.
type candidate struct {
	answer models.Answer
	total  *big.Rat
}

func (c *candidate) add(points *big.Rat) {
	c.total.Add(c.total, points)
}

// clone returns a copy with TotalCount filled from the exact total
func (c *candidate) clone() candidate {
	out := candidate{answer: c.answer.Clone(), total: new(big.Rat).Set(c.total)}
	out.answer.TotalCount, _ = c.total.Float64()
	return out
}

// NewQuestionTally validates the question and prepares an empty tally.
// Every configuration problem is reported here, before any ballot is read.
func NewQuestionTally(q *models.Question, opts Options) (*QuestionTally, error) {
	if q == nil {
		return nil, configError("question is nil")
	}
	if q.Min == nil || q.Max == nil {
		return nil, configError("min and max are required")
	}
	if *q.Min < 0 || *q.Max < *q.Min {
		return nil, configError("invalid min %d / max %d", *q.Min, *q.Max)
	}
	if q.NumWinners < 0 {
		return nil, configError("num_winners must not be negative, got %d", q.NumWinners)
	}

	method, err := methods.Lookup(q.TallyType)
	if err != nil {
		return nil, configError("%v", err)
	}
	if err := method.Validate(q); err != nil {
		return nil, configError("%v", err)
	}

	codec, err := ballotcodec.New(q)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t := &QuestionTally{
		question:    codec.Question(),
		method:      method,
		codec:       codec,
		opts:        opts,
		withdrawals: make(map[int]struct{}, len(opts.Withdrawals)),
		log:         logger,
	}
	for _, id := range opts.Withdrawals {
		t.withdrawals[id] = struct{}{}
	}
	t.PreTally()

	return t, nil
}

// Codec returns the ballot codec of the question
func (t *QuestionTally) Codec() *ballotcodec.Codec {
	return t.codec
}

// Totals returns the running ballot counters
func (t *QuestionTally) Totals() models.Totals {
	return t.totals
}

// PreTally resets the accumulators
func (t *QuestionTally) PreTally() {
	t.normalAnswers = make(map[int]*candidate, len(t.question.Answers))
	t.maxAnswerID = -1
	for _, a := range t.question.Answers {
		if a.ID > t.maxAnswerID {
			t.maxAnswerID = a.ID
		}
		if a.IsWriteIn() {
			continue
		}
		answer := a.Clone()
		answer.TotalCount = 0
		answer.WinnerPosition = nil
		answer.Selected = models.Selection{}
		t.normalAnswers[a.ID] = &candidate{answer: answer, total: new(big.Rat)}
	}

	t.writeIns = nil
	t.writeInIndex = make(map[string]int)
	t.totals = models.Totals{NullVotes: t.opts.EncryptedInvalidVotes}
}

// ParseVote decodes a ballot integer (already shifted to 0-indexed) into
// weighted choices. Rejected ballots come back as *BallotError; any other
// error is fatal.
func (t *QuestionTally) ParseVote(n *big.Int) (models.ChoiceSet, error) {
	raw, err := t.codec.DecodeFromInt(n)
	if err != nil {
		if errors.Is(err, ballotcodec.ErrInvalidBallot) {
			return models.ChoiceSet{}, &BallotError{Outcome: OutcomeNull, Err: err}
		}
		return models.ChoiceSet{}, err
	}
	if raw.Invalid() {
		return models.ChoiceSet{}, &BallotError{Outcome: OutcomeNull, Err: ErrExplicitInvalid}
	}

	decoded, err := t.codec.DecodeRawBallot(raw)
	if err != nil {
		return models.ChoiceSet{}, &BallotError{Outcome: OutcomeNull, Err: err}
	}

	choices, err := t.method.Score(decoded, t.question, t.withdrawals)
	if err != nil {
		var implicit *methods.ImplicitInvalidError
		if errors.As(err, &implicit) {
			return models.ChoiceSet{}, &BallotError{
				Outcome: OutcomeNull,
				Err:     ErrImplicitInvalid,
				Reason:  implicit.Reason,
				Partial: implicit.Partial,
			}
		}
		return models.ChoiceSet{}, nullVote(ErrImplicitInvalid, "%v", err)
	}

	choices = choices.Filter(func(c models.WeightedChoice) bool {
		_, withdrawn := t.withdrawals[c.AnswerID]
		return !withdrawn
	})

	switch {
	case choices.Len() == 0:
		return models.ChoiceSet{}, &BallotError{Outcome: OutcomeBlank, Err: ErrBlank}
	case choices.Len() < *t.question.Min:
		return models.ChoiceSet{}, &BallotError{
			Outcome: OutcomeNull,
			Err:     ErrImplicitInvalid,
			Reason:  fmt.Sprintf("%d choices, min is %d", choices.Len(), *t.question.Min),
			Partial: choices,
		}
	case choices.HasDuplicateKeys():
		return models.ChoiceSet{}, &BallotError{
			Outcome: OutcomeNull,
			Err:     ErrImplicitInvalid,
			Reason:  "same candidate chosen twice",
			Partial: choices,
		}
	case choices.Len() > *t.question.Max:
		if !t.question.TruncateMaxOverload {
			return models.ChoiceSet{}, &BallotError{
				Outcome: OutcomeNull,
				Err:     ErrTooManyChoices,
				Reason:  fmt.Sprintf("%d choices, max is %d", choices.Len(), *t.question.Max),
				Partial: choices,
			}
		}
		choices = choices.Truncate(*t.question.Max)
	}

	if t.opts.TruncateVotes > 0 {
		choices = choices.Truncate(t.opts.TruncateVotes)
	}

	return choices, nil
}

// AddVote counts the result of ParseVote:
//
//	t.AddVote(t.ParseVote(n))
//
// Blank and null ballots only move their counter. Errors that are not
// ballot rejections are returned unchanged.
func (t *QuestionTally) AddVote(choices models.ChoiceSet, err error) error {
	if err != nil {
		var ballotErr *BallotError
		if !errors.As(err, &ballotErr) {
			return err
		}
		if ballotErr.Outcome == OutcomeBlank {
			t.totals.BlankVotes++
		} else {
			t.totals.NullVotes++
		}
		return nil
	}

	for _, c := range choices.Choices() {
		if c.Key.WriteIn {
			continue
		}
		if _, ok := t.normalAnswers[c.Key.AnswerID]; !ok {
			return fmt.Errorf("choice for unknown answer %d", c.Key.AnswerID)
		}
	}

	t.totals.ValidVotes++
	for _, c := range choices.Choices() {
		if !c.Key.WriteIn {
			t.normalAnswers[c.Key.AnswerID].add(c.Weight())
			continue
		}

		idx, ok := t.writeInIndex[c.Key.WriteInText]
		if !ok {
			idx = len(t.writeIns)
			t.writeIns = append(t.writeIns, candidate{
				answer: models.Answer{
					Text:          c.Key.WriteInText,
					WriteIn:       true,
					WriteInResult: true,
				},
				total: new(big.Rat),
			})
			t.writeInIndex[c.Key.WriteInText] = idx
		}
		t.writeIns[idx].add(c.Weight())
	}

	return nil
}

// sortByTextThenTotal orders candidates by exact total descending, ties
// broken alphabetically by text
func sortByTextThenTotal(candidates []*candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return strings.Compare(candidates[i].answer.Text, candidates[j].answer.Text) < 0
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].total.Cmp(candidates[j].total) > 0
	})
}

// PostTally builds the final answer list and picks the winners.
// The returned question is a new copy; the tally can keep accepting votes.
func (t *QuestionTally) PostTally() *models.Question {
	result := t.question.Clone()

	writeIns := make([]*candidate, len(t.writeIns))
	for i := range t.writeIns {
		c := t.writeIns[i].clone()
		writeIns[i] = &c
	}
	sortByTextThenTotal(writeIns)
	for rank, c := range writeIns {
		c.answer.ID = t.maxAnswerID + 1 + rank
	}

	ids := make([]int, 0, len(t.normalAnswers))
	for id := range t.normalAnswers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	final := make([]*candidate, 0, len(ids)+len(writeIns))
	for _, id := range ids {
		c := t.normalAnswers[id].clone()
		final = append(final, &c)
	}
	final = append(final, writeIns...)

	// every final answer is ranked, the invalid vote flag included; it never
	// gains points so it only places once the scoring answers run out
	candidates := make([]*candidate, len(final))
	for i, c := range final {
		c.answer.WinnerPosition = nil
		candidates[i] = c
	}
	sortByTextThenTotal(candidates)

	result.Winners = []string{}
	for position := 0; position < result.NumWinners && position < len(candidates); position++ {
		p := position
		candidates[position].answer.WinnerPosition = &p
		result.Winners = append(result.Winners, candidates[position].answer.Text)
	}

	result.Answers = make([]models.Answer, len(final))
	for i, c := range final {
		result.Answers[i] = c.answer
	}

	totals := t.totals
	result.Totals = &totals

	t.method.PostTally(result)

	return result
}
