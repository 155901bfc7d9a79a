// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package methods

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/danielhkuo/quickly-tally/models"
)

var (
	ErrUnknownMethod = errors.New("unknown tally type")
	ErrInvalidConfig = errors.New("invalid method configuration")
)

// Method is the set of hooks one voting method plugs into the tally
type Method interface {
	Validate(question *models.Question) error
	Score(decoded, question *models.Question, withdrawals map[int]struct{}) (models.ChoiceSet, error)
	PostTally(question *models.Question)
}

// ImplicitInvalidError marks a ballot whose selections are structurally invalid
type ImplicitInvalidError struct {
	Reason  string
	Partial models.ChoiceSet
}

func (e *ImplicitInvalidError) Error() string {
	return "implicitly invalid ballot: " + e.Reason
}

// pointsFunc returns the points an answer selected at position sel is worth
type pointsFunc func(question *models.Question, sel uint32) (*big.Rat, error)

type method struct {
	points   pointsFunc
	validate func(question *models.Question) error
}

var table = map[models.TallyType]Method{
	models.TallyPluralityAtLarge: &method{points: plusOne},
	models.TallyCumulative:       &method{points: plusOne},
	models.TallyBorda:            &method{points: bordaPoints},
	models.TallyBordaNauru:       &method{points: nauruPoints},
	models.TallyBordaCustom:      &method{points: customPoints, validate: validateCustomWeights},
}

// Lookup returns the method for a tally type
func Lookup(t models.TallyType) (Method, error) {
	m, ok := table[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, t)
	}
	return m, nil
}

func (m *method) Validate(question *models.Question) error {
	if m.validate == nil {
		return nil
	}
	return m.validate(question)
}

func (m *method) Score(decoded, question *models.Question, withdrawals map[int]struct{}) (models.ChoiceSet, error) {
	var choices models.ChoiceSet
	var positions []uint32
	var reason string

	for _, a := range decoded.SortedAnswers() {
		if a.IsInvalidVoteFlag() || !a.Selected.Valid {
			continue
		}
		positions = append(positions, a.Selected.Value)
		if _, ok := withdrawals[a.ID]; ok {
			continue
		}

		key := models.AnswerKey(a.ID)
		if a.IsWriteIn() {
			if a.Text == "" {
				if reason == "" {
					reason = fmt.Sprintf("write-in %d selected without text", a.ID)
				}
				continue
			}
			key = models.WriteInKey(a.Text)
		}

		points, err := m.points(question, a.Selected.Value)
		if err != nil {
			if reason == "" {
				reason = err.Error()
			}
			continue
		}
		value, _ := points.Float64()
		choices.Add(models.WeightedChoice{Key: key, Points: value, AnswerID: a.ID, Exact: points})
	}

	if reason == "" && question.TallyType.Preferential() {
		reason = checkRanking(positions)
	}
	if reason != "" {
		return choices, &ImplicitInvalidError{Reason: reason, Partial: choices}
	}

	return choices, nil
}

func (m *method) PostTally(*models.Question) {}

// checkRanking requires positions to be exactly 0..n-1 in some order
func checkRanking(positions []uint32) string {
	sorted := append([]uint32(nil), positions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i, p := range sorted {
		if i > 0 && sorted[i-1] == p {
			return fmt.Sprintf("position %d repeated", p)
		}
		if p != uint32(i) {
			return fmt.Sprintf("position %d missing", i)
		}
	}
	return ""
}

func plusOne(_ *models.Question, sel uint32) (*big.Rat, error) {
	return new(big.Rat).SetInt64(int64(sel) + 1), nil
}

func bordaPoints(question *models.Question, sel uint32) (*big.Rat, error) {
	top := 0
	switch {
	case question.BordasMaxPoints != nil:
		top = *question.BordasMaxPoints
	case question.Max != nil:
		top = *question.Max
	}
	return new(big.Rat).SetInt64(int64(top) - int64(sel)), nil
}

func nauruPoints(_ *models.Question, sel uint32) (*big.Rat, error) {
	return big.NewRat(1, int64(sel)+1), nil
}

// customPoints reads the weight as written in the question, so 0.1 is one tenth
func customPoints(question *models.Question, sel uint32) (*big.Rat, error) {
	if int(sel) >= len(question.BordaCustomWeights) {
		return nil, fmt.Errorf("position %d has no custom weight", sel)
	}
	w := models.WeightedChoice{Points: question.BordaCustomWeights[sel]}
	return w.Weight(), nil
}

func validateCustomWeights(question *models.Question) error {
	if question.Max == nil {
		return nil
	}
	if len(question.BordaCustomWeights) < *question.Max {
		return fmt.Errorf("%w: %d custom weights for max %d", ErrInvalidConfig, len(question.BordaCustomWeights), *question.Max)
	}
	return nil
}
