// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Tally type constants
const (
	TallyPluralityAtLarge TallyType = "plurality-at-large"
	TallyCumulative       TallyType = "cumulative"
	TallyBorda            TallyType = "borda"
	TallyBordaNauru       TallyType = "borda-nauru"
	TallyBordaCustom      TallyType = "borda-custom"
)

// URL markers used by older question definitions to flag special answers
const (
	URLTitleWriteIn         = "isWriteIn"
	URLTitleInvalidVoteFlag = "invalidVoteFlag"
)

type TallyType string

// Preferential reports whether answers are ranked (as opposed to approved or weighted)
func (t TallyType) Preferential() bool {
	switch t {
	case TallyBorda, TallyBordaNauru, TallyBordaCustom:
		return true
	}
	return false
}

// AnswerBase is the numeral base used for every regular answer slot
func (t TallyType) AnswerBase(maxChoices int) uint32 {
	if t == TallyPluralityAtLarge {
		return 2
	}
	return uint32(maxChoices) + 1
}

// Selection is the chosen rank or points of an answer, minus one.
// The zero value means not selected.
type Selection struct {
	Value uint32
	Valid bool
}

// Selected builds a valid Selection
func Selected(v uint32) Selection {
	return Selection{Value: v, Valid: true}
}

func (s Selection) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatUint(uint64(s.Value), 10)), nil
}

// UnmarshalJSON accepts null, a missing value or any negative number as "not selected"
func (s *Selection) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = Selection{}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v < 0 {
		*s = Selection{}
		return nil
	}
	if v > math.MaxUint32 {
		return fmt.Errorf("selection %d out of range", v)
	}
	*s = Selected(uint32(v))
	return nil
}

type AnswerURL struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Answer struct {
	ID              int         `json:"id"`
	Category        string      `json:"category,omitempty"`
	Text            string      `json:"text"`
	URLs            []AnswerURL `json:"urls,omitempty"`
	InvalidVoteFlag bool        `json:"is_invalid_vote_flag,omitempty"`
	WriteIn         bool        `json:"is_write_in,omitempty"`
	Selected        Selection   `json:"selected"`
	TotalCount      float64     `json:"total_count"`
	WinnerPosition  *int        `json:"winner_position"`
	WriteInResult   bool        `json:"write_in_result,omitempty"`
}

func (a *Answer) hasURL(title string) bool {
	for _, u := range a.URLs {
		if u.Title == title && u.URL == "true" {
			return true
		}
	}
	return false
}

// IsWriteIn reports whether the answer is a free-text write-in slot
func (a *Answer) IsWriteIn() bool {
	return a.WriteIn || a.hasURL(URLTitleWriteIn)
}

// IsInvalidVoteFlag reports whether the answer marks the ballot as spoiled
func (a *Answer) IsInvalidVoteFlag() bool {
	return a.InvalidVoteFlag || a.hasURL(URLTitleInvalidVoteFlag)
}

type ExtraOptions struct {
	AllowWriteIns bool `json:"allow_writeins,omitempty"`
}

type Totals struct {
	BlankVotes int `json:"blank_votes"`
	NullVotes  int `json:"null_votes"`
	ValidVotes int `json:"valid_votes"`
}

type Question struct {
	Title               string       `json:"title,omitempty"`
	TallyType           TallyType    `json:"tally_type"`
	Min                 *int         `json:"min"`
	Max                 *int         `json:"max"`
	NumWinners          int          `json:"num_winners"`
	BordasMaxPoints     *int         `json:"bordas_max_points,omitempty"`
	BordaCustomWeights  []float64    `json:"borda_custom_weights,omitempty"`
	TruncateMaxOverload bool         `json:"truncate_max_overload,omitempty"`
	ExtraOptions        ExtraOptions `json:"extra_options"`
	Answers             []Answer     `json:"answers"`
	Totals              *Totals      `json:"totals,omitempty"`
	Winners             []string     `json:"winners,omitempty"`
}

// WriteInsAllowed reports whether write-in text is part of the ballot
func (q *Question) WriteInsAllowed() bool {
	return q.ExtraOptions.AllowWriteIns
}

// Clone returns a deep copy of the question
func (q *Question) Clone() *Question {
	c := *q
	if q.Min != nil {
		v := *q.Min
		c.Min = &v
	}
	if q.Max != nil {
		v := *q.Max
		c.Max = &v
	}
	if q.BordasMaxPoints != nil {
		v := *q.BordasMaxPoints
		c.BordasMaxPoints = &v
	}
	if q.BordaCustomWeights != nil {
		c.BordaCustomWeights = append([]float64(nil), q.BordaCustomWeights...)
	}
	if q.Totals != nil {
		t := *q.Totals
		c.Totals = &t
	}
	if q.Winners != nil {
		c.Winners = append([]string(nil), q.Winners...)
	}
	c.Answers = make([]Answer, len(q.Answers))
	for i, a := range q.Answers {
		c.Answers[i] = a.Clone()
	}
	return &c
}

// Clone returns a deep copy of the answer
func (a Answer) Clone() Answer {
	if a.URLs != nil {
		a.URLs = append([]AnswerURL(nil), a.URLs...)
	}
	if a.WinnerPosition != nil {
		v := *a.WinnerPosition
		a.WinnerPosition = &v
	}
	return a
}

// SortedAnswers returns pointers to the question answers ordered by id
func (q *Question) SortedAnswers() []*Answer {
	sorted := make([]*Answer, len(q.Answers))
	for i := range q.Answers {
		sorted[i] = &q.Answers[i]
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// Result is the outcome of tallying every question of an election
type Result struct {
	RunID      string      `json:"run_id"`
	Questions  []*Question `json:"questions"`
	TotalVotes int         `json:"total_votes"`
}
