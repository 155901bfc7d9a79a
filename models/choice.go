// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"math/big"
	"sort"
	"strconv"
)

// ChoiceKey identifies who a choice goes to: a predefined answer or a write-in text
type ChoiceKey struct {
	AnswerID    int
	WriteInText string
	WriteIn     bool
}

// AnswerKey is the key of a predefined answer
func AnswerKey(id int) ChoiceKey {
	return ChoiceKey{AnswerID: id}
}

// WriteInKey is the key of a write-in candidate
func WriteInKey(text string) ChoiceKey {
	return ChoiceKey{WriteInText: text, WriteIn: true}
}

func (k ChoiceKey) String() string {
	if k.WriteIn {
		return strconv.Quote(k.WriteInText)
	}
	return strconv.Itoa(k.AnswerID)
}

// WeightedChoice is one scored selection of a ballot.
// Two choices are the same element when Key and Points match.
type WeightedChoice struct {
	Key      ChoiceKey `json:"-"`
	Points   float64   `json:"points"`
	AnswerID int       `json:"answer_id"`
	// Exact holds Points as a fraction when the method knows it (1/3 for
	// borda-nauru); nil means Points is exact.
	Exact *big.Rat `json:"-"`
}

// Weight returns the points of the choice as an exact fraction
func (c WeightedChoice) Weight() *big.Rat {
	if c.Exact != nil {
		return new(big.Rat).Set(c.Exact)
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(c.Points, 'g', -1, 64))
	if !ok {
		return new(big.Rat)
	}
	return r
}

type choiceIdentity struct {
	key    ChoiceKey
	points float64
}

// ChoiceSet keeps weighted choices in insertion order without duplicates
type ChoiceSet struct {
	items []WeightedChoice
	seen  map[choiceIdentity]struct{}
}

// NewChoiceSet builds a set from the given choices, dropping duplicates
func NewChoiceSet(choices ...WeightedChoice) ChoiceSet {
	var s ChoiceSet
	for _, c := range choices {
		s.Add(c)
	}
	return s
}

// Add inserts c unless an equal choice is already present
func (s *ChoiceSet) Add(c WeightedChoice) bool {
	if s.seen == nil {
		s.seen = make(map[choiceIdentity]struct{})
	}
	id := choiceIdentity{key: c.Key, points: c.Points}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.items = append(s.items, c)
	return true
}

func (s ChoiceSet) Len() int {
	return len(s.items)
}

// Choices returns a copy of the elements in insertion order
func (s ChoiceSet) Choices() []WeightedChoice {
	return append([]WeightedChoice(nil), s.items...)
}

// HasDuplicateKeys reports whether one key was given more than one point value
func (s ChoiceSet) HasDuplicateKeys() bool {
	keys := make(map[ChoiceKey]struct{}, len(s.items))
	for _, c := range s.items {
		if _, ok := keys[c.Key]; ok {
			return true
		}
		keys[c.Key] = struct{}{}
	}
	return false
}

// Filter returns the choices for which keep returns true
func (s ChoiceSet) Filter(keep func(WeightedChoice) bool) ChoiceSet {
	var out ChoiceSet
	for _, c := range s.items {
		if keep(c) {
			out.Add(c)
		}
	}
	return out
}

// Truncate keeps the n highest-priority choices: most points first,
// then insertion order.
func (s ChoiceSet) Truncate(n int) ChoiceSet {
	if n >= len(s.items) {
		return s
	}
	if n < 0 {
		n = 0
	}
	ordered := s.Choices()
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Points > ordered[j].Points
	})
	return NewChoiceSet(ordered[:n]...)
}
