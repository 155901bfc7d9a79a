// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballotcodec

import (
	"math/big"
	"unicode/utf8"

	"github.com/danielhkuo/quickly-tally/mixedradix"
	"github.com/danielhkuo/quickly-tally/models"
)

const (
	invalidFlagBase = 2
	writeInBase     = 256
)

// RawBallot is the digit-level form of a ballot: Choices[i] < Bases[i]
type RawBallot struct {
	Bases   []uint32 `json:"bases"`
	Choices []uint32 `json:"choices"`
}

// Invalid reports whether the voter marked the ballot as spoiled
func (r RawBallot) Invalid() bool {
	return len(r.Choices) > 0 && r.Choices[0] > 0
}

// Codec converts the selections of one question to and from a ballot integer
type Codec struct {
	question    *models.Question
	answerBase  uint32
	invalidFlag *models.Answer
	// non invalid-flag answers sorted by id, write-ins included
	answers  []*models.Answer
	writeIns []*models.Answer
}

// New validates the question and builds its codec.
// The codec works on its own copy of the question.
func New(q *models.Question) (*Codec, error) {
	if q == nil {
		return nil, configError(ErrInvalidQuestion, "question is nil")
	}

	c := &Codec{question: q.Clone()}

	if c.question.TallyType != models.TallyPluralityAtLarge {
		if c.question.Max == nil {
			return nil, configError(ErrInvalidQuestion, "max is required for %s questions", c.question.TallyType)
		}
		if *c.question.Max < 1 {
			return nil, configError(ErrInvalidQuestion, "max must be at least 1, got %d", *c.question.Max)
		}
	}
	maxChoices := 0
	if c.question.Max != nil {
		maxChoices = *c.question.Max
	}
	c.answerBase = c.question.TallyType.AnswerBase(maxChoices)

	seen := make(map[int]struct{}, len(c.question.Answers))
	for _, a := range c.question.SortedAnswers() {
		if a.ID < 0 {
			return nil, configError(ErrInvalidQuestion, "answer id %d is negative", a.ID)
		}
		if _, ok := seen[a.ID]; ok {
			return nil, configError(ErrInvalidQuestion, "duplicate answer id %d", a.ID)
		}
		seen[a.ID] = struct{}{}

		if a.IsInvalidVoteFlag() {
			if a.IsWriteIn() {
				return nil, configError(ErrInvalidQuestion, "answer %d is both write-in and invalid vote flag", a.ID)
			}
			if c.invalidFlag != nil {
				return nil, configError(ErrInvalidQuestion, "answers %d and %d are both invalid vote flags", c.invalidFlag.ID, a.ID)
			}
			c.invalidFlag = a
			continue
		}

		c.answers = append(c.answers, a)
		if a.IsWriteIn() {
			c.writeIns = append(c.writeIns, a)
		}
	}

	return c, nil
}

// Question returns the codec's copy of the question
func (c *Codec) Question() *models.Question {
	return c.question
}

// Bases returns the invalid-flag base, one base per answer and, with write-ins
// enabled, one reserved terminator base per write-in answer.
// Write-in text bytes are not included: their number depends on the ballot.
func (c *Codec) Bases() []uint32 {
	bases := make([]uint32, 0, 1+len(c.answers)+len(c.writeIns))
	bases = append(bases, invalidFlagBase)
	for range c.answers {
		bases = append(bases, c.answerBase)
	}
	if c.question.WriteInsAllowed() {
		for range c.writeIns {
			bases = append(bases, writeInBase)
		}
	}
	return bases
}

// EncodeRawBallot converts the current selections of the question into digits
func (c *Codec) EncodeRawBallot() (RawBallot, error) {
	bases := c.Bases()
	choices := make([]uint32, 0, len(bases))

	if c.invalidFlag != nil && c.invalidFlag.Selected.Valid {
		choices = append(choices, 1)
	} else {
		choices = append(choices, 0)
	}

	plurality := c.question.TallyType == models.TallyPluralityAtLarge
	for _, a := range c.answers {
		switch {
		case !a.Selected.Valid:
			choices = append(choices, 0)
		case plurality:
			choices = append(choices, 1)
		case a.Selected.Value >= c.answerBase-1:
			return RawBallot{}, invalidBallot("answer %d selection %d out of range for base %d", a.ID, a.Selected.Value, c.answerBase)
		default:
			choices = append(choices, a.Selected.Value+1)
		}
	}

	if c.question.WriteInsAllowed() {
		for _, a := range c.writeIns {
			// the terminator base is already part of Bases()
			for _, b := range []byte(a.Text) {
				choices = append(choices, uint32(b))
				bases = append(bases, writeInBase)
			}
			choices = append(choices, 0)
		}
	}

	if len(bases) != len(choices) {
		return RawBallot{}, invalidBallot("%d bases for %d choices", len(bases), len(choices))
	}
	for i := range choices {
		if choices[i] >= bases[i] {
			return RawBallot{}, invalidBallot("choice %d out of range for base %d at position %d", choices[i], bases[i], i)
		}
	}

	return RawBallot{Bases: bases, Choices: choices}, nil
}

// EncodeToInt packs a raw ballot into its integer form
func (c *Codec) EncodeToInt(raw RawBallot) (*big.Int, error) {
	return mixedradix.Encode(raw.Choices, raw.Bases)
}

// DecodeFromInt unpacks a ballot integer into digits. Digits beyond Bases()
// belong to the write-in tail and get base 256.
func (c *Codec) DecodeFromInt(n *big.Int) (RawBallot, error) {
	bases := c.Bases()
	choices, err := mixedradix.Decode(bases, n, uint32(writeInBase))
	if err != nil {
		return RawBallot{}, err
	}

	if len(choices) > len(bases) {
		if !c.question.WriteInsAllowed() {
			return RawBallot{}, invalidBallot("%d digits for %d bases", len(choices), len(bases))
		}
		for len(bases) < len(choices) {
			bases = append(bases, writeInBase)
		}
	}

	return RawBallot{Bases: bases, Choices: choices}, nil
}

// DecodeRawBallot returns a copy of the question with the selections and
// write-in texts carried by the raw ballot
func (c *Codec) DecodeRawBallot(raw RawBallot) (*models.Question, error) {
	if len(raw.Bases) != len(raw.Choices) {
		return nil, invalidBallot("%d bases for %d choices", len(raw.Bases), len(raw.Choices))
	}
	required := 1 + len(c.answers)
	if len(raw.Choices) < required {
		return nil, invalidBallot("%d choices, question needs at least %d", len(raw.Choices), required)
	}
	for i := range raw.Choices {
		if raw.Choices[i] >= raw.Bases[i] {
			return nil, invalidBallot("choice %d out of range for base %d at position %d", raw.Choices[i], raw.Bases[i], i)
		}
	}

	decoded := c.question.Clone()
	byID := make(map[int]*models.Answer, len(decoded.Answers))
	for i := range decoded.Answers {
		a := &decoded.Answers[i]
		a.Selected = models.Selection{}
		if a.IsWriteIn() {
			a.Text = ""
		}
		byID[a.ID] = a
	}

	if c.invalidFlag != nil && raw.Invalid() {
		byID[c.invalidFlag.ID].Selected = models.Selected(0)
	}

	for i, a := range c.answers {
		if v := raw.Choices[i+1]; v > 0 {
			byID[a.ID].Selected = models.Selected(v - 1)
		}
	}

	if !c.question.WriteInsAllowed() {
		return decoded, nil
	}

	texts, err := splitWriteIns(raw.Choices[required:], len(c.writeIns))
	if err != nil {
		return nil, err
	}
	for i, a := range c.writeIns {
		byID[a.ID].Text = texts[i]
	}

	return decoded, nil
}

// splitWriteIns cuts the byte tail into one text per write-in answer.
// Every text ends with a zero byte, except that zeros at the very end are
// dropped by the integer form and come back as empty texts.
func splitWriteIns(tail []uint32, count int) ([]string, error) {
	texts := make([]string, 0, count)
	current := make([]byte, 0, len(tail))
	for _, v := range tail {
		if v == 0 {
			texts = append(texts, string(current))
			current = current[:0]
			continue
		}
		current = append(current, byte(v))
	}
	if len(current) > 0 {
		texts = append(texts, string(current))
	}

	if len(texts) > count {
		return nil, invalidBallot("%d write-in texts for %d write-in answers", len(texts), count)
	}
	for i, text := range texts {
		if !utf8.ValidString(text) {
			return nil, invalidBallot("write-in %d is not valid UTF-8", i)
		}
	}
	for len(texts) < count {
		texts = append(texts, "")
	}

	return texts, nil
}

// BiggestEncodableNormalBallot is the largest integer a ballot without
// write-in text can encode to
func (c *Codec) BiggestEncodableNormalBallot() *big.Int {
	return mixedradix.MaxValue(c.Bases())
}

// NumWriteInBytesLeft estimates how many more write-in bytes the current
// selections can carry while staying below modulus. The estimate is
// conservative and goes negative once the ballot already overflows.
func (c *Codec) NumWriteInBytesLeft(modulus *big.Int) (int, error) {
	biggest := c.BiggestEncodableNormalBallot()
	if modulus == nil || modulus.Cmp(biggest) <= 0 {
		return 0, configError(ErrModulusTooSmall, "modulus must exceed %s", biggest)
	}

	digits, err := mixedradix.Decode(c.Bases(), modulus, uint32(writeInBase))
	if err != nil {
		return 0, err
	}

	raw, err := c.EncodeRawBallot()
	if err != nil {
		return 0, err
	}

	// the most significant digit of the modulus is never fully usable
	return len(digits) - len(raw.Bases) - 1, nil
}
