// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ballotcodec

import (
	"math"
	"math/big"
	"math/rand"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-tally/models"
)

func intPtr(v int) *int {
	return &v
}

func answers(n int) []models.Answer {
	out := make([]models.Answer, n)
	for i := range out {
		out[i] = models.Answer{ID: i}
	}
	return out
}

// writeInQuestion matches the conformance fixture: three regular answers and
// three write-in slots
func writeInQuestion() *models.Question {
	return &models.Question{
		TallyType:    models.TallyPluralityAtLarge,
		Min:          intPtr(0),
		Max:          intPtr(6),
		NumWinners:   1,
		ExtraOptions: models.ExtraOptions{AllowWriteIns: true},
		Answers: []models.Answer{
			{ID: 0, Selected: models.Selected(0)},
			{ID: 1},
			{ID: 2},
			{ID: 3, WriteIn: true, Text: "E", Selected: models.Selected(0)},
			{ID: 4, WriteIn: true},
			{ID: 5, URLs: []models.AnswerURL{{Title: "isWriteIn", URL: "true"}}, Text: "Ä bc", Selected: models.Selected(0)},
		},
	}
}

func TestBases(t *testing.T) {
	tests := []struct {
		name     string
		question *models.Question
		bases    []uint32
	}{
		{
			name:     "plurality",
			question: &models.Question{TallyType: models.TallyPluralityAtLarge, Answers: answers(7)},
			bases:    []uint32{2, 2, 2, 2, 2, 2, 2, 2},
		},
		{
			name:     "plurality single answer",
			question: &models.Question{TallyType: models.TallyPluralityAtLarge, Answers: answers(1)},
			bases:    []uint32{2, 2},
		},
		{
			name:     "borda max one",
			question: &models.Question{TallyType: models.TallyBorda, Max: intPtr(1), Answers: answers(1)},
			bases:    []uint32{2, 2},
		},
		{
			name:     "borda max two",
			question: &models.Question{TallyType: models.TallyBorda, Max: intPtr(2), Answers: answers(3)},
			bases:    []uint32{2, 3, 3, 3},
		},
		{
			name: "invalid flag is not an answer slot",
			question: &models.Question{
				TallyType: models.TallyCumulative,
				Max:       intPtr(4),
				Answers: []models.Answer{
					{ID: 0}, {ID: 1, InvalidVoteFlag: true}, {ID: 2},
				},
			},
			bases: []uint32{2, 5, 5},
		},
		{
			name:     "write-in terminators",
			question: writeInQuestion(),
			bases:    []uint32{2, 2, 2, 2, 2, 2, 2, 256, 256, 256},
		},
		{
			name: "write-ins disabled",
			question: &models.Question{
				TallyType: models.TallyPluralityAtLarge,
				Answers:   []models.Answer{{ID: 0}, {ID: 1, WriteIn: true}},
			},
			bases: []uint32{2, 2, 2},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			codec, err := New(tc.question)
			require.NoError(t, err)
			require.Equal(t, tc.bases, codec.Bases())
		})
	}
}

func TestNewRejectsBadQuestions(t *testing.T) {
	tests := []struct {
		name     string
		question *models.Question
	}{
		{"nil", nil},
		{"missing max", &models.Question{TallyType: models.TallyBorda, Answers: answers(2)}},
		{"zero max", &models.Question{TallyType: models.TallyCumulative, Max: intPtr(0), Answers: answers(2)}},
		{"duplicate ids", &models.Question{TallyType: models.TallyPluralityAtLarge, Answers: []models.Answer{{ID: 1}, {ID: 1}}}},
		{"negative id", &models.Question{TallyType: models.TallyPluralityAtLarge, Answers: []models.Answer{{ID: -1}}}},
		{"two invalid flags", &models.Question{
			TallyType: models.TallyPluralityAtLarge,
			Answers:   []models.Answer{{ID: 0, InvalidVoteFlag: true}, {ID: 1, InvalidVoteFlag: true}},
		}},
		{"write-in and invalid flag", &models.Question{
			TallyType: models.TallyPluralityAtLarge,
			Answers:   []models.Answer{{ID: 0, InvalidVoteFlag: true, WriteIn: true}},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.question)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			require.ErrorIs(t, err, ErrInvalidQuestion)
		})
	}
}

func TestConformanceVector(t *testing.T) {
	require := require.New(t)

	codec, err := New(writeInQuestion())
	require.NoError(err)

	raw, err := codec.EncodeRawBallot()
	require.NoError(err)
	require.Equal([]uint32{2, 2, 2, 2, 2, 2, 2, 256, 256, 256, 256, 256, 256, 256, 256, 256}, raw.Bases)
	require.Equal([]uint32{0, 1, 0, 0, 1, 0, 1, 69, 0, 0, 195, 132, 32, 98, 99, 0}, raw.Choices)

	n, err := codec.EncodeToInt(raw)
	require.NoError(err)
	require.Equal("916649230342635397842", n.String())

	decodedRaw, err := codec.DecodeFromInt(n)
	require.NoError(err)
	require.Len(decodedRaw.Choices, len(decodedRaw.Bases))

	decoded, err := codec.DecodeRawBallot(decodedRaw)
	require.NoError(err)
	texts := map[int]string{}
	for _, a := range decoded.Answers {
		if a.IsWriteIn() {
			texts[a.ID] = a.Text
		}
	}
	require.Equal(map[int]string{3: "E", 4: "", 5: "Ä bc"}, texts)
	require.True(decoded.Answers[0].Selected.Valid)
	require.False(decoded.Answers[1].Selected.Valid)
	require.False(decoded.Answers[4].Selected.Valid)
	require.True(decoded.Answers[5].Selected.Valid)
}

func TestEncodeRawBallotPreferential(t *testing.T) {
	require := require.New(t)

	codec, err := New(&models.Question{
		TallyType: models.TallyBorda,
		Max:       intPtr(3),
		Answers: []models.Answer{
			{ID: 7, Selected: models.Selected(2)},
			{ID: 2, Selected: models.Selected(0)},
			{ID: 4},
			{ID: 5, Selected: models.Selected(1)},
		},
	})
	require.NoError(err)

	raw, err := codec.EncodeRawBallot()
	require.NoError(err)
	require.Equal([]uint32{2, 4, 4, 4, 4}, raw.Bases)
	// ids 2, 4, 5, 7
	require.Equal([]uint32{0, 1, 0, 2, 3}, raw.Choices)
}

func TestEncodeRawBallotRejectsOutOfRangeSelection(t *testing.T) {
	for _, sel := range []uint32{2, 3, math.MaxUint32} {
		codec, err := New(&models.Question{
			TallyType: models.TallyBorda,
			Max:       intPtr(2),
			Answers:   []models.Answer{{ID: 0, Selected: models.Selected(sel)}, {ID: 1}},
		})
		require.NoError(t, err)

		raw, err := codec.EncodeRawBallot()
		require.ErrorIs(t, err, ErrInvalidBallot, "selection %d encoded as %v", sel, raw.Choices)
	}
}

func TestInvalidFlag(t *testing.T) {
	require := require.New(t)

	q := &models.Question{
		TallyType: models.TallyPluralityAtLarge,
		Answers: []models.Answer{
			{ID: 0, Selected: models.Selected(0)},
			{ID: 1, URLs: []models.AnswerURL{{Title: "invalidVoteFlag", URL: "true"}}, Selected: models.Selected(0)},
		},
	}
	codec, err := New(q)
	require.NoError(err)

	raw, err := codec.EncodeRawBallot()
	require.NoError(err)
	require.Equal([]uint32{1, 1}, raw.Choices)
	require.True(raw.Invalid())

	decoded, err := codec.DecodeRawBallot(raw)
	require.NoError(err)
	require.Equal(models.Selected(0), decoded.Answers[1].Selected)
}

func TestEmptyWriteInIsSingleSeparator(t *testing.T) {
	require := require.New(t)

	codec, err := New(&models.Question{
		TallyType:    models.TallyPluralityAtLarge,
		ExtraOptions: models.ExtraOptions{AllowWriteIns: true},
		Answers: []models.Answer{
			{ID: 0},
			{ID: 1, WriteIn: true},
			{ID: 2, WriteIn: true, Text: "Z", Selected: models.Selected(0)},
		},
	})
	require.NoError(err)

	raw, err := codec.EncodeRawBallot()
	require.NoError(err)
	require.Equal([]uint32{0, 0, 0, 1, 0, 90, 0}, raw.Choices)
	require.Equal([]uint32{2, 2, 2, 2, 256, 256, 256}, raw.Bases)
}

func TestTrailingEmptyWriteInsSurviveIntegerForm(t *testing.T) {
	require := require.New(t)

	q := writeInQuestion()
	q.Answers[5].Text = ""
	q.Answers[5].Selected = models.Selection{}
	codec, err := New(q)
	require.NoError(err)

	raw, err := codec.EncodeRawBallot()
	require.NoError(err)
	n, err := codec.EncodeToInt(raw)
	require.NoError(err)

	decodedRaw, err := codec.DecodeFromInt(n)
	require.NoError(err)
	decoded, err := codec.DecodeRawBallot(decodedRaw)
	require.NoError(err)
	require.Equal("E", decoded.Answers[3].Text)
	require.Equal("", decoded.Answers[4].Text)
	require.Equal("", decoded.Answers[5].Text)
}

func TestDecodeRawBallotErrors(t *testing.T) {
	codec, err := New(writeInQuestion())
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  RawBallot
	}{
		{
			name: "length mismatch",
			raw:  RawBallot{Bases: []uint32{2, 2}, Choices: []uint32{0}},
		},
		{
			name: "too few choices",
			raw:  RawBallot{Bases: []uint32{2, 2, 2}, Choices: []uint32{0, 1, 0}},
		},
		{
			name: "choice out of range",
			raw:  RawBallot{Bases: []uint32{2, 2, 2, 2, 2, 2, 2}, Choices: []uint32{0, 2, 0, 0, 0, 0, 0}},
		},
		{
			name: "too many write-in groups",
			raw: RawBallot{
				Bases:   []uint32{2, 2, 2, 2, 2, 2, 2, 256, 256, 256, 256, 256, 256, 256},
				Choices: []uint32{0, 0, 0, 0, 0, 0, 0, 65, 0, 66, 0, 67, 0, 68},
			},
		},
		{
			name: "invalid utf-8",
			raw: RawBallot{
				Bases:   []uint32{2, 2, 2, 2, 2, 2, 2, 256, 256},
				Choices: []uint32{0, 0, 0, 0, 0, 0, 0, 195, 0},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.DecodeRawBallot(tc.raw)
			require.ErrorIs(t, err, ErrInvalidBallot)
		})
	}
}

func TestDecodeFromIntWithoutWriteIns(t *testing.T) {
	require := require.New(t)

	codec, err := New(&models.Question{TallyType: models.TallyPluralityAtLarge, Answers: answers(2)})
	require.NoError(err)

	raw, err := codec.DecodeFromInt(big.NewInt(7))
	require.NoError(err)
	require.Equal([]uint32{1, 1, 1}, raw.Choices)

	_, err = codec.DecodeFromInt(big.NewInt(8))
	require.ErrorIs(err, ErrInvalidBallot)
}

func TestBiggestEncodableNormalBallot(t *testing.T) {
	require := require.New(t)

	codec, err := New(&models.Question{TallyType: models.TallyBorda, Max: intPtr(2), Answers: answers(3)})
	require.NoError(err)
	// bases 2, 3, 3, 3
	require.Equal(int64(2*3*3*3-1), codec.BiggestEncodableNormalBallot().Int64())

	for n := 1; n < 12; n++ {
		smaller, err := New(&models.Question{TallyType: models.TallyCumulative, Max: intPtr(3), Answers: answers(n)})
		require.NoError(err)
		bigger, err := New(&models.Question{TallyType: models.TallyCumulative, Max: intPtr(3), Answers: answers(n + 1)})
		require.NoError(err)
		require.Equal(-1, smaller.BiggestEncodableNormalBallot().Cmp(bigger.BiggestEncodableNormalBallot()))
	}
}

func TestNumWriteInBytesLeft(t *testing.T) {
	require := require.New(t)

	q := &models.Question{
		TallyType:    models.TallyPluralityAtLarge,
		ExtraOptions: models.ExtraOptions{AllowWriteIns: true},
		Answers:      []models.Answer{{ID: 0}, {ID: 1}, {ID: 2, WriteIn: true}},
	}
	codec, err := New(q)
	require.NoError(err)

	_, err = codec.NumWriteInBytesLeft(codec.BiggestEncodableNormalBallot())
	var cfgErr *ConfigError
	require.ErrorAs(err, &cfgErr)
	require.ErrorIs(err, ErrModulusTooSmall)

	_, err = codec.NumWriteInBytesLeft(nil)
	require.ErrorIs(err, ErrModulusTooSmall)

	modulus := new(big.Int).Lsh(big.NewInt(1), 64)
	left, err := codec.NumWriteInBytesLeft(modulus)
	require.NoError(err)
	require.Equal(6, left)

	// spending bytes lowers the budget one for one
	q.Answers[2].Text = "abc"
	q.Answers[2].Selected = models.Selected(0)
	codec, err = New(q)
	require.NoError(err)
	left, err = codec.NumWriteInBytesLeft(modulus)
	require.NoError(err)
	require.Equal(3, left)
}

func TestNumWriteInBytesLeftIsConservative(t *testing.T) {
	moduli := []*big.Int{
		new(big.Int).Lsh(big.NewInt(1), 64),
		new(big.Int).Lsh(big.NewInt(1), 255),
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 2048), big.NewInt(159)),
	}

	for _, modulus := range moduli {
		q := &models.Question{
			TallyType:    models.TallyCumulative,
			Max:          intPtr(5),
			ExtraOptions: models.ExtraOptions{AllowWriteIns: true},
			Answers: []models.Answer{
				{ID: 0, Selected: models.Selected(4)},
				{ID: 1, Selected: models.Selected(4)},
				{ID: 2, WriteIn: true, Selected: models.Selected(4)},
			},
		}
		codec, err := New(q)
		require.NoError(t, err)
		left, err := codec.NumWriteInBytesLeft(modulus)
		require.NoError(t, err)
		require.Positive(t, left)

		// filling the whole budget with the largest UTF-8 byte still fits
		q.Answers[2].Text = strings.Repeat("\x7f", left)
		codec, err = New(q)
		require.NoError(t, err)
		raw, err := codec.EncodeRawBallot()
		require.NoError(t, err)
		n, err := codec.EncodeToInt(raw)
		require.NoError(t, err)
		require.Equal(t, -1, n.Cmp(modulus), "modulus %s", modulus)
	}
}

var textRunes = []rune("abcxyzÄéñ€ 🙂-")

// randomBallot builds a question with random shape and selections from a seed
func randomBallot(seed int64) *models.Question {
	r := rand.New(rand.NewSource(seed))
	tallyTypes := []models.TallyType{
		models.TallyPluralityAtLarge,
		models.TallyCumulative,
		models.TallyBorda,
		models.TallyBordaNauru,
	}

	q := &models.Question{
		TallyType:    tallyTypes[r.Intn(len(tallyTypes))],
		Max:          intPtr(1 + r.Intn(6)),
		ExtraOptions: models.ExtraOptions{AllowWriteIns: r.Intn(2) == 0},
	}

	numAnswers := 1 + r.Intn(8)
	ids := r.Perm(numAnswers * 3)[:numAnswers]
	flagged := r.Intn(3) == 0
	for i, id := range ids {
		a := models.Answer{ID: id}
		switch {
		case i == 0 && flagged:
			a.InvalidVoteFlag = true
			if r.Intn(2) == 0 {
				a.Selected = models.Selected(0)
			}
		case q.ExtraOptions.AllowWriteIns && r.Intn(3) == 0:
			a.WriteIn = true
			var sb strings.Builder
			for n := r.Intn(6); n > 0; n-- {
				sb.WriteRune(textRunes[r.Intn(len(textRunes))])
			}
			a.Text = sb.String()
		}
		if !a.InvalidVoteFlag && r.Intn(2) == 0 {
			if q.TallyType == models.TallyPluralityAtLarge {
				a.Selected = models.Selected(0)
			} else {
				a.Selected = models.Selected(uint32(r.Intn(*q.Max)))
			}
		}
		q.Answers = append(q.Answers, a)
	}

	return q
}

func TestRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("selections survive encode and decode", prop.ForAll(
		func(seed int64) bool {
			q := randomBallot(seed)
			codec, err := New(q)
			if err != nil {
				return false
			}
			raw, err := codec.EncodeRawBallot()
			if err != nil {
				return false
			}
			n, err := codec.EncodeToInt(raw)
			if err != nil {
				return false
			}
			decodedRaw, err := codec.DecodeFromInt(n)
			if err != nil {
				return false
			}
			decoded, err := codec.DecodeRawBallot(decodedRaw)
			if err != nil {
				return false
			}

			for i, want := range q.Answers {
				got := decoded.Answers[i]
				if got.ID != want.ID || got.Selected != want.Selected {
					return false
				}
				if q.WriteInsAllowed() && want.IsWriteIn() && got.Text != want.Text {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
