// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the question, answer and ballot types shared by the
codec, the tally engine and the API.

# Questions

A Question carries its tally type, the min/max number of choices, the number
of winners and an ordered list of answers. Answers are flagged either as the
invalid-vote flag (at most one per question) or as write-in slots, with the
is_* fields or the older urls markers:

	{"title": "isWriteIn", "url": "true"}
	{"title": "invalidVoteFlag", "url": "true"}

Tally types:

	TallyPluralityAtLarge = "plurality-at-large"
	TallyCumulative       = "cumulative"
	TallyBorda            = "borda"
	TallyBordaNauru       = "borda-nauru"
	TallyBordaCustom      = "borda-custom"

# Selections

Selection is the rank (preferential), points (cumulative) or approval
(plurality) of an answer, minus one. It never uses a negative sentinel; in JSON
null, a missing field and any negative number all mean "not selected".

# Weighted Choices

A scored ballot is a ChoiceSet of WeightedChoice values keyed by answer id or
write-in text. Equal (key, points) pairs collapse into one element.

# Results

After a tally every answer has total_count and winner_position filled, the
question has totals and winners, and write-in candidates appear as new answers
with write_in_result set.
*/
package models
