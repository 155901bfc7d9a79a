// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally folds decoded ballots into per-question results.

# Question tally

A QuestionTally owns the running counters of one question. It is not safe
for concurrent use; questions are independent and can be tallied in
parallel.

	t, err := tally.NewQuestionTally(question, tally.Options{})
	if err != nil {
		return err // configuration error, nothing was counted
	}
	for _, n := range ballots {
		if err := t.AddVote(t.ParseVote(n)); err != nil {
			return err // fatal
		}
	}
	result := t.PostTally()

ParseVote rejects a ballot with a *BallotError. AddVote counts it as blank or
null and carries on; any other error stops the tally.

# Plaintext lines

Decrypted plaintexts are decimal integers counted from 1, one per line,
optionally quoted. ParseLine converts one line; Fold reads a whole stream
and Run tallies several questions at once, one goroutine each.

# Result

PostTally appends write-in answers after the predefined ones, sorted by
total_count descending then text, and assigns them ids after the largest
existing id. Winners are picked with the same ordering; the invalid vote
flag never wins.
*/
package tally
