// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package methods holds the per-voting-method hooks used by the tally engine.

# Method

Each tally type resolves to a Method from a closed table:

	method, err := methods.Lookup(question.TallyType)

A Method has three hooks:

  - Validate: method-specific checks on the question, run before any ballot
  - Score: turns the decoded selections of one ballot into weighted choices
  - PostTally: may re-rank winners after the generic post tally; it must not
    touch total_count

# Scoring

	plurality-at-large  1 point per selected answer
	cumulative          selected + 1 points
	borda               (bordas_max_points or max) - selected
	borda-nauru         1 / (selected + 1)
	borda-custom        borda_custom_weights[selected]

Withdrawn answers and the invalid-vote flag never score. Write-in choices are
keyed by their text.

# Invalid Rankings

Ranked methods return *ImplicitInvalidError when a position is repeated or
skipped. The error carries the choices built so far for logging.
*/
package methods
