// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package metrics exposes tally counters to Prometheus.

	m, err := metrics.New()
	mux.Handle("GET /metrics", m.Handler())

	start := time.Now()
	result, err := tally.Run(ctx, jobs)
	m.ObserveRun(time.Since(start), err)
	m.RecordResult(result)

Series:

	quickly_tally_ballots_total{outcome="valid|blank|null"}
	quickly_tally_run_duration_seconds
	quickly_tally_run_errors_total
*/
package metrics
