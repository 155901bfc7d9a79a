// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/quickly-tally/models"
)

const namespace = "quickly_tally"

// Metrics holds the tally counters of one server
type Metrics struct {
	gatherer    prometheus.Gatherer
	ballots     *prometheus.CounterVec
	runDuration prometheus.Histogram
	runErrors   prometheus.Counter
}

// New registers the tally metrics on a fresh registry
func New() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	m, err := NewWithRegisterer(registry)
	if err != nil {
		return nil, err
	}
	m.gatherer = registry
	return m, nil
}

// NewWithRegisterer registers the tally metrics on registerer.
// Handler serves the default gatherer in that case.
func NewWithRegisterer(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		gatherer: prometheus.DefaultGatherer,
		ballots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ballots_total",
				Help:      "Ballots counted by tally runs, by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a complete election tally",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}),
		runErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_errors_total",
			Help:      "Tally runs aborted by a configuration or fatal error",
		}),
	}

	err := errors.Join(
		registerer.Register(m.ballots),
		registerer.Register(m.runDuration),
		registerer.Register(m.runErrors),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordResult adds the totals of every question in result
func (m *Metrics) RecordResult(result *models.Result) {
	if result == nil {
		return
	}
	for _, q := range result.Questions {
		if q.Totals == nil {
			continue
		}
		m.ballots.WithLabelValues(models.OutcomeValid).Add(float64(q.Totals.ValidVotes))
		m.ballots.WithLabelValues(models.OutcomeBlank).Add(float64(q.Totals.BlankVotes))
		m.ballots.WithLabelValues(models.OutcomeNull).Add(float64(q.Totals.NullVotes))
	}
}

// ObserveRun records how long a tally took and whether it failed
func (m *Metrics) ObserveRun(d time.Duration, err error) {
	m.runDuration.Observe(d.Seconds())
	if err != nil {
		m.runErrors.Inc()
	}
}

// Handler serves the registered metrics in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
