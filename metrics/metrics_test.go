// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-tally/models"
)

func TestRecordResult(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.RecordResult(&models.Result{Questions: []*models.Question{
		{Totals: &models.Totals{ValidVotes: 5, BlankVotes: 1, NullVotes: 2}},
		{Totals: &models.Totals{ValidVotes: 3, NullVotes: 1}},
		{},
	}})
	m.RecordResult(nil)

	require.Equal(t, 8.0, testutil.ToFloat64(m.ballots.WithLabelValues(models.OutcomeValid)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ballots.WithLabelValues(models.OutcomeBlank)))
	require.Equal(t, 3.0, testutil.ToFloat64(m.ballots.WithLabelValues(models.OutcomeNull)))
}

func TestObserveRun(t *testing.T) {
	m, err := New()
	require.NoError(t, err)

	m.ObserveRun(20*time.Millisecond, nil)
	m.ObserveRun(time.Second, errors.New("boom"))

	require.Equal(t, 1.0, testutil.ToFloat64(m.runErrors))
	require.Equal(t, 1, testutil.CollectAndCount(m.runDuration))
}

func TestNewWithRegistererRejectsDuplicates(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := NewWithRegisterer(registry)
	require.NoError(t, err)

	_, err = NewWithRegisterer(registry)
	require.Error(t, err)
}

func TestHandler(t *testing.T) {
	m, err := New()
	require.NoError(t, err)
	m.RecordResult(&models.Result{Questions: []*models.Question{
		{Totals: &models.Totals{ValidVotes: 2}},
	}})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `quickly_tally_ballots_total{outcome="valid"} 2`), string(body))
	require.Contains(t, string(body), "quickly_tally_run_duration_seconds")
}
