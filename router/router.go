// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/quickly-tally/cliparse"
	"github.com/danielhkuo/quickly-tally/handlers"
	"github.com/danielhkuo/quickly-tally/metrics"
	"github.com/danielhkuo/quickly-tally/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(db, cfg)
	ballotHandler := handlers.NewBallotHandler(db, cfg)
	tallyHandler := handlers.NewTallyHandler(db, cfg, m)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus scrape endpoint
	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	// Elections
	mux.HandleFunc("POST /elections", middleware.WithLogging(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections/{id}", middleware.WithLogging(electionHandler.GetElection))
	mux.HandleFunc("POST /elections/{id}/withdrawals", middleware.WithLogging(electionHandler.AddWithdrawals))

	// Ballot codec (public)
	mux.HandleFunc("POST /elections/{id}/questions/{index}/encode", middleware.WithLogging(ballotHandler.EncodeBallot))
	mux.HandleFunc("POST /elections/{id}/questions/{index}/decode", middleware.WithLogging(ballotHandler.DecodeBallot))
	mux.HandleFunc("GET /elections/{id}/questions/{index}/capacity", middleware.WithLogging(ballotHandler.GetCapacity))

	// Tallying
	mux.HandleFunc("POST /elections/{id}/plaintexts", middleware.WithLogging(tallyHandler.AddPlaintexts))
	mux.HandleFunc("GET /elections/{id}/ballot-count", middleware.WithLogging(tallyHandler.GetBallotCount))
	mux.HandleFunc("POST /elections/{id}/tally", middleware.WithLogging(tallyHandler.RunTally))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quickly-tally API v1"))
	})

	return mux
}
