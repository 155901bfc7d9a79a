// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Quickly Tally API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	m, _ := metrics.New()
	mux := router.NewRouter(db, cfg, m)

A nil *metrics.Metrics disables both recording and the /metrics endpoint.

# Endpoints

Health and monitoring:

	GET /health
	GET /metrics

Elections (withdrawals require X-Admin-Key):

	POST /elections                  - Create election
	GET  /elections/{id}             - Questions, bases and withdrawals
	POST /elections/{id}/withdrawals - Withdraw candidates

Ballot codec (public):

	POST /elections/{id}/questions/{index}/encode   - Selections to integer
	POST /elections/{id}/questions/{index}/decode   - Integer to selections
	GET  /elections/{id}/questions/{index}/capacity - Write-in bytes left

Tallying (admin, except ballot-count):

	POST /elections/{id}/plaintexts   - Upload decrypted plaintexts
	GET  /elections/{id}/ballot-count - Stored plaintexts per question
	POST /elections/{id}/tally        - Tally every question
*/
package router
