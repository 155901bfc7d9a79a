// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("POST /elections", middleware.WithLogging(handler))

Request start is logged at debug level with the client address and whether
an admin key was sent (never the key itself). Completion carries status,
response size and duration_ms, at error level for 5xx and info otherwise.
Routes under /elections/{id} add election_id to both lines.

# CORS Middleware

Enable cross-origin requests for browser access:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, OPTIONS with headers Content-Type, X-Admin-Key
and Authorization. A request Origin is echoed with credentials allowed;
preflights answer 204 without reaching the handler.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies. Exactly one value is accepted, bodies over
MaxBodyBytes fail with ErrBodyTooLarge and an empty body yields io.EOF:

	var req models.CreateElectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP. X-Forwarded-For and X-Real-IP are tried first;
each candidate must parse as an IPv4 or IPv6 address, with or without port:

	ip := middleware.GetClientIP(r)
*/
package middleware
