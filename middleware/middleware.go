// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/quickly-tally/models"
)

// MaxBodyBytes bounds request bodies; plaintext uploads are the largest
const MaxBodyBytes = 64 << 20

var (
	ErrBodyTooLarge  = errors.New("request body too large")
	ErrTrailingData  = errors.New("unexpected data after JSON body")
	adminKeyHeaders  = []string{"X-Admin-Key", "Authorization"}
	corsAllowHeaders = strings.Join(append([]string{"Content-Type"}, adminKeyHeaders...), ", ")
)

// statusRecorder remembers the status and size of what the handler wrote
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  uint64
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += uint64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the real writer
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// WithLogging wraps a handler with request logging. Requests under
// /elections/{id} carry the election id; admin calls are flagged.
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := slog.With("method", r.Method, "path", r.URL.Path)
		if id := r.PathValue("id"); id != "" {
			log = log.With("election_id", id)
		}

		log.Debug("request started", "remote", GetClientIP(r), "admin", hasAdminKey(r))

		rec := &statusRecorder{ResponseWriter: w}
		next(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(r.Context(), level, "request completed",
			"status", rec.status,
			"size", humanize.Bytes(rec.bytes),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func hasAdminKey(r *http.Request) bool {
	for _, h := range adminKeyHeaders {
		if r.Header.Get(h) != "" {
			return true
		}
	}
	return false
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// ParseJSONBody decodes exactly one JSON value from the request body.
// An empty body returns io.EOF so callers can treat the body as optional.
func ParseJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()

	body := io.LimitReader(r.Body, MaxBodyBytes+1)
	counted := &countingReader{r: body}
	dec := json.NewDecoder(counted)
	if err := dec.Decode(v); err != nil {
		if counted.n > MaxBodyBytes {
			return ErrBodyTooLarge
		}
		return err
	}
	if dec.More() {
		return ErrTrailingData
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// CORS lets browser clients call the API. A request Origin is echoed back
// with credentials allowed; without one any origin is allowed.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if origin := r.Header.Get("Origin"); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		} else {
			h.Set("Access-Control-Allow-Origin", "*")
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetClientIP returns the first valid address of X-Forwarded-For, then
// X-Real-IP, then the host part of RemoteAddr
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
	}

	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	if ip := parseIP(r.RemoteAddr); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// parseIP accepts a bare address or host:port, IPv6 in brackets or not
func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	ip := net.ParseIP(strings.Trim(s, "[]"))
	if ip == nil {
		return ""
	}
	return ip.String()
}
