// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/grazios/oshijiku/models"
)

// MaxBodyBytes caps request bodies read by ParseJSONBody.
const MaxBodyBytes = 1 << 20

const (
	RequestIDHeader = "X-Request-ID"
	allowMethods    = "GET, POST, OPTIONS"
	allowHeaders    = "Content-Type"
)

var localhostOrigin = regexp.MustCompile(`^https?://localhost(:\d+)?$`)

// statusRecorder captures what the wrapped handler wrote
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// WithLogging wraps a handler with request logging
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		// Log request
		slog.Info("request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		)

		rec := &statusRecorder{ResponseWriter: w}
		next(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		// Log completion
		duration := time.Since(start)
		slog.Info("request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"size", humanize.Bytes(uint64(rec.bytes)),
			"duration_ms", duration.Milliseconds(),
		)
	}
}

// JSONResponse writes a JSON response with the security headers every API
// response carries.
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	h := w.Header()
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{Error: message})
}

// WriteError maps an error from the taxonomy in models onto a status code.
// Unknown errors are logged and reported as 500 with fallback as message.
func WriteError(w http.ResponseWriter, err error, fallback string) {
	var verr *models.ValidationError
	var rerr *models.RateLimitError

	switch {
	case errors.As(err, &verr):
		JSONResponse(w, http.StatusBadRequest, models.ErrorResponse{
			Error: verr.Error(),
			Field: verr.Field,
		})
	case errors.As(err, &rerr):
		seconds := int(math.Ceil(rerr.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		ErrorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded")
	case errors.Is(err, models.ErrNotFound):
		ErrorResponse(w, http.StatusNotFound, "Not found or wrong key")
	case errors.Is(err, models.ErrServerBusy):
		slog.Warn("server busy", "error", err)
		ErrorResponse(w, http.StatusServiceUnavailable, "Server busy")
	default:
		slog.Error(fallback, "error", err)
		ErrorResponse(w, http.StatusInternalServerError, fallback)
	}
}

// ErrTrailingData rejects bodies holding more than one JSON value.
var ErrTrailingData = errors.New("unexpected data after JSON value")

// ParseJSONBody parses the request body into v. The body must be exactly one
// JSON value; bodies over MaxBodyBytes are rejected.
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	body := http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	return nil
}

// OriginPolicy is the cross-origin allow-list for the share API.
type OriginPolicy struct {
	allowed        map[string]struct{}
	allowLocalhost bool
}

func NewOriginPolicy(origins []string, allowLocalhost bool) *OriginPolicy {
	p := &OriginPolicy{
		allowed:        make(map[string]struct{}, len(origins)),
		allowLocalhost: allowLocalhost,
	}
	for _, o := range origins {
		p.allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return p
}

// Allowed reports whether origin may call the API. Exact match only.
func (p *OriginPolicy) Allowed(origin string) bool {
	if _, ok := p.allowed[origin]; ok {
		return true
	}
	return p.allowLocalhost && localhostOrigin.MatchString(origin)
}

// RequireOrigin rejects requests declaring an origin outside the allow-list
// before the handler runs. Requests without an Origin header (same-origin
// navigation, non-browser clients) pass through.
func (p *OriginPolicy) RequireOrigin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if !p.Allowed(origin) {
				slog.Warn("origin rejected", "origin", origin, "path", r.URL.Path)
				ErrorResponse(w, http.StatusForbidden, "Forbidden")
				return
			}
			p.setCORSHeaders(w, origin)
		}
		next(w, r)
	}
}

// ShareOrigin echoes allowed origins on read-only routes and never rejects.
func (p *OriginPolicy) ShareOrigin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && p.Allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		next(w, r)
	}
}

// Preflight answers OPTIONS requests with an empty 204.
func (p *OriginPolicy) Preflight(w http.ResponseWriter, r *http.Request) {
	p.RequireOrigin(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", allowMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
		w.WriteHeader(http.StatusNoContent)
	})(w, r)
}

func (p *OriginPolicy) setCORSHeaders(w http.ResponseWriter, origin string) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
	h.Add("Vary", "Origin")
}

// RemoteIP is the peer address of the connection without its port.
func RemoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// GetClientIP extracts the client IP address
// Checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For (load balancers)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	// Check X-Real-IP (nginx)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return RemoteIP(r)
}
