// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (request_id, method, path, remote) and completion
(status, size, duration_ms). The request id is taken from X-Request-ID or
generated, and echoed back in the same header.

# Origin Policy

The share API only accepts cross-origin calls from an allow-list:

	policy := middleware.NewOriginPolicy(cfg.AllowedOrigins, cfg.AllowLocalhost)
	mux.HandleFunc("POST /api/share", policy.RequireOrigin(h.Create))
	mux.HandleFunc("GET /api/share", policy.ShareOrigin(h.Fetch))
	mux.HandleFunc("OPTIONS /api/share", policy.Preflight)

RequireOrigin answers 403 for a declared origin outside the list. Requests
with no Origin header pass. ShareOrigin never rejects; it only decides
whether to echo Access-Control-Allow-Origin.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)

Every JSON response carries nosniff, X-Frame-Options: DENY and HSTS.

Write error responses:

	middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
	// {"ok":false,"error":"Invalid JSON"}

	middleware.WriteError(w, err, "Database error")

WriteError maps *models.ValidationError to 400 (with "field"),
models.ErrNotFound to 404, *models.RateLimitError to 429 with Retry-After,
models.ErrServerBusy to 503, and anything else to 500.

Parse request bodies (capped at MaxBodyBytes):

	var raw any
	if err := middleware.ParseJSONBody(r, &raw); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP

GetClientIP checks X-Forwarded-For, then X-Real-IP, then RemoteAddr.
*/
package middleware
