// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/grazios/oshijiku/cliparse"
	"github.com/grazios/oshijiku/handlers"
	"github.com/grazios/oshijiku/middleware"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, limiter handlers.Limiter) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	shareHandler := handlers.NewShareHandler(db, cfg, limiter)
	origins := middleware.NewOriginPolicy(cfg.AllowedOrigins, cfg.AllowLocalhost)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Share store (mutating routes require an allowed origin)
	mux.HandleFunc("POST /api/share", middleware.WithLogging(origins.RequireOrigin(shareHandler.Create)))
	mux.HandleFunc("POST /api/share/delete", middleware.WithLogging(origins.RequireOrigin(shareHandler.Delete)))
	mux.HandleFunc("GET /api/share", middleware.WithLogging(origins.ShareOrigin(shareHandler.Fetch)))

	// Preflight
	mux.HandleFunc("OPTIONS /api/share", middleware.WithLogging(origins.Preflight))
	mux.HandleFunc("OPTIONS /api/share/delete", middleware.WithLogging(origins.Preflight))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("oshijiku API v1"))
	})

	return mux
}
