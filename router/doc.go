// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the oshijiku share API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, limiter)

# Endpoints

Health:

	GET /health

Share store:

	POST    /api/share        - Create share (allowed origins only)
	GET     /api/share?id=    - Fetch share
	POST    /api/share/delete - Delete share by id and delete key (allowed origins only)
	OPTIONS /api/share        - Preflight
	OPTIONS /api/share/delete - Preflight

Every route is wrapped in middleware.WithLogging.
*/
package router
