// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the share store HTTP handlers.

# Handler Types

ShareHandler holds the database, config and a rate limiter:

	limiter := ratelimit.NewMemory(cfg.Budgets(), ratelimit.WithSalt(cfg.IPHashSalt))
	h := handlers.NewShareHandler(db, cfg, limiter)

# Operations

Create (POST /api/share) re-validates the whole payload with
sanitize.ValidateSharePayload, generates a share id and delete key, and
stores the snapshot in one INSERT:

	{"ok":true,"share_id":"…","delete_key":"…","url":"https://oshijiku.com/?s=…"}

Fetch (GET /api/share?id=) rejects ids that are not 24 lowercase hex
characters before touching the limiter or the database:

	{"ok":true,"data":{"axis":{…},"oshis":[…]},"title":"…","created_at":"…"}

Delete (POST /api/share/delete) takes {"share_id","delete_key"} and runs a
single DELETE matching both. Zero affected rows is reported as
"Not found or wrong key" without saying which part was wrong.

# Rate Limits

Every operation spends one unit of its own scope (create, fetch, delete)
for the client address. The address is the connection peer unless
Config.TrustProxy is set. A spent budget answers 429 with Retry-After; an
unavailable limiter answers 503 and the operation does not run.

# Errors

All failures are JSON {"ok":false,"error":"…"}; validation failures add
"field" naming the offending input.
*/
package handlers
