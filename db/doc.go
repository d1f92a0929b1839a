// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the share store and creates its schema.

# Drivers

DATABASE_TYPE selects the driver:

  - sqlite (default): modernc.org/sqlite, pure Go
  - postgres: github.com/lib/pq
  - pgx: github.com/jackc/pgx/v5/stdlib

Open pings before returning:

	conn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)

Queries are written with ? placeholders and passed through Rebind, which
rewrites them to $N for the PostgreSQL drivers.

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS.

# Tables

  - share: one row per shared chart (share_id, delete_key, title, data, ip,
    created_at). Rows are never updated; they are removed only by a delete
    that matches both share_id and delete_key.
*/
package db
