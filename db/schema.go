// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Portable across SQLite and PostgreSQL; created_at is always supplied by
// the application.
const schema = `
CREATE TABLE IF NOT EXISTS share (
    share_id TEXT PRIMARY KEY,
    delete_key TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    data TEXT NOT NULL,
    ip TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_share_created_at ON share(created_at);
`
