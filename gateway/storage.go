// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/grazios/oshijiku/db"
	"github.com/grazios/oshijiku/models"
)

// Local storage keys
const (
	StateKey     = "oshijiku_state"
	ShareKeysKey = "oshijiku_share_keys"
)

// LocalStorage is a quota-limited string key-value store owned by one client.
// Get reports ok=false for a missing key.
type LocalStorage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryStorage keeps values in process. A positive quota caps the summed
// byte length of keys and values.
type MemoryStorage struct {
	mu    sync.Mutex
	data  map[string]string
	quota int
}

func NewMemoryStorage(quota int) *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string), quota: quota}
}

func (s *MemoryStorage) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStorage) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota > 0 {
		used := len(key) + len(value)
		for k, v := range s.data {
			if k != key {
				used += len(k) + len(v)
			}
		}
		if used > s.quota {
			return fmt.Errorf("%w: set %s", models.ErrQuotaExceeded, key)
		}
	}
	s.data[key] = value
	return nil
}

func (s *MemoryStorage) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// SQLiteStorage persists values in a single-table SQLite file.
type SQLiteStorage struct {
	conn *sql.DB
}

// OpenSQLiteStorage opens (creating if needed) the store at path. maxPages,
// when positive, bounds the file size through PRAGMA max_page_count.
func OpenSQLiteStorage(ctx context.Context, path string, maxPages int) (*SQLiteStorage, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	conn, err := db.Open(ctx, db.TypeSQLite, path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	if maxPages > 0 {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA max_page_count = %d", maxPages)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set page limit: %w", err)
		}
	}

	return &SQLiteStorage{conn: conn}, nil
}

func (s *SQLiteStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) Set(ctx context.Context, key, value string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		if isFull(err) {
			return fmt.Errorf("%w: set %s", models.ErrQuotaExceeded, key)
		}
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Remove(ctx context.Context, key string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.conn.Close()
}

func isFull(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code()&0xff == sqlite3.SQLITE_FULL
}
