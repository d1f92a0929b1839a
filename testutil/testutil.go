// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/grazios/oshijiku/auth"
	"github.com/grazios/oshijiku/cliparse"
	"github.com/grazios/oshijiku/db"
	"github.com/grazios/oshijiku/models"
	"github.com/grazios/oshijiku/sanitize"
)

// TestDBURL is an in-memory SQLite database private to one connection
const TestDBURL = ":memory:"

// TestOrigin is on the allow-list of GetTestConfig
const TestOrigin = "https://oshijiku.com"

// SetupTestDB creates a fresh test database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(context.Background(), db.TypeSQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    TestDBURL,
		DatabaseType:   db.TypeSQLite,
		PublicBaseURL:  "https://oshijiku.com",
		AllowedOrigins: []string{TestOrigin},
		AllowLocalhost: true,
		RateCreate:     30,
		RateDelete:     30,
		RateFetch:      300,
		LockTimeout:    2 * time.Second,
		IPHashSalt:     "test-ip-salt",
	}
}

// SamplePayload is a small valid create body
func SamplePayload() map[string]any {
	return map[string]any{
		"axis": map[string]any{
			"title":      "Test Map",
			"xMin":       "left",
			"xMax":       "right",
			"yMin":       "down",
			"yMax":       "up",
			"visibility": "public",
		},
		"oshis": []any{
			map[string]any{"name": "A", "x": 10, "y": -20, "tags": []any{"idol"}},
			map[string]any{"name": "B", "x": -100, "y": 100, "tags": []any{}},
		},
	}
}

// CreateTestShare inserts a share directly and returns its id and delete key
func CreateTestShare(t *testing.T, conn *sql.DB, title string) (shareID, deleteKey string) {
	t.Helper()

	shareID, deleteKey, err := auth.GenerateShareCredentials()
	if err != nil {
		t.Fatalf("Failed to generate share credentials: %v", err)
	}

	m := models.NewMapModel()
	m.Axis.Title = title
	m.Oshis = []models.Point{{Name: "A", X: 1, Y: 2, Tags: []string{}}}
	data, _ := json.Marshal(sanitize.BuildSharePayload(m))

	_, err = conn.Exec(`
		INSERT INTO share (share_id, delete_key, title, data, ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, shareID, deleteKey, title, string(data), "127.0.0.1", time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test share: %v", err)
	}

	return shareID, deleteKey
}

// CountShares returns the number of stored shares
func CountShares(t *testing.T, conn *sql.DB) int {
	t.Helper()

	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM share").Scan(&n); err != nil {
		t.Fatalf("Failed to count shares: %v", err)
	}
	return n
}

// Clock is a settable time source for rate limiter tests
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		var payload []byte
		if raw, ok := body.(string); ok {
			payload = []byte(raw)
		} else {
			payload, _ = json.Marshal(body)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
