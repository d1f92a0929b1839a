// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/grazios/oshijiku/cliparse"
	"github.com/grazios/oshijiku/models"
	"github.com/grazios/oshijiku/ratelimit"
	"github.com/grazios/oshijiku/testutil"
)

var hexID = regexp.MustCompile(`^[a-f0-9]{24}$`)

type fetchResponse struct {
	OK        bool           `json:"ok"`
	Data      map[string]any `json:"data"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
}

func newTestHandler(t *testing.T, cfg cliparse.Config, clock *testutil.Clock) *ShareHandler {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	limiter := ratelimit.NewMemory(cfg.Budgets(), ratelimit.WithClock(clock.Now))
	h := NewShareHandler(conn, cfg, limiter)
	h.now = clock.Now
	return h
}

func createShare(t *testing.T, h *ShareHandler, body any) models.CreateShareResponse {
	t.Helper()
	req := testutil.MakeRequest("POST", "/api/share", body, nil)
	w := httptest.NewRecorder()
	h.Create(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.CreateShareResponse
	testutil.AssertJSON(t, w, &resp)
	return resp
}

func fetchShare(h *ShareHandler, id string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("GET", "/api/share?id="+id, nil, nil)
	w := httptest.NewRecorder()
	h.Fetch(w, req)
	return w
}

func deleteShare(h *ShareHandler, id, key string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/api/share/delete", models.DeleteShareRequest{ShareID: id, DeleteKey: key}, nil)
	w := httptest.NewRecorder()
	h.Delete(w, req)
	return w
}

func TestCreate_Success(t *testing.T) {
	clock := testutil.NewClock()
	h := newTestHandler(t, testutil.GetTestConfig(), clock)

	resp := createShare(t, h, testutil.SamplePayload())

	if !resp.OK {
		t.Error("Expected ok=true")
	}
	if !hexID.MatchString(resp.ShareID) {
		t.Errorf("Expected 24-hex share_id, got %s", resp.ShareID)
	}
	if !hexID.MatchString(resp.DeleteKey) {
		t.Errorf("Expected 24-hex delete_key, got %s", resp.DeleteKey)
	}
	if resp.ShareID == resp.DeleteKey {
		t.Error("Expected independent share_id and delete_key")
	}
	if expected := "https://oshijiku.com/?s=" + resp.ShareID; resp.URL != expected {
		t.Errorf("Expected url %s, got %s", expected, resp.URL)
	}

	var title, ip string
	var createdAt time.Time
	err := h.db.QueryRow("SELECT title, ip, created_at FROM share WHERE share_id = ?", resp.ShareID).
		Scan(&title, &ip, &createdAt)
	if err != nil {
		t.Fatalf("Failed to load stored share: %v", err)
	}
	if title != "Test Map" {
		t.Errorf("Expected denormalized title 'Test Map', got '%s'", title)
	}
	if ip != "192.0.2.1" {
		t.Errorf("Expected stored ip 192.0.2.1, got %s", ip)
	}
	if !createdAt.Equal(clock.Now()) {
		t.Errorf("Expected created_at %v, got %v", clock.Now(), createdAt)
	}
}

func TestCreate_ThenFetch(t *testing.T) {
	h := newTestHandler(t, testutil.GetTestConfig(), testutil.NewClock())
	created := createShare(t, h, testutil.SamplePayload())

	w := fetchShare(h, created.ShareID)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp fetchResponse
	testutil.AssertJSON(t, w, &resp)

	if !resp.OK || resp.Title != "Test Map" {
		t.Errorf("Unexpected fetch response %+v", resp)
	}
	axis, ok := resp.Data["axis"].(map[string]any)
	if !ok || axis["xMin"] != "left" {
		t.Errorf("Expected stored axis, got %v", resp.Data["axis"])
	}
	oshis, ok := resp.Data["oshis"].([]any)
	if !ok || len(oshis) != 2 {
		t.Fatalf("Expected 2 oshis, got %v", resp.Data["oshis"])
	}
	first := oshis[0].(map[string]any)
	if first["name"] != "A" || first["x"] != float64(10) || first["y"] != float64(-20) {
		t.Errorf("Unexpected first oshi %v", first)
	}
	if resp.CreatedAt.IsZero() {
		t.Error("Expected created_at")
	}
}

func TestCreate_NeverStoresImageData(t *testing.T) {
	h := newTestHandler(t, testutil.GetTestConfig(), testutil.NewClock())

	payload := testutil.SamplePayload()
	payload["oshis"] = []any{
		map[string]any{"name": "A", "x": 0, "y": 0, "tags": []any{}, "imageData": "data:image/png;base64,AAAA"},
	}
	created := createShare(t, h, payload)

	var data string
	if err := h.db.QueryRow("SELECT data FROM share WHERE share_id = ?", created.ShareID).Scan(&data); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(data, "imageData") || strings.Contains(data, "base64") {
		t.Errorf("Expected image to be stripped, got %s", data)
	}
}

func TestCreate_NormalizesVisibility(t *testing.T) {
	h := newTestHandler(t, testutil.GetTestConfig(), testutil.NewClock())

	payload := testutil.SamplePayload()
	payload["axis"].(map[string]any)["visibility"] = "secret"
	created := createShare(t, h, payload)

	var resp fetchResponse
	w := fetchShare(h, created.ShareID)
	testutil.AssertJSON(t, w, &resp)

	if got := resp.Data["axis"].(map[string]any)["visibility"]; got != models.VisibilityPublic {
		t.Errorf("Expected visibility public, got %v", got)
	}
}

func TestCreate_ValidationNamesField(t *testing.T) {
	h := newTestHandler(t, testutil.GetTestConfig(), testutil.NewClock())

	tooMany := make([]any, models.MaxOshis+1)
	for i := range tooMany {
		tooMany[i] = map[string]any{"name": fmt.Sprintf("p%d", i), "x": 0, "y": 0}
	}

	tests := []struct {
		name   string
		mutate func(p map[string]any)
		field  string
	}{
		{"missing axis", func(p map[string]any) { delete(p, "axis") }, "axis"},
		{"long title", func(p map[string]any) {
			p["axis"].(map[string]any)["title"] = strings.Repeat("t", models.MaxAxisLen+1)
		}, "title"},
		{"too many oshis", func(p map[string]any) { p["oshis"] = tooMany }, "oshis"},
		{"empty name", func(p map[string]any) {
			p["oshis"] = []any{map[string]any{"name": "", "x": 0, "y": 0}}
		}, "oshis[0].name"},
		{"x out of range", func(p map[string]any) {
			p["oshis"] = []any{map[string]any{"name": "A", "x": 101, "y": 0}}
		}, "oshis[0].x"},
		{"too many tags", func(p map[string]any) {
			tags := make([]any, models.MaxTags+1)
			for i := range tags {
				tags[i] = "t"
			}
			p["oshis"] = []any{map[string]any{"name": "A", "x": 0, "y": 0, "tags": tags}}
		}, "oshis[0].tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := testutil.SamplePayload()
			tt.mutate(payload)

			req := testutil.MakeRequest("POST", "/api/share", payload, nil)
			w := httptest.NewRecorder()
			h.Create(w, req)

			testutil.AssertStatus(t, w, http.StatusBadRequest)

			var resp models.ErrorResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.OK {
				t.Error("Expected ok=false")
			}
			if resp.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, resp.Field)
			}
		})
	}

	if n := testutil.CountShares(t, h.db); n != 0 {
		t.Errorf("Expected no stored shares, got %d", n)
	}
}

func TestCreate_InvalidJSON(t *testing.T) {
	h := newTestHandler(t, testutil.GetTestConfig(), testutil.NewClock())

	for _, body := range []string{"{not json", "[1,2,3]", "null", `{"axis":{},"oshis":[]}garbage`, `{"axis":{},"oshis":[]}{}`} {
		req := testutil.MakeRequest("POST", "/api/share", body, nil)
		w := httptest.NewRecorder()
		h.Create(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	}
	if n := testutil.CountShares(t, h.db); n != 0 {
		t.Errorf("Expected no shares stored, got %d", n)
	}
}

func TestFetch_InvalidID(t *testing.T) {
	cfg := testutil.GetTestConfig()
	cfg.RateFetch = 1
	h := newTestHandler(t, cfg, testutil.NewClock())
	shareID, _ := testutil.CreateTestShare(t, h.db, "T")

	for _, id := range []string{"", "abc", strings.ToUpper(shareID), shareID + "0", "../../etc/passwd"} {
		w := fetchShare(h, id)
		testutil.AssertStatus(t, w, http.StatusBadRequest)

		var resp models.ErrorResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Field != "id" {
			t.Errorf("Expected field id for %q, got %s", id, resp.Field)
		}
	}

	// Rejected ids never spent the single fetch budget
	testutil.AssertStatus(t, fetchShare(h, shareID), http.StatusOK)
}

func TestFetch_NotFound(t *testing.T) {
	h := newTestHandler(t, testutil.GetTestConfig(), testutil.NewClock())

	w := fetchShare(h, strings.Repeat("a", 24))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestDelete_Capability(t *testing.T) {
	h := newTestHandler(t, testutil.GetTestConfig(), testutil.NewClock())
	created := createShare(t, h, testutil.SamplePayload())

	// Wrong key leaves the share readable
	w := deleteShare(h, created.ShareID, strings.Repeat("0", 24))
	testutil.AssertStatus(t, w, http.StatusNotFound)

	var errResp models.ErrorResponse
	testutil.AssertJSON(t, w, &errResp)
	if errResp.Error != "Not found or wrong key" {
		t.Errorf("Expected undifferentiated error, got %s", errResp.Error)
	}
	testutil.AssertStatus(t, fetchShare(h, created.ShareID), http.StatusOK)

	// Correct key removes it
	w = deleteShare(h, created.ShareID, created.DeleteKey)
	testutil.AssertStatus(t, w, http.StatusOK)

	var okResp models.OKResponse
	testutil.AssertJSON(t, w, &okResp)
	if !okResp.OK {
		t.Error("Expected ok=true")
	}
	testutil.AssertStatus(t, fetchShare(h, created.ShareID), http.StatusNotFound)

	// Second delete is indistinguishable from a wrong key
	w = deleteShare(h, created.ShareID, created.DeleteKey)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestDelete_OnlyMatchingShare(t *testing.T) {
	h := newTestHandler(t, testutil.GetTestConfig(), testutil.NewClock())
	firstID, firstKey := testutil.CreateTestShare(t, h.db, "first")
	secondID, _ := testutil.CreateTestShare(t, h.db, "second")

	// Key of one share never deletes another
	testutil.AssertStatus(t, deleteShare(h, secondID, firstKey), http.StatusNotFound)
	testutil.AssertStatus(t, deleteShare(h, firstID, firstKey), http.StatusOK)

	if n := testutil.CountShares(t, h.db); n != 1 {
		t.Errorf("Expected 1 remaining share, got %d", n)
	}
}

func TestDelete_MissingFields(t *testing.T) {
	h := newTestHandler(t, testutil.GetTestConfig(), testutil.NewClock())

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing share_id", map[string]string{"delete_key": "k"}, "share_id"},
		{"missing delete_key", map[string]string{"share_id": "s"}, "delete_key"},
		{"empty object", map[string]string{}, "share_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/api/share/delete", tt.body, nil)
			w := httptest.NewRecorder()
			h.Delete(w, req)

			testutil.AssertStatus(t, w, http.StatusBadRequest)

			var resp models.ErrorResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Field != tt.field {
				t.Errorf("Expected field %s, got %s", tt.field, resp.Field)
			}
		})
	}
}

func TestCreate_RateLimit(t *testing.T) {
	cfg := testutil.GetTestConfig()
	cfg.RateCreate = 3
	clock := testutil.NewClock()
	h := newTestHandler(t, cfg, clock)

	for i := 0; i < cfg.RateCreate; i++ {
		createShare(t, h, testutil.SamplePayload())
		clock.Advance(time.Minute)
	}

	// budget+1 is rejected
	req := testutil.MakeRequest("POST", "/api/share", testutil.SamplePayload(), nil)
	w := httptest.NewRecorder()
	h.Create(w, req)
	testutil.AssertStatus(t, w, http.StatusTooManyRequests)
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
	if n := testutil.CountShares(t, h.db); n != cfg.RateCreate {
		t.Errorf("Expected %d shares, got %d", cfg.RateCreate, n)
	}

	// Other scopes are unaffected
	testutil.AssertStatus(t, fetchShare(h, strings.Repeat("b", 24)), http.StatusNotFound)

	// After the window elapses the address may create again
	clock.Advance(time.Hour)
	createShare(t, h, testutil.SamplePayload())
}

func TestRateLimit_PerAddress(t *testing.T) {
	cfg := testutil.GetTestConfig()
	cfg.RateDelete = 1
	h := newTestHandler(t, cfg, testutil.NewClock())

	testutil.AssertStatus(t, deleteShare(h, strings.Repeat("c", 24), "k"), http.StatusNotFound)
	testutil.AssertStatus(t, deleteShare(h, strings.Repeat("c", 24), "k"), http.StatusTooManyRequests)

	// A different peer has its own budget
	req := testutil.MakeRequest("POST", "/api/share/delete", models.DeleteShareRequest{ShareID: "x", DeleteKey: "y"}, nil)
	req.RemoteAddr = "198.51.100.7:4000"
	w := httptest.NewRecorder()
	h.Delete(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestRateLimit_ForwardedHeaderNotTrustedByDefault(t *testing.T) {
	cfg := testutil.GetTestConfig()
	cfg.RateDelete = 1
	h := newTestHandler(t, cfg, testutil.NewClock())

	for i, expected := range []int{http.StatusNotFound, http.StatusTooManyRequests} {
		req := testutil.MakeRequest("POST", "/api/share/delete",
			models.DeleteShareRequest{ShareID: "x", DeleteKey: "y"},
			map[string]string{"X-Forwarded-For": fmt.Sprintf("203.0.113.%d", i+1)})
		w := httptest.NewRecorder()
		h.Delete(w, req)
		testutil.AssertStatus(t, w, expected)
	}
}

func TestRateLimit_TrustProxy(t *testing.T) {
	cfg := testutil.GetTestConfig()
	cfg.RateDelete = 1
	cfg.TrustProxy = true
	h := newTestHandler(t, cfg, testutil.NewClock())

	for i := 0; i < 2; i++ {
		req := testutil.MakeRequest("POST", "/api/share/delete",
			models.DeleteShareRequest{ShareID: "x", DeleteKey: "y"},
			map[string]string{"X-Forwarded-For": fmt.Sprintf("203.0.113.%d", i+1)})
		w := httptest.NewRecorder()
		h.Delete(w, req)
		testutil.AssertStatus(t, w, http.StatusNotFound)
	}
}

type busyLimiter struct{}

func (busyLimiter) Allow(ctx context.Context, scope ratelimit.Scope, addr string) error {
	return fmt.Errorf("%w: lock timeout", models.ErrServerBusy)
}

func TestRateLimit_BusyFailsClosed(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	h := NewShareHandler(conn, testutil.GetTestConfig(), busyLimiter{})

	req := testutil.MakeRequest("POST", "/api/share", testutil.SamplePayload(), nil)
	w := httptest.NewRecorder()
	h.Create(w, req)

	testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
	if n := testutil.CountShares(t, conn); n != 0 {
		t.Errorf("Expected no share written, got %d", n)
	}
}

func TestCreate_Concurrent(t *testing.T) {
	cfg := testutil.GetTestConfig()
	h := newTestHandler(t, cfg, testutil.NewClock())

	const workers = 20
	ids := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := testutil.MakeRequest("POST", "/api/share", testutil.SamplePayload(), nil)
			w := httptest.NewRecorder()
			h.Create(w, req)
			if w.Code != http.StatusOK {
				ids <- ""
				return
			}
			var resp models.CreateShareResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				ids <- ""
				return
			}
			ids <- resp.ShareID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	failed := 0
	for id := range ids {
		if id == "" {
			failed++
			continue
		}
		seen[id] = true
	}

	// 20 requests from one address against a budget of 30
	if failed != 0 {
		t.Errorf("Expected every create to succeed, %d failed", failed)
	}
	if len(seen) != workers {
		t.Errorf("Expected %d distinct ids, got %d", workers, len(seen))
	}
	if n := testutil.CountShares(t, h.db); n != workers {
		t.Errorf("Expected %d stored shares, got %d", workers, n)
	}
}
