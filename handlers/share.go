// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/grazios/oshijiku/auth"
	"github.com/grazios/oshijiku/cliparse"
	"github.com/grazios/oshijiku/db"
	"github.com/grazios/oshijiku/middleware"
	"github.com/grazios/oshijiku/models"
	"github.com/grazios/oshijiku/ratelimit"
	"github.com/grazios/oshijiku/sanitize"
)

// Limiter admits or rejects one request for a (scope, address) key.
type Limiter interface {
	Allow(ctx context.Context, scope ratelimit.Scope, addr string) error
}

type ShareHandler struct {
	db      *sql.DB
	cfg     cliparse.Config
	limiter Limiter
	now     func() time.Time
}

func NewShareHandler(db *sql.DB, cfg cliparse.Config, limiter Limiter) *ShareHandler {
	return &ShareHandler{db: db, cfg: cfg, limiter: limiter, now: time.Now}
}

func (h *ShareHandler) clientAddr(r *http.Request) string {
	if h.cfg.TrustProxy {
		return middleware.GetClientIP(r)
	}
	return middleware.RemoteIP(r)
}

// allow applies the rate limit of scope and writes the rejection if any.
func (h *ShareHandler) allow(w http.ResponseWriter, r *http.Request, scope ratelimit.Scope) bool {
	err := h.limiter.Allow(r.Context(), scope, h.clientAddr(r))
	if err == nil {
		return true
	}
	if errors.Is(err, models.ErrRateLimited) {
		slog.Warn("rate limit exceeded", "scope", scope, "path", r.URL.Path)
	}
	middleware.WriteError(w, err, "Rate limiter unavailable")
	return false
}

func (h *ShareHandler) query(q string) string {
	return db.Rebind(h.cfg.DatabaseType, q)
}

// Create handles POST /api/share
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, ratelimit.ScopeCreate) {
		return
	}

	var raw any
	if err := middleware.ParseJSONBody(r, &raw); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Client-side sanitizing is never trusted
	payload, err := sanitize.ValidateSharePayload(raw)
	if err != nil {
		middleware.WriteError(w, err, "Invalid payload")
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode share payload", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create share")
		return
	}

	shareID, deleteKey, err := auth.GenerateShareCredentials()
	if err != nil {
		slog.Error("failed to generate share credentials", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create share")
		return
	}

	// Single statement: a share is either fully written or absent
	_, err = h.db.ExecContext(r.Context(), h.query(`
		INSERT INTO share (share_id, delete_key, title, data, ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), shareID, deleteKey, payload.Axis.Title, string(data), h.clientAddr(r), h.now().UTC())
	if err != nil {
		slog.Error("failed to insert share", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create share")
		return
	}

	slog.Info("share created", "share_id", shareID, "oshis", len(payload.Oshis))

	middleware.JSONResponse(w, http.StatusOK, models.CreateShareResponse{
		OK:        true,
		ShareID:   shareID,
		DeleteKey: deleteKey,
		URL:       h.cfg.ShareURL(shareID),
	})
}

// Fetch handles GET /api/share?id=
func (h *ShareHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	// Shape check first; malformed ids never reach the limiter or the store
	shareID := r.URL.Query().Get("id")
	if err := auth.ValidateShareID(shareID); err != nil {
		middleware.JSONResponse(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid id", Field: "id"})
		return
	}

	if !h.allow(w, r, ratelimit.ScopeFetch) {
		return
	}

	var rec models.ShareRecord
	err := h.db.QueryRowContext(r.Context(), h.query(`
		SELECT data, title, created_at FROM share WHERE share_id = ?
	`), shareID).Scan(&rec.Data, &rec.Title, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		slog.Error("failed to query share", "error", err, "share_id", shareID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	data, err := sanitize.ParseJSON([]byte(rec.Data))
	if err != nil {
		slog.Error("stored share is not valid JSON", "error", err, "share_id", shareID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Corrupt share")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.FetchShareResponse{
		OK:        true,
		Data:      data,
		Title:     rec.Title,
		CreatedAt: rec.CreatedAt.UTC(),
	})
}

// Delete handles POST /api/share/delete
func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, ratelimit.ScopeDelete) {
		return
	}

	var req models.DeleteShareRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ShareID == "" {
		middleware.WriteError(w, models.NewValidationError("share_id", "share_id and delete_key required"), "")
		return
	}
	if req.DeleteKey == "" {
		middleware.WriteError(w, models.NewValidationError("delete_key", "share_id and delete_key required"), "")
		return
	}

	// Unknown id and wrong key are reported identically
	result, err := h.db.ExecContext(r.Context(), h.query(`
		DELETE FROM share WHERE share_id = ? AND delete_key = ?
	`), req.ShareID, req.DeleteKey)
	if err != nil {
		slog.Error("failed to delete share", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := result.RowsAffected()
	if err != nil {
		slog.Error("failed to read affected rows", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if rows != 1 {
		middleware.WriteError(w, models.ErrNotFound, "")
		return
	}

	slog.Info("share deleted", "share_id", req.ShareID)

	middleware.JSONResponse(w, http.StatusOK, models.OKResponse{OK: true})
}
