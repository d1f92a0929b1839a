// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/grazios/oshijiku/coord"
	"github.com/grazios/oshijiku/models"
	"github.com/grazios/oshijiku/sanitize"
)

type Mode int

const (
	ModeEdit Mode = iota
	ModeView
)

func (m Mode) String() string {
	if m == ModeView {
		return "view"
	}
	return "edit"
}

// Source records where the current model was loaded from.
type Source string

const (
	SourceShare    Source = "share"
	SourceEmbedded Source = "embedded"
	SourceLocal    Source = "local"
	SourceSample   Source = "sample"
)

// Notice is a recoverable failure shown to the user until dismissed.
type Notice struct {
	Message string
	Err     error
	At      time.Time
}

// SharedInfo describes the share a view-mode session was opened from.
type SharedInfo struct {
	ShareID   string
	Title     string
	CreatedAt time.Time
}

// Session owns the canonical model of one client. It is single-writer: one
// caller drives it, and at most one share request is in flight at a time.
type Session struct {
	store   LocalStorage
	api     ShareAPI
	model   models.MapModel
	mode    Mode
	source  Source
	shared  *SharedInfo
	notices []Notice
	now     func() time.Time

	// Set while the autosave is unreadable; blocks writes to it.
	readErr error
}

func NewSession(store LocalStorage, api ShareAPI) *Session {
	return &Session{
		store:  store,
		api:    api,
		model:  models.NewMapModel(),
		source: SourceLocal,
		now:    time.Now,
	}
}

// Model returns a deep copy of the canonical model.
func (s *Session) Model() models.MapModel { return s.model.Clone() }

func (s *Session) Mode() Mode { return s.mode }

func (s *Session) Source() Source { return s.source }

// Shared is non-nil while viewing a fetched share.
func (s *Session) Shared() *SharedInfo { return s.shared }

func (s *Session) Notices() []Notice {
	out := make([]Notice, len(s.notices))
	copy(out, s.notices)
	return out
}

// Dismiss drops the i-th notice. Out of range indexes are ignored.
func (s *Session) Dismiss(i int) {
	if i < 0 || i >= len(s.notices) {
		return
	}
	s.notices = append(s.notices[:i], s.notices[i+1:]...)
}

func (s *Session) notify(msg string, err error) {
	slog.Warn(msg, "error", err)
	s.notices = append(s.notices, Notice{Message: msg, Err: err, At: s.now()})
}

// Load picks the starting model: the share named by entry, else its embedded
// payload, else the local autosave, else the sample dataset. Failures of one
// source become notices and fall through; Load itself never fails.
func (s *Session) Load(ctx context.Context, entry Entry) Source {
	s.readErr = nil
	switch {
	case entry.ShareID != "":
		if err := s.loadShare(ctx, entry.ShareID); err != nil {
			s.notify("Could not open the shared chart", err)
			break
		}
		return s.source
	case entry.Embedded != "":
		raw, err := DecodeEmbedded(entry.Embedded)
		if err != nil {
			s.notify("Could not read the chart in this link", err)
			break
		}
		s.model = sanitize.Sanitize(raw, models.NewMapModel())
		s.mode, s.source, s.shared = ModeEdit, SourceEmbedded, nil
		return s.source
	}

	s.loadLocal(ctx)
	return s.source
}

func (s *Session) loadShare(ctx context.Context, shareID string) error {
	if s.api == nil {
		return fmt.Errorf("%w: no share store configured", models.ErrNetwork)
	}
	res, err := s.api.Fetch(ctx, shareID)
	if err != nil {
		return err
	}
	if _, ok := res.Data.(map[string]any); !ok {
		return fmt.Errorf("share %s: malformed data", shareID)
	}

	s.model = sanitize.Sanitize(res.Data, models.NewMapModel())
	s.mode, s.source = ModeView, SourceShare
	s.shared = &SharedInfo{ShareID: shareID, Title: res.Title, CreatedAt: res.CreatedAt}
	return nil
}

func (s *Session) loadLocal(ctx context.Context) {
	s.mode, s.shared = ModeEdit, nil

	value, ok, err := s.store.Get(ctx, StateKey)
	if err != nil {
		// Keep whatever is in memory and leave the autosave alone until a
		// later Load reads it
		s.notify("Could not read the saved chart", err)
		s.readErr = err
		s.source = SourceLocal
		return
	}
	if ok {
		raw, perr := sanitize.ParseJSON([]byte(value))
		if perr == nil {
			if _, isObj := raw.(map[string]any); isObj {
				s.model = sanitize.Sanitize(raw, models.NewMapModel())
				s.source = SourceLocal
				return
			}
		}
		s.notify("Saved chart was unreadable; starting from the sample", perr)
	}

	s.model = SampleModel()
	s.source = SourceSample
	if err := s.autosave(ctx); err != nil {
		s.notify("Could not save the chart locally", err)
	}
}

func (s *Session) autosave(ctx context.Context) error {
	data, err := json.Marshal(s.model)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return s.store.Set(ctx, StateKey, string(data))
}

// mutate applies fn to a copy of the model and commits it, then autosaves.
// A failed autosave keeps the in-memory change and leaves a notice.
func (s *Session) mutate(ctx context.Context, fn func(m *models.MapModel) error) error {
	if s.mode == ModeView {
		return models.ErrReadOnly
	}
	if err := s.writable(); err != nil {
		return err
	}
	next := s.model.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.model = next
	if s.source != SourceLocal && s.source != SourceSample {
		s.source = SourceLocal
	}
	if err := s.autosave(ctx); err != nil {
		s.notify("Could not save the chart locally", err)
	}
	return nil
}

// writable fails while the autosave could not be read.
func (s *Session) writable() error {
	if s.readErr != nil {
		return fmt.Errorf("%w: saved chart could not be read: %v", models.ErrStorageUnavailable, s.readErr)
	}
	return nil
}

// OshiDraft is the raw add-point form.
type OshiDraft struct {
	Name      string
	X, Y      any
	Tags      string
	ImageData string
}

// AddOshi validates the draft and appends it. Out-of-range coordinates are
// clamped and reported through the returned input's Clamped flag.
func (s *Session) AddOshi(ctx context.Context, d OshiDraft) (sanitize.OshiInput, error) {
	in, err := sanitize.ValidateOshiInput(d.Name, d.X, d.Y)
	if err != nil {
		return in, err
	}
	if d.ImageData != "" && !sanitize.ValidImageData(d.ImageData) {
		return in, models.NewValidationError("imageData", "must be a jpg, png or webp data URI")
	}

	err = s.mutate(ctx, func(m *models.MapModel) error {
		if len(m.Oshis) >= models.MaxOshisClient {
			return models.NewValidationError("oshis", "at most %d oshis", models.MaxOshisClient)
		}
		raw := map[string]any{"oshis": []any{map[string]any{
			"name":      in.Name,
			"x":         in.X,
			"y":         in.Y,
			"tags":      toAnySlice(sanitize.ParseTags(d.Tags)),
			"imageData": d.ImageData,
		}}}
		added := sanitize.Sanitize(raw, models.MapModel{})
		if len(added.Oshis) != 1 {
			return models.NewValidationError("name", "is required")
		}
		m.Oshis = append(m.Oshis, added.Oshis[0])
		return nil
	})
	return in, err
}

// Find returns the index of the first oshi named name, or -1.
func (s *Session) Find(name string) int {
	for i, p := range s.model.Oshis {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (s *Session) RemoveOshi(ctx context.Context, i int) error {
	return s.mutate(ctx, func(m *models.MapModel) error {
		if i < 0 || i >= len(m.Oshis) {
			return models.NewValidationError("index", "no oshi at %d", i)
		}
		m.Oshis = append(m.Oshis[:i], m.Oshis[i+1:]...)
		return nil
	})
}

// MoveOshi places the i-th oshi at logical (x, y), clamped to range.
func (s *Session) MoveOshi(ctx context.Context, i int, x, y float64) error {
	return s.mutate(ctx, func(m *models.MapModel) error {
		if i < 0 || i >= len(m.Oshis) {
			return models.NewValidationError("index", "no oshi at %d", i)
		}
		m.Oshis[i].X = logical(x)
		m.Oshis[i].Y = logical(y)
		return nil
	})
}

// CommitDrag ends a drag of the i-th oshi at render-space (px, py).
func (s *Session) CommitDrag(ctx context.Context, i int, px, py float64) error {
	return s.MoveOshi(ctx, i, coord.FromSvgX(px), coord.FromSvgY(py))
}

func logical(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return int(math.Round(coord.Clamp(v, models.CoordMin, models.CoordMax)))
}

// SetAxis replaces the axis. Labels are trimmed and truncated, empty ones
// get their default glyph, and unknown visibility becomes public.
func (s *Session) SetAxis(ctx context.Context, a models.AxisConfig) error {
	return s.mutate(ctx, func(m *models.MapModel) error {
		m.Axis = sanitize.Sanitize(map[string]any{"axis": sanitize.ToRaw(a)}, *m).Axis
		return nil
	})
}

// Share uploads the image-free projection of the model and keeps the
// returned delete key locally so this client alone can unshare it.
func (s *Session) Share(ctx context.Context) (models.CreateShareResponse, error) {
	if s.api == nil {
		return models.CreateShareResponse{}, fmt.Errorf("%w: no share store configured", models.ErrNetwork)
	}

	res, err := s.api.Create(ctx, sanitize.BuildSharePayload(s.model))
	if err != nil {
		s.notify("Could not create the share", err)
		return res, err
	}

	if err := s.rememberKey(ctx, res.ShareID, res.DeleteKey); err != nil {
		s.notify("Share created but its delete key could not be saved", err)
	}
	slog.Info("share created", "share_id", res.ShareID)
	return res, nil
}

// Unshare deletes a share this client created.
func (s *Session) Unshare(ctx context.Context, shareID string) error {
	keys, err := s.ShareKeys(ctx)
	if err != nil {
		return err
	}
	deleteKey, ok := keys[shareID]
	if !ok {
		return fmt.Errorf("no delete key stored for share %s", shareID)
	}
	if s.api == nil {
		return fmt.Errorf("%w: no share store configured", models.ErrNetwork)
	}

	if err := s.api.Delete(ctx, shareID, deleteKey); err != nil {
		s.notify("Could not delete the share", err)
		return err
	}

	delete(keys, shareID)
	if err := s.saveKeys(ctx, keys); err != nil {
		s.notify("Share deleted but the local key list could not be updated", err)
	}
	return nil
}

// Fork copies the current model into a fresh local baseline and returns to
// edit mode, detached from any share.
func (s *Session) Fork(ctx context.Context) error {
	if err := s.writable(); err != nil {
		return err
	}
	s.model = s.model.Clone()
	s.mode, s.source, s.shared = ModeEdit, SourceLocal, nil
	if err := s.autosave(ctx); err != nil {
		s.notify("Could not save the forked chart", err)
		return err
	}
	return nil
}

// EmbedURL is a link carrying the model itself instead of a share id.
func (s *Session) EmbedURL(base string) (string, error) {
	return EmbedURL(base, s.model)
}

// ShareKeys returns the share_id → delete_key ledger. A corrupt ledger
// reads as empty.
func (s *Session) ShareKeys(ctx context.Context) (map[string]string, error) {
	keys := map[string]string{}
	value, ok, err := s.store.Get(ctx, ShareKeysKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return keys, nil
	}
	if err := json.Unmarshal([]byte(value), &keys); err != nil || keys == nil {
		slog.Warn("ignoring unreadable share key ledger", "error", err)
		return map[string]string{}, nil
	}
	return keys, nil
}

func (s *Session) rememberKey(ctx context.Context, shareID, deleteKey string) error {
	keys, err := s.ShareKeys(ctx)
	if err != nil {
		return err
	}
	keys[shareID] = deleteKey
	return s.saveKeys(ctx, keys)
}

func (s *Session) saveKeys(ctx context.Context, keys map[string]string) error {
	data, err := json.Marshal(keys)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, ShareKeysKey, string(data))
}

// IsRecoverable reports whether err should be shown as a retryable notice
// rather than a usage error.
func IsRecoverable(err error) bool {
	return models.IsTransient(err) || errors.Is(err, models.ErrRateLimited)
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
