// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Visibility constants
const (
	VisibilityPublic = "public"
	VisibilityURL    = "url"
)

// Axis label fallbacks used whenever a label is empty
const (
	DefaultXMin = "左"
	DefaultXMax = "右"
	DefaultYMin = "下"
	DefaultYMax = "上"
)

// Bounds shared by the client sanitizer and the server-side validator
const (
	MaxAxisLen       = 200
	MaxNameLen       = 100
	MaxTagLen        = 50
	MaxTags          = 10
	MaxOshis         = 100
	MaxOshisClient   = 50
	CoordMin         = -100
	CoordMax         = 100
	ShareIDByteLen   = 12
	DeleteKeyByteLen = 12
)

// Domain types

type AxisConfig struct {
	Title      string `json:"title"`
	XMin       string `json:"xMin"`
	XMax       string `json:"xMax"`
	YMin       string `json:"yMin"`
	YMax       string `json:"yMax"`
	Visibility string `json:"visibility"`
}

// Point is one labeled entry ("oshi") on the chart.
type Point struct {
	Name      string   `json:"name"`
	X         int      `json:"x"`
	Y         int      `json:"y"`
	Tags      []string `json:"tags"`
	ImageData string   `json:"imageData"`
}

type MapModel struct {
	Axis  AxisConfig `json:"axis"`
	Oshis []Point    `json:"oshis"`
}

// DefaultAxis returns the axis every fresh session starts with.
func DefaultAxis() AxisConfig {
	return AxisConfig{
		XMin:       DefaultXMin,
		XMax:       DefaultXMax,
		YMin:       DefaultYMin,
		YMax:       DefaultYMax,
		Visibility: VisibilityPublic,
	}
}

// NewMapModel returns an empty model with default axis labels.
func NewMapModel() MapModel {
	return MapModel{Axis: DefaultAxis(), Oshis: []Point{}}
}

// Clone returns a deep copy sharing no slices with m.
func (m MapModel) Clone() MapModel {
	out := MapModel{Axis: m.Axis, Oshis: make([]Point, len(m.Oshis))}
	for i, p := range m.Oshis {
		out.Oshis[i] = p.Clone()
	}
	return out
}

func (p Point) Clone() Point {
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)
	p.Tags = tags
	return p
}

// SharedPoint is a Point without its embedded image.
type SharedPoint struct {
	Name string   `json:"name"`
	X    int      `json:"x"`
	Y    int      `json:"y"`
	Tags []string `json:"tags"`
}

// SharePayload is the only shape of a chart that ever leaves the client.
type SharePayload struct {
	Axis  AxisConfig    `json:"axis"`
	Oshis []SharedPoint `json:"oshis"`
}

type ShareRecord struct {
	ShareID   string    `json:"share_id"`
	DeleteKey string    `json:"-"` // Never expose in JSON
	Title     string    `json:"title"`
	Data      string    `json:"-"`
	IP        string    `json:"-"` // Audit only
	CreatedAt time.Time `json:"created_at"`
}

// Request types

type DeleteShareRequest struct {
	ShareID   string `json:"share_id"`
	DeleteKey string `json:"delete_key"`
}

// Response types

type CreateShareResponse struct {
	OK        bool   `json:"ok"`
	ShareID   string `json:"share_id"`
	DeleteKey string `json:"delete_key"`
	URL       string `json:"url"`
}

// FetchShareResponse carries data as raw JSON; callers run it through the
// sanitizer instead of trusting its shape.
type FetchShareResponse struct {
	OK        bool      `json:"ok"`
	Data      any       `json:"data"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

// Error response

type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
