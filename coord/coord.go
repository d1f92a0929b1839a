// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package coord

import "math"

// Render space of the chart: a MapSize square with MapPad on every side.
const (
	MapSize  = 600
	MapPad   = 50
	MapRange = MapSize - MapPad*2
)

// Axis maps the logical range [-100, 100] onto a pixel span.
// Inverted axes grow downwards in render space (SVG y).
type Axis struct {
	Center   float64
	Range    float64
	Inverted bool
}

var (
	X = Axis{Center: MapSize / 2, Range: MapRange}
	Y = Axis{Center: MapSize / 2, Range: MapRange, Inverted: true}
)

// ToRenderSpace returns center + (logical/100) * (range/2).
func (a Axis) ToRenderSpace(logical float64) float64 {
	offset := (logical / 100) * (a.Range / 2)
	if a.Inverted {
		return a.Center - offset
	}
	return a.Center + offset
}

// FromRenderSpace is the exact inverse of ToRenderSpace on integers in
// [-100, 100]. NaN stays NaN.
func (a Axis) FromRenderSpace(px float64) float64 {
	delta := px - a.Center
	if a.Inverted {
		delta = a.Center - px
	}
	return math.Round((delta / (a.Range / 2)) * 100)
}

func ToSvgX(v float64) float64    { return X.ToRenderSpace(v) }
func ToSvgY(v float64) float64    { return Y.ToRenderSpace(v) }
func FromSvgX(px float64) float64 { return X.FromRenderSpace(px) }
func FromSvgY(px float64) float64 { return Y.FromRenderSpace(px) }

// Clamp returns v inside [lo, hi]. NaN propagates; infinities land on a bound.
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ClampInt is Clamp for already-integral values.
func ClampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
