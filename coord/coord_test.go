// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package coord

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	testCases := []struct {
		name     string
		v        float64
		expected float64
	}{
		{"inside range", 50, 50},
		{"below lower bound", -10, 0},
		{"above upper bound", 200, 100},
		{"at lower bound", 0, 0},
		{"at upper bound", 100, 100},
		{"positive infinity", math.Inf(1), 100},
		{"negative infinity", math.Inf(-1), 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clamp(tc.v, 0, 100); got != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestClamp_NaN(t *testing.T) {
	if got := Clamp(math.NaN(), -100, 100); !math.IsNaN(got) {
		t.Errorf("Expected NaN, got %v", got)
	}
}

func TestClampInt(t *testing.T) {
	if got := ClampInt(999, -100, 100); got != 100 {
		t.Errorf("Expected 100, got %d", got)
	}
	if got := ClampInt(-999, -100, 100); got != -100 {
		t.Errorf("Expected -100, got %d", got)
	}
	if got := ClampInt(7, -100, 100); got != 7 {
		t.Errorf("Expected 7, got %d", got)
	}
}

func TestToRenderSpace(t *testing.T) {
	testCases := []struct {
		logical float64
		x, y    float64
	}{
		{-100, 50, 550},
		{0, 300, 300},
		{100, 550, 50},
		{50, 425, 175},
	}

	for _, tc := range testCases {
		if got := ToSvgX(tc.logical); got != tc.x {
			t.Errorf("ToSvgX(%v): expected %v, got %v", tc.logical, tc.x, got)
		}
		if got := ToSvgY(tc.logical); got != tc.y {
			t.Errorf("ToSvgY(%v): expected %v, got %v", tc.logical, tc.y, got)
		}
	}
}

func TestFromRenderSpace(t *testing.T) {
	if got := FromSvgX(50); got != -100 {
		t.Errorf("Expected -100, got %v", got)
	}
	if got := FromSvgX(300); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
	if got := FromSvgY(50); got != 100 {
		t.Errorf("Expected 100, got %v", got)
	}
	if got := FromSvgY(551); got != -100 {
		t.Errorf("Expected -100 after rounding, got %v", got)
	}
}

func TestRoundTrip(t *testing.T) {
	for v := -100; v <= 100; v++ {
		if got := FromSvgX(ToSvgX(float64(v))); got != float64(v) {
			t.Errorf("X round trip of %d gave %v", v, got)
		}
		if got := FromSvgY(ToSvgY(float64(v))); got != float64(v) {
			t.Errorf("Y round trip of %d gave %v", v, got)
		}
	}
}

func TestRoundTrip_CustomAxis(t *testing.T) {
	a := Axis{Center: 123.5, Range: 333}
	for v := -100; v <= 100; v++ {
		if got := a.FromRenderSpace(a.ToRenderSpace(float64(v))); got != float64(v) {
			t.Errorf("round trip of %d gave %v", v, got)
		}
	}
}

func TestNonFinite(t *testing.T) {
	if !math.IsNaN(ToSvgX(math.NaN())) {
		t.Error("Expected ToSvgX(NaN) to be NaN")
	}
	if !math.IsInf(ToSvgX(math.Inf(1)), 1) {
		t.Error("Expected ToSvgX(+Inf) to be +Inf")
	}
	if !math.IsNaN(FromSvgX(math.NaN())) {
		t.Error("Expected FromSvgX(NaN) to be NaN")
	}
}
