// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sanitize

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/grazios/oshijiku/coord"
	"github.com/grazios/oshijiku/models"
)

// MaxImageBytes is the size ceiling the image picker enforces before a file
// is turned into a data URI.
const MaxImageBytes = 512 * 1024

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// OshiInput is a validated add-point form.
type OshiInput struct {
	Name    string
	X       int
	Y       int
	Clamped bool
}

// ValidateOshiInput checks a user-entered point. Out-of-range coordinates are
// clamped rather than rejected, and Clamped reports it.
func ValidateOshiInput(name string, x, y any) (OshiInput, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return OshiInput{}, models.NewValidationError("name", "is required")
	}
	if utf8.RuneCountInString(name) > models.MaxNameLen {
		return OshiInput{}, models.NewValidationError("name", "is too long (max %d)", models.MaxNameLen)
	}

	nx, ny := toNumber(x), toNumber(y)
	if math.IsNaN(nx) {
		return OshiInput{}, models.NewValidationError("x", "must be a number")
	}
	if math.IsNaN(ny) {
		return OshiInput{}, models.NewValidationError("y", "must be a number")
	}

	cx := coord.Clamp(nx, models.CoordMin, models.CoordMax)
	cy := coord.Clamp(ny, models.CoordMin, models.CoordMax)
	return OshiInput{
		Name:    name,
		X:       int(math.Round(cx)),
		Y:       int(math.Round(cy)),
		Clamped: cx != nx || cy != ny,
	}, nil
}

// ParseTags splits a comma separated list, dropping blank entries.
func ParseTags(csv string) []string {
	tags := []string{}
	for _, part := range strings.Split(csv, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// ValidateImageFile mirrors the picker's checks on MIME type and size.
func ValidateImageFile(mimeType string, size int64) error {
	if !allowedImageTypes[mimeType] {
		return models.NewValidationError("image", "must be jpg, png or webp")
	}
	if size > MaxImageBytes {
		return models.NewValidationError("image", "must be 512KB or smaller")
	}
	return nil
}

// PresetAxis is the built-in "betray / trust" axis.
func PresetAxis() models.AxisConfig {
	return models.AxisConfig{
		Title:      "裏切る / 裏切らない × 信頼できない / 信頼できる",
		XMin:       "裏切る",
		XMax:       "裏切らない",
		YMin:       "信頼できない",
		YMax:       "信頼できる",
		Visibility: models.VisibilityPublic,
	}
}
