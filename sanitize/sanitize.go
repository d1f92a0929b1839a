// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sanitize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/grazios/oshijiku/coord"
	"github.com/grazios/oshijiku/models"
)

// imageDataRE is the allow-list for embedded images. Anything else,
// including javascript: and data:text/html URIs, is dropped.
var imageDataRE = regexp.MustCompile(`(?i)^data:image/(jpeg|png|webp);base64,`)

// ValidImageData reports whether s is an allow-listed image data URI.
func ValidImageData(s string) bool {
	return imageDataRE.MatchString(s)
}

// ParseJSON decodes untrusted bytes into the loosely typed form Sanitize
// accepts (map[string]any, []any, float64, string, bool, nil).
func ParseJSON(data []byte) (any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ToRaw converts a typed value into its loosely typed JSON form.
func ToRaw(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	raw, err := ParseJSON(data)
	if err != nil {
		return nil
	}
	return raw
}

// Sanitize converts an untrusted value into a canonical model. It never
// fails and never mutates prev: any part of raw that is missing or has the
// wrong shape falls back to the matching part of prev.
func Sanitize(raw any, prev models.MapModel) models.MapModel {
	result := prev.Clone()
	if result.Oshis == nil {
		result.Oshis = []models.Point{}
	}

	switch raw.(type) {
	case models.MapModel, *models.MapModel, models.SharePayload, *models.SharePayload:
		raw = ToRaw(raw)
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return result
	}

	if a, ok := obj["axis"].(map[string]any); ok {
		result.Axis = sanitizeAxis(a)
	}

	if list, ok := obj["oshis"].([]any); ok {
		oshis := make([]models.Point, 0, min(len(list), models.MaxOshis))
		for _, item := range list {
			if len(oshis) == models.MaxOshis {
				break
			}
			if p, ok := sanitizePoint(item); ok {
				oshis = append(oshis, p)
			}
		}
		result.Oshis = oshis
	}

	return result
}

func sanitizeAxis(a map[string]any) models.AxisConfig {
	return models.AxisConfig{
		Title:      cleanString(a["title"], models.MaxAxisLen),
		XMin:       withDefault(cleanString(a["xMin"], models.MaxAxisLen), models.DefaultXMin),
		XMax:       withDefault(cleanString(a["xMax"], models.MaxAxisLen), models.DefaultXMax),
		YMin:       withDefault(cleanString(a["yMin"], models.MaxAxisLen), models.DefaultYMin),
		YMax:       withDefault(cleanString(a["yMax"], models.MaxAxisLen), models.DefaultYMax),
		Visibility: ValidateVisibility(a["visibility"]),
	}
}

func sanitizePoint(item any) (models.Point, bool) {
	o, ok := item.(map[string]any)
	if !ok {
		return models.Point{}, false
	}

	name := cleanString(o["name"], models.MaxNameLen)
	if name == "" {
		return models.Point{}, false
	}

	imageData, _ := o["imageData"].(string)
	imageData = strings.ToValidUTF8(imageData, "\uFFFD")
	if !ValidImageData(imageData) {
		imageData = ""
	}

	return models.Point{
		Name:      name,
		X:         canonicalCoord(o["x"]),
		Y:         canonicalCoord(o["y"]),
		Tags:      sanitizeTags(o["tags"]),
		ImageData: imageData,
	}, true
}

func sanitizeTags(v any) []string {
	tags := []string{}
	list, ok := v.([]any)
	if !ok {
		return tags
	}
	for _, item := range list {
		if len(tags) == models.MaxTags {
			break
		}
		if tag := cleanString(item, models.MaxTagLen); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// canonicalCoord coerces v to a number, maps non-finite values to 0, then
// clamps and rounds into the logical range.
func canonicalCoord(v any) int {
	n := toNumber(v)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		n = 0
	}
	return int(math.Round(coord.Clamp(n, models.CoordMin, models.CoordMax)))
}

// ValidateVisibility accepts only the two known values.
func ValidateVisibility(v any) string {
	if s, ok := v.(string); ok && (s == models.VisibilityPublic || s == models.VisibilityURL) {
		return s
	}
	return models.VisibilityPublic
}

// toNumber follows loose numeric coercion: absent is 0, blank strings are 0,
// unparsable strings and composite values are NaN.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// toString coerces scalars to text. Absent and composite values are empty.
func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// cleanString replaces invalid UTF-8 the way JSON encoding does, trims,
// truncates to limit runes, and trims again so the result is stable under
// repeated cleaning and autosave round trips.
func cleanString(v any, limit int) string {
	s := strings.ToValidUTF8(toString(v), "\uFFFD")
	return strings.TrimSpace(truncate(strings.TrimSpace(s), limit))
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

func withDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
