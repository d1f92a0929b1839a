// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sanitize

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/grazios/oshijiku/models"
)

var axisFields = []string{"title", "xMin", "xMax", "yMin", "yMax"}

// ValidateSharePayload re-checks a share submitted to the server against the
// same bounds Sanitize enforces. Unlike Sanitize it rejects instead of
// repairing, and the returned error is a *models.ValidationError naming the
// first offending field. imageData is ignored.
func ValidateSharePayload(raw any) (models.SharePayload, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return models.SharePayload{}, models.NewValidationError("body", "must be a JSON object")
	}

	a, ok := obj["axis"].(map[string]any)
	if !ok {
		return models.SharePayload{}, models.NewValidationError("axis", "is required")
	}
	for _, key := range axisFields {
		v, present := a[key]
		if !present || v == nil {
			continue
		}
		switch v.(type) {
		case string, float64:
		default:
			return models.SharePayload{}, models.NewValidationError(key, "must be a string")
		}
		if utf8.RuneCountInString(toString(v)) > models.MaxAxisLen {
			return models.SharePayload{}, models.NewValidationError(key, "is too long (max %d)", models.MaxAxisLen)
		}
	}

	payload := models.SharePayload{
		Axis:  sanitizeAxis(a),
		Oshis: []models.SharedPoint{},
	}

	var list []any
	switch v := obj["oshis"].(type) {
	case nil:
	case []any:
		list = v
	default:
		return models.SharePayload{}, models.NewValidationError("oshis", "must be an array (max %d)", models.MaxOshis)
	}
	if len(list) > models.MaxOshis {
		return models.SharePayload{}, models.NewValidationError("oshis", "must be an array (max %d)", models.MaxOshis)
	}

	for i, item := range list {
		p, err := validatePoint(i, item)
		if err != nil {
			return models.SharePayload{}, err
		}
		payload.Oshis = append(payload.Oshis, p)
	}

	return payload, nil
}

func validatePoint(i int, item any) (models.SharedPoint, error) {
	field := fmt.Sprintf("oshis[%d]", i)

	o, ok := item.(map[string]any)
	if !ok {
		return models.SharedPoint{}, models.NewValidationError(field, "must be an object")
	}

	name := strings.TrimSpace(toString(o["name"]))
	if name == "" {
		return models.SharedPoint{}, models.NewValidationError(field+".name", "is required")
	}
	if utf8.RuneCountInString(name) > models.MaxNameLen {
		return models.SharedPoint{}, models.NewValidationError(field+".name", "is too long (max %d)", models.MaxNameLen)
	}

	x, err := validateCoord(field+".x", o["x"])
	if err != nil {
		return models.SharedPoint{}, err
	}
	y, err := validateCoord(field+".y", o["y"])
	if err != nil {
		return models.SharedPoint{}, err
	}

	tags := []string{}
	switch v := o["tags"].(type) {
	case nil:
	case []any:
		if len(v) > models.MaxTags {
			return models.SharedPoint{}, models.NewValidationError(field+".tags", "has too many entries (max %d)", models.MaxTags)
		}
		for j, t := range v {
			tag := strings.TrimSpace(toString(t))
			if utf8.RuneCountInString(tag) > models.MaxTagLen {
				return models.SharedPoint{}, models.NewValidationError(fmt.Sprintf("%s.tags[%d]", field, j), "is too long (max %d)", models.MaxTagLen)
			}
			if tag != "" {
				tags = append(tags, tag)
			}
		}
	default:
		return models.SharedPoint{}, models.NewValidationError(field+".tags", "must be an array")
	}

	return models.SharedPoint{Name: name, X: x, Y: y, Tags: tags}, nil
}

func validateCoord(field string, v any) (int, error) {
	n := toNumber(v)
	if math.IsNaN(n) || math.IsInf(n, 0) || n < models.CoordMin || n > models.CoordMax {
		return 0, models.NewValidationError(field, "must be %d to %d", models.CoordMin, models.CoordMax)
	}
	return int(math.Round(n)), nil
}
