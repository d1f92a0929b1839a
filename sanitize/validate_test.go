// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sanitize

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/grazios/oshijiku/models"
)

func validAxis() map[string]any {
	return map[string]any{"title": "T", "xMin": "L", "xMax": "R", "yMin": "D", "yMax": "U", "visibility": "url"}
}

func TestValidateSharePayload_Valid(t *testing.T) {
	raw := map[string]any{
		"axis": validAxis(),
		"oshis": []any{
			map[string]any{"name": " A ", "x": 10.0, "y": -20.0, "tags": []any{"t1", ""}, "imageData": "data:image/png;base64,AAAA"},
			map[string]any{"name": "B"},
		},
	}

	payload, err := ValidateSharePayload(raw)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	expected := models.SharePayload{
		Axis: models.AxisConfig{Title: "T", XMin: "L", XMax: "R", YMin: "D", YMax: "U", Visibility: "url"},
		Oshis: []models.SharedPoint{
			{Name: "A", X: 10, Y: -20, Tags: []string{"t1"}},
			{Name: "B", X: 0, Y: 0, Tags: []string{}},
		},
	}
	if !reflect.DeepEqual(payload, expected) {
		t.Errorf("Expected %+v, got %+v", expected, payload)
	}
}

func TestValidateSharePayload_NormalizesAxis(t *testing.T) {
	payload, err := ValidateSharePayload(map[string]any{"axis": map[string]any{"visibility": "secret"}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if payload.Axis != models.DefaultAxis() {
		t.Errorf("Expected default axis, got %+v", payload.Axis)
	}
	if payload.Oshis == nil || len(payload.Oshis) != 0 {
		t.Errorf("Expected empty oshis, got %+v", payload.Oshis)
	}
}

func TestValidateSharePayload_Rejections(t *testing.T) {
	point := func(fields map[string]any) map[string]any {
		p := map[string]any{"name": "A", "x": 0.0, "y": 0.0}
		for k, v := range fields {
			p[k] = v
		}
		return p
	}
	withOshis := func(oshis any) map[string]any {
		return map[string]any{"axis": validAxis(), "oshis": oshis}
	}
	tooMany := make([]any, models.MaxOshis+1)
	for i := range tooMany {
		tooMany[i] = point(nil)
	}
	longAxis := validAxis()
	longAxis["yMax"] = strings.Repeat("a", 201)
	objAxis := validAxis()
	objAxis["title"] = map[string]any{}

	testCases := []struct {
		name  string
		raw   any
		field string
	}{
		{"not an object", []any{}, "body"},
		{"missing axis", map[string]any{"oshis": []any{}}, "axis"},
		{"axis label too long", map[string]any{"axis": longAxis}, "yMax"},
		{"axis title not a string", map[string]any{"axis": objAxis}, "title"},
		{"oshis not array", withOshis("x"), "oshis"},
		{"too many oshis", withOshis(tooMany), "oshis"},
		{"point not object", withOshis([]any{"A"}), "oshis[0]"},
		{"empty name", withOshis([]any{point(map[string]any{"name": "  "})}), "oshis[0].name"},
		{"long name", withOshis([]any{point(nil), point(map[string]any{"name": strings.Repeat("n", 101)})}), "oshis[1].name"},
		{"x out of range", withOshis([]any{point(map[string]any{"x": 101.0})}), "oshis[0].x"},
		{"y not numeric", withOshis([]any{point(map[string]any{"y": "up"})}), "oshis[0].y"},
		{"tags not array", withOshis([]any{point(map[string]any{"tags": "a,b"})}), "oshis[0].tags"},
		{"too many tags", withOshis([]any{point(map[string]any{"tags": []any{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"}})}), "oshis[0].tags"},
		{"tag too long", withOshis([]any{point(map[string]any{"tags": []any{"ok", strings.Repeat("t", 51)}})}), "oshis[0].tags[1]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateSharePayload(tc.raw)
			var verr *models.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Errorf("Expected field '%s', got '%s'", tc.field, verr.Field)
			}
		})
	}
}

func TestValidateSharePayload_AcceptsSanitizedOutput(t *testing.T) {
	raw := map[string]any{
		"axis": map[string]any{"title": strings.Repeat("x", 300)},
		"oshis": []any{
			map[string]any{"name": strings.Repeat("n", 150), "x": 999.0, "tags": []any{strings.Repeat("t", 80)}},
		},
	}
	model := Sanitize(raw, models.NewMapModel())

	payload, err := ValidateSharePayload(ToRaw(BuildSharePayload(model)))
	if err != nil {
		t.Fatalf("Expected sanitized payload to validate, got %v", err)
	}
	if !reflect.DeepEqual(payload, BuildSharePayload(model)) {
		t.Errorf("Expected validation to be a no-op on sanitized payload, got %+v", payload)
	}
}
