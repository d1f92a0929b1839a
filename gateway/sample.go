// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	_ "embed"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/grazios/oshijiku/models"
	"github.com/grazios/oshijiku/sanitize"
)

//go:embed sample.yaml
var sampleYAML []byte

// SampleModel is the chart a first run starts with. The embedded file goes
// through the sanitizer like any other source.
func SampleModel() models.MapModel {
	var raw any
	if err := yaml.Unmarshal(sampleYAML, &raw); err != nil {
		slog.Error("failed to parse sample dataset", "error", err)
		return models.NewMapModel()
	}
	return sanitize.Sanitize(raw, models.NewMapModel())
}
