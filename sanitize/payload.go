// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sanitize

import "github.com/grazios/oshijiku/models"

// BuildSharePayload projects a model onto what may be transmitted.
// Embedded images never leave the client.
func BuildSharePayload(m models.MapModel) models.SharePayload {
	payload := models.SharePayload{
		Axis:  m.Axis,
		Oshis: make([]models.SharedPoint, 0, len(m.Oshis)),
	}
	for _, p := range m.Oshis {
		tags := make([]string, len(p.Tags))
		copy(tags, p.Tags)
		payload.Oshis = append(payload.Oshis, models.SharedPoint{
			Name: p.Name,
			X:    p.X,
			Y:    p.Y,
			Tags: tags,
		})
	}
	return payload
}
