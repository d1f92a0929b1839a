// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the chart model, wire types and error taxonomy.

# Chart Model

A MapModel is an AxisConfig plus an ordered list of Points ("oshis"):

	m := models.NewMapModel()
	m.Oshis = append(m.Oshis, models.Point{Name: "A", X: 10, Y: -20, Tags: []string{}})

Every field of a canonical model is populated: axis labels fall back to
DefaultXMin / DefaultXMax / DefaultYMin / DefaultYMax and visibility to
VisibilityPublic. Canonical models are produced by the sanitize package only.

Use Clone before handing a model to another owner:

	snapshot := m.Clone()

# Share Payload

SharePayload is the projection of a MapModel that is sent over the wire.
SharedPoint has no ImageData field, so embedded images cannot be serialized
into a share by construction.

# Share Records

ShareRecord is the server-side row. DeleteKey and IP are tagged json:"-" and
never leave the server after creation.

# Errors

	*ValidationError   malformed or out-of-bounds field (400)
	ErrNotFound        unknown share id or wrong delete key (404)
	*RateLimitError    budget exceeded, matches ErrRateLimited (429)
	ErrServerBusy      rate limit lock unavailable (503)
	ErrQuotaExceeded   local storage full
	ErrNetwork         share store unreachable

IsTransient groups the last three.
*/
package models
