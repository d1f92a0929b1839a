// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/grazios/oshijiku/models"
	"github.com/grazios/oshijiku/sanitize"
)

// Entry is what a session was opened with: a share id (?s=), an embedded
// payload (?data=), or neither.
type Entry struct {
	ShareID  string
	Embedded string
}

// ParseEntry reads the entry context from a full URL, a bare query string,
// or a bare share id.
func ParseEntry(raw string) (Entry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Entry{}, nil
	}
	if !strings.ContainsAny(raw, "?=/") {
		return Entry{ShareID: raw}, nil
	}

	query := raw
	if strings.Contains(raw, "?") {
		u, err := url.Parse(raw)
		if err != nil {
			return Entry{}, fmt.Errorf("parse entry url: %w", err)
		}
		query = u.RawQuery
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return Entry{}, fmt.Errorf("parse entry query: %w", err)
	}
	return Entry{ShareID: values.Get("s"), Embedded: values.Get("data")}, nil
}

// EncodeEmbedded serializes the share projection of m as standard base64
// JSON. Images never travel in a URL.
func EncodeEmbedded(m models.MapModel) (string, error) {
	data, err := json.Marshal(sanitize.BuildSharePayload(m))
	if err != nil {
		return "", fmt.Errorf("encode embedded payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeEmbedded reverses EncodeEmbedded into untrusted raw JSON. Spaces are
// read as '+', which query decoding produces from unescaped links.
func DecodeEmbedded(s string) (any, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "+")

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Unpadded and URL-safe variants show up in hand-edited links
		var rerr error
		if data, rerr = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); rerr != nil {
			if data, rerr = base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); rerr != nil {
				return nil, fmt.Errorf("decode embedded payload: %w", err)
			}
		}
	}

	raw, err := sanitize.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parse embedded payload: %w", err)
	}
	return raw, nil
}

// EmbedURL builds base?data=<payload>, keeping any path on base.
func EmbedURL(base string, m models.MapModel) (string, error) {
	encoded, err := EncodeEmbedded(m)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u.RawQuery = url.Values{"data": {encoded}}.Encode()
	u.Fragment = ""
	return u.String(), nil
}
