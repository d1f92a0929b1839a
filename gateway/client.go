// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/grazios/oshijiku/models"
)

// ShareAPI is the remote share store.
type ShareAPI interface {
	Create(ctx context.Context, payload models.SharePayload) (models.CreateShareResponse, error)
	Fetch(ctx context.Context, shareID string) (models.FetchShareResponse, error)
	Delete(ctx context.Context, shareID, deleteKey string) error
}

const DefaultAPIURL = "https://oshijiku.com"

// Client talks to the share store over HTTP. Failed calls are never retried.
type Client struct {
	baseURL string
	origin  string
	http    *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithOrigin sets the Origin header sent on every request.
func WithOrigin(origin string) ClientOption {
	return func(c *Client) { c.origin = origin }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Create(ctx context.Context, payload models.SharePayload) (models.CreateShareResponse, error) {
	var resp models.CreateShareResponse
	err := c.do(ctx, http.MethodPost, "/api/share", payload, &resp)
	return resp, err
}

func (c *Client) Fetch(ctx context.Context, shareID string) (models.FetchShareResponse, error) {
	var resp models.FetchShareResponse
	err := c.do(ctx, http.MethodGet, "/api/share?id="+url.QueryEscape(shareID), nil, &resp)
	return resp, err
}

func (c *Client) Delete(ctx context.Context, shareID, deleteKey string) error {
	req := models.DeleteShareRequest{ShareID: shareID, DeleteKey: deleteKey}
	return c.do(ctx, http.MethodPost, "/api/share/delete", req, &models.OKResponse{})
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", models.ErrNetwork, err)
	}

	if res.StatusCode != http.StatusOK {
		return responseError(res, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// responseError maps a non-200 answer onto the error taxonomy.
func responseError(res *http.Response, body []byte) error {
	var payload models.ErrorResponse
	_ = json.Unmarshal(body, &payload)
	msg := payload.Error
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}

	switch res.StatusCode {
	case http.StatusBadRequest:
		return &models.ValidationError{Field: payload.Field, Message: msg}
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusTooManyRequests:
		rerr := &models.RateLimitError{Scope: "remote"}
		if secs, err := strconv.Atoi(res.Header.Get("Retry-After")); err == nil {
			rerr.RetryAfter = time.Duration(secs) * time.Second
		}
		return rerr
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", models.ErrServerBusy, msg)
	case http.StatusForbidden:
		return errors.New("origin not allowed by share store")
	default:
		return fmt.Errorf("share store: %d %s", res.StatusCode, msg)
	}
}
