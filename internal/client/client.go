// Package client talks to the generation API on behalf of the report form and the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m1ll3r1337/incident-report-service/internal/domain/report"
	"github.com/m1ll3r1337/incident-report-service/internal/errs"
	"github.com/m1ll3r1337/incident-report-service/internal/generation"
)

const (
	TextPath  = "/api/generate-text"
	ImagePath = "/api/generate-image"
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout on a copy of the current HTTP client, so a shared
// client such as http.DefaultClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

type forwardedForKey struct{}

// WithForwardedFor marks ctx as acting for the end user at ip. Requests made with that
// context carry it in X-Forwarded-For so the API can rate limit per end user.
func WithForwardedFor(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, forwardedForKey{}, ip)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError mirrors the JSON error body written by the API's error middleware.
type apiError struct {
	Error  string            `json:"error"`
	Kind   errs.Kind         `json:"kind"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

// GenerateText posts the report and returns the generated text. bearer may be empty.
func (c *Client) GenerateText(ctx context.Context, r report.IncidentReport, bearer string) (string, error) {
	const op = "client.generate_text"

	var out generation.TextResponse
	if err := c.post(ctx, TextPath, r, bearer, &out); err != nil {
		return "", errs.Wrap(op, err)
	}
	return out.Text, nil
}

func (c *Client) GenerateImages(ctx context.Context, req generation.ImageRequest) ([]string, error) {
	const op = "client.generate_images"

	var out generation.ImageResponse
	if err := c.post(ctx, ImagePath, req, "", &out); err != nil {
		return nil, errs.Wrap(op, err)
	}
	return out.Images, nil
}

func (c *Client) post(ctx context.Context, path string, in any, bearer string, out any) error {
	const op = "client.post"

	body, err := json.Marshal(in)
	if err != nil {
		return errs.E(errs.KindInternal, "ENCODE_FAILED", op, "encode request", nil, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errs.E(errs.KindInternal, "REQUEST_FAILED", op, "build request", nil, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if ip, _ := ctx.Value(forwardedForKey{}).(string); ip != "" {
		req.Header.Set("X-Forwarded-For", ip)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.E(errs.KindUnavailable, "TRANSPORT_FAILED", op, "request failed", nil, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errs.E(errs.KindUnavailable, "TRANSPORT_FAILED", op, "read response", nil, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(op, resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errs.E(errs.KindUnavailable, "BAD_RESPONSE", op, "decode response", nil, err)
	}
	return nil
}

func decodeError(op string, status int, raw []byte) error {
	var ae apiError
	_ = json.Unmarshal(raw, &ae)

	msg := ae.Error
	if msg == "" {
		msg = fmt.Sprintf("unexpected status %d", status)
	}

	switch {
	case status == http.StatusBadRequest:
		return errs.E(errs.KindInvalid, orDefault(ae.Code, "INVALID"), op, msg, ae.Fields, nil)
	case status == http.StatusUnauthorized:
		return errs.E(errs.KindUnauthorized, orDefault(ae.Code, "UNAUTHORIZED"), op, msg, nil, nil)
	case status == http.StatusConflict:
		return errs.E(errs.KindConflict, orDefault(ae.Code, "CONFLICT"), op, msg, nil, nil)
	case status == http.StatusTooManyRequests:
		return errs.E(errs.KindRateLimited, orDefault(ae.Code, "RATE_LIMITED"), op, msg, nil, nil)
	default:
		return errs.E(errs.KindUnavailable, orDefault(ae.Code, fmt.Sprintf("HTTP_%d", status)), op, msg, nil, nil)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
