// Package apiclient is the device-side client for the recipebox HTTP API. It
// implements persistence.RemoteStore and generation.Generator (through the
// preview endpoints, which neither count nor store anything).
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"recipebox/internal/external"
	"recipebox/internal/generation"
	"recipebox/internal/persistence"
	"recipebox/internal/types"
)

const maxResponseBody = 4 << 20

// Client talks to one recipebox API deployment.
type Client struct {
	base    *external.BaseClient
	baseURL string
	logger  *slog.Logger
}

var (
	_ persistence.RemoteStore = (*Client)(nil)
	_ generation.Generator    = (*Client)(nil)
)

// New creates a Client. baseURL is the server origin, e.g.
// "https://api.recipebox.app".
func New(base *external.BaseClient, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:    base,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// errorEnvelope mirrors core.APIErrorResponse.
type errorEnvelope struct {
	Error struct {
		Code    types.ErrorCode `json:"code"`
		Message string          `json:"message"`
		Details map[string]any  `json:"details,omitempty"`
	} `json:"error"`
}

// call performs one request. token may be empty for public endpoints. out,
// when non-nil, receives the decoded 2xx body.
func (c *Client) call(ctx context.Context, token types.SecretString, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode request", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token.Unmask())
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return recoverServerError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "failed to read response", err)
	}

	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "unreadable response from server", err)
	}
	return nil
}

// decodeError turns a 4xx body into the server's AppError.
func decodeError(status int, raw []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Code != "" {
		return types.NewAppErrorWithDetails(env.Error.Code, env.Error.Message, nil, env.Error.Details)
	}
	code := types.ErrCodeInternalUnexpected
	switch status {
	case http.StatusUnauthorized:
		code = types.ErrCodeAuthTokenInvalid
	case http.StatusBadRequest:
		code = types.ErrCodeValidationInvalidValue
	}
	return types.NewAppErrorWithDetails(code, fmt.Sprintf("server returned %d", status), nil,
		map[string]any{"status": status})
}

// recoverServerError restores the server's error code from a captured 5xx
// body so callers see storage_unavailable or a generator code instead of a
// generic upstream error.
func recoverServerError(err error) error {
	raw := external.ErrorBody(err)
	if raw == nil {
		return err
	}
	var env errorEnvelope
	if json.Unmarshal(raw, &env) != nil || env.Error.Code == "" {
		return err
	}
	return types.NewAppErrorWithDetails(env.Error.Code, env.Error.Message, err, env.Error.Details)
}

func itemPath(collection, id string) string {
	return "/v1/" + collection + "/" + url.PathEscape(id)
}
