// Package external is the boundary between recipebox and remote HTTP
// services: the content generator and, on devices, the recipebox API itself.
// All outbound calls go through BaseClient, which applies a circuit breaker,
// request correlation headers and uniform error mapping.
//
// BaseClient makes exactly one attempt per call. Callers that want to retry
// re-invoke the operation themselves.
package external

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"recipebox/internal/types"
)

// BreakerSettings tunes the circuit breaker wrapped by BaseClient.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker once exceeded.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
}

// DefaultBreakerSettings returns the settings used by production clients.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// BaseClient wraps an *http.Client with a circuit breaker. Provider clients
// embed or hold a BaseClient to inherit this behavior.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	userAgent string
}

// NewBaseClient creates a BaseClient whose breaker is named breakerName.
func NewBaseClient(httpClient *http.Client, breakerName string, settings BreakerSettings, userAgent string) *BaseClient {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
	return NewBaseClientWithBreaker(httpClient, cb, userAgent)
}

// NewBaseClientWithBreaker creates a BaseClient with a caller-provided breaker.
func NewBaseClientWithBreaker(httpClient *http.Client, breaker *gobreaker.CircuitBreaker[*http.Response], userAgent string) *BaseClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &BaseClient{
		client:    httpClient,
		breaker:   breaker,
		userAgent: userAgent,
	}
}

// Do executes req once through the circuit breaker.
//
// Responses with status below 500 other than 429 are returned as-is and the
// caller closes the body. A 429, any 5xx, a transport error or an open
// breaker yields a *types.AppError whose Details carry the HTTP status when
// one was received.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if reqID := types.GetRequestID(req.Context()); reqID != "" {
		req.Header.Set("X-Request-Id", reqID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		r, doErr := c.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
			return r, fmt.Errorf("upstream returned %d", r.StatusCode)
		}
		return r, nil
	})
	if err == nil {
		return resp, nil
	}
	var body []byte
	if resp != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
	}
	return nil, c.mapError(resp, body, err)
}

// maxErrorBody caps how much of a failed response is kept for diagnostics.
const maxErrorBody = 4 << 10

// ErrorBody returns the response body captured on a 429 or 5xx, if any.
func ErrorBody(err error) []byte {
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Details == nil {
		return nil
	}
	b, _ := appErr.Details["body"].([]byte)
	return b
}

// BreakerState reports the breaker's current state for health output.
func (c *BaseClient) BreakerState() string {
	return c.breaker.State().String()
}

// mapError translates transport failures into AppErrors.
func (c *BaseClient) mapError(resp *http.Response, body []byte, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			"circuit breaker is open; upstream service unavailable",
			err,
		).WithDetails(map[string]any{"breaker": c.breaker.Name()})
	}

	if resp != nil {
		details := map[string]any{"status": resp.StatusCode}
		if len(body) > 0 {
			details["body"] = body
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return types.NewAppErrorWithDetails(types.ErrCodeUpstreamRateLimited,
				"upstream rate limit exceeded", err, details)
		}
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("upstream returned %d", resp.StatusCode), err, details)
	}

	return types.NewAppError(types.ErrCodeUpstreamUnavailable, "upstream request failed", err)
}

// StatusOf extracts the HTTP status recorded by mapError, or 0.
func StatusOf(err error) int {
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Details == nil {
		return 0
	}
	status, _ := appErr.Details["status"].(int)
	return status
}
