// Package external contains clients for third-party services. BaseClient is
// the shared anti-corruption layer: every outbound call goes through a
// circuit breaker and bounded retries so a misbehaving vendor cannot take
// the API down with it.
package external

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	defaultMaxRetries  = 2
	defaultRetryBase   = 250 * time.Millisecond
	maxResponseBodyLen = 4 << 20 // 4 MB
)

// Response is the decoded outcome of an outbound HTTP call.
type Response struct {
	StatusCode int
	Body       []byte
}

// BaseClient wraps an http.Client with a circuit breaker and retry policy.
// Vendor-specific clients embed it and supply request construction.
type BaseClient struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*Response]
	logger     *slog.Logger
	maxRetries int
	retryBase  time.Duration
}

// NewBaseClient creates a BaseClient named for the vendor it fronts. The
// breaker opens after a run of consecutive failures and probes again after
// a cooldown.
func NewBaseClient(name string, timeout time.Duration, logger *slog.Logger) *BaseClient {
	if logger == nil {
		logger = slog.Default()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"client", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &BaseClient{
		name:       name,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker[*Response](settings),
		logger:     logger,
		maxRetries: defaultMaxRetries,
		retryBase:  defaultRetryBase,
	}
}

// Do executes an outbound request through the breaker with retries. The
// build callback constructs a fresh request per attempt since request
// bodies are single-use. Server errors (5xx), 429s, and transport errors
// are retried with jittered exponential backoff; other statuses return
// immediately.
func (c *BaseClient) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*Response, error) {
	return c.breaker.Execute(func() (*Response, error) {
		var lastErr error

		for attempt := 0; attempt <= c.maxRetries; attempt++ {
			if attempt > 0 {
				if err := sleepContext(ctx, c.backoff(attempt)); err != nil {
					return nil, err
				}
			}

			resp, retryable, err := c.attempt(ctx, build)
			if err == nil {
				return resp, nil
			}
			lastErr = err
			if !retryable {
				break
			}

			c.logger.Warn("outbound request failed, retrying",
				"client", c.name,
				"attempt", attempt+1,
				"error", err,
			)
		}

		return nil, lastErr
	})
}

func (c *BaseClient) attempt(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*Response, bool, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("building request: %w", err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBodyLen))
	if err != nil {
		return nil, true, fmt.Errorf("reading %s response: %w", c.name, err)
	}

	resp := &Response{StatusCode: httpResp.StatusCode, Body: body}

	if httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, true, &StatusError{Client: c.name, StatusCode: httpResp.StatusCode, Body: body}
	}

	return resp, false, nil
}

func (c *BaseClient) backoff(attempt int) time.Duration {
	backoff := c.retryBase << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(c.retryBase)))
	return backoff + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StatusError reports a non-success HTTP status from a vendor.
type StatusError struct {
	Client     string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Client, e.StatusCode)
}
