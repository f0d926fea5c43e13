// Package transport implements the shared request layer for all Google
// API clients: bearer-token-authenticated JSON HTTP with a per-request
// timeout, client-side rate limiting, and bounded retry with exponential
// backoff on transient failures.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/webpulse/gapctl/internal/metrics"
)

const (
	// DefaultTimeout bounds each individual request attempt.
	DefaultTimeout = 30 * time.Second

	// defaultMaxRetries is the fixed retry budget: 2 retries, 3 attempts.
	defaultMaxRetries = 2
)

// TokenProvider yields a valid OAuth access token. The executor asks for
// a token before every attempt, since a long retry sequence may cross an
// expiry boundary.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Executor issues JSON requests against one Google API on behalf of one
// service client, retrying transient failures with exponential backoff.
type Executor struct {
	service string
	tokens  TokenProvider
	client  *http.Client
	timeout time.Duration
	retries int
	limiter *RateLimiter
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures the Executor.
type Option func(*Executor)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) {
		e.client = c
	}
}

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxRetries overrides the retry budget.
func WithMaxRetries(n int) Option {
	return func(e *Executor) {
		e.retries = n
	}
}

// WithRateLimiter injects a client-side rate limiter consulted before
// every attempt.
func WithRateLimiter(r *RateLimiter) Option {
	return func(e *Executor) {
		e.limiter = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithSleepFunc overrides the backoff sleep for testing.
func WithSleepFunc(f func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		e.sleep = f
	}
}

// New creates an Executor for the named service. The service name labels
// metrics and log records.
func New(service string, tokens TokenProvider, opts ...Option) *Executor {
	e := &Executor{
		service: service,
		tokens:  tokens,
		client:  &http.Client{},
		timeout: DefaultTimeout,
		retries: defaultMaxRetries,
		logger:  slog.Default(),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Get issues a GET request and returns the raw JSON body.
func (e *Executor) Get(ctx context.Context, url string) (json.RawMessage, error) {
	return e.Do(ctx, http.MethodGet, url, nil)
}

// Post issues a POST request with a JSON body and returns the raw JSON body.
func (e *Executor) Post(ctx context.Context, url string, body any) (json.RawMessage, error) {
	return e.Do(ctx, http.MethodPost, url, body)
}

// Do executes one logical request with up to retries+1 attempts.
// Transient API errors (429/503) and network/timeout failures back off
// 2^attempt seconds (1s, 2s, ...) between attempts; any other non-2xx
// status fails immediately.
func (e *Executor) Do(ctx context.Context, method, url string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	reqID := uuid.NewString()

	for attempt := 0; ; attempt++ {
		raw, err := e.attempt(ctx, method, url, payload)
		if err == nil {
			return raw, nil
		}

		if ctx.Err() != nil {
			// The caller's context is gone; don't burn the retry budget.
			return nil, fmt.Errorf("request canceled: %w", ctx.Err())
		}

		if !retryable(err) || attempt >= e.retries {
			return nil, err
		}

		delay := time.Duration(1<<attempt) * time.Second
		metrics.APIRetriesTotal.WithLabelValues(e.service).Inc()
		e.logger.Warn("retrying request",
			"service", e.service,
			"request_id", reqID,
			"method", method,
			"attempt", attempt+1,
			"delay", delay,
			"err", err,
		)

		if serr := e.sleep(ctx, delay); serr != nil {
			return nil, fmt.Errorf("backoff interrupted: %w", serr)
		}
	}
}

// attempt performs a single HTTP exchange.
func (e *Executor) attempt(ctx context.Context, method, url string, payload []byte) (json.RawMessage, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			if errors.Is(err, ErrDailyQuotaExhausted) {
				metrics.QuotaLimitHits.WithLabelValues(e.service).Inc()
			}
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		metrics.QuotaDailyUsage.WithLabelValues(e.service).Set(float64(e.limiter.DailyCount()))
	}

	token, err := e.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting access token: %w", err)
	}

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var bodyReader io.Reader = http.NoBody
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(rctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	metrics.APICallsTotal.WithLabelValues(e.service).Inc()

	resp, err := e.client.Do(req)
	if err != nil {
		// Aborted before a response was obtained: connection failure or
		// per-attempt timeout. Both are retryable.
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	metrics.APIRequestDuration.
		WithLabelValues(e.service, method).
		Observe(time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return json.RawMessage(respBody), nil
}

// retryable classifies failures: transient API errors and network
// failures are retried, everything else is terminal.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}

	var netErr *NetworkError
	return errors.As(err, &netErr)
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
