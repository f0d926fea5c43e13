package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpulse/gapctl/internal/transport"
)

// fakeTokens is a TokenProvider returning a fixed token and counting calls.
type fakeTokens struct {
	token string
	calls atomic.Int32
	err   error
}

func (f *fakeTokens) Token(_ context.Context) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

// recordingSleep captures backoff delays without actually sleeping.
func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestExecutor_Do_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"rows":[{"v":1}]}`))
		}),
	)
	defer srv.Close()

	exec := transport.New("analytics", &fakeTokens{token: "tok-1"})

	raw, err := exec.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	var parsed map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &parsed))
	assert.Contains(t, parsed, "rows")
}

func TestExecutor_Do_PostSendsJSONBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "sessions", body["metric"])

			_, _ = w.Write([]byte(`{}`))
		}),
	)
	defer srv.Close()

	exec := transport.New("analytics", &fakeTokens{token: "tok-1"})

	_, err := exec.Post(context.Background(), srv.URL, map[string]string{"metric": "sessions"})
	require.NoError(t, err)
}

func TestExecutor_Do_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		failStatus   int
		failures     int
		wantAttempts int32
		wantDelays   []time.Duration
	}{
		{
			name:         "429 once",
			failStatus:   http.StatusTooManyRequests,
			failures:     1,
			wantAttempts: 2,
			wantDelays:   []time.Duration{time.Second},
		},
		{
			name:         "503 twice",
			failStatus:   http.StatusServiceUnavailable,
			failures:     2,
			wantAttempts: 3,
			wantDelays:   []time.Duration{time.Second, 2 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var hits atomic.Int32
			srv := httptest.NewServer(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					if int(hits.Add(1)) <= tt.failures {
						w.WriteHeader(tt.failStatus)
						return
					}
					_, _ = w.Write([]byte(`{"ok":true}`))
				}),
			)
			defer srv.Close()

			var delays []time.Duration
			tokens := &fakeTokens{token: "tok-1"}
			exec := transport.New("merchant", tokens,
				transport.WithSleepFunc(recordingSleep(&delays)),
			)

			_, err := exec.Get(context.Background(), srv.URL)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAttempts, hits.Load())
			assert.Equal(t, tt.wantDelays, delays)

			// A fresh token is obtained for every attempt.
			assert.Equal(t, tt.wantAttempts, tokens.calls.Load())
		})
	}
}

func TestExecutor_Do_BudgetExhausted(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}),
	)
	defer srv.Close()

	var delays []time.Duration
	exec := transport.New("merchant", &fakeTokens{token: "tok-1"},
		transport.WithSleepFunc(recordingSleep(&delays)),
	)

	_, err := exec.Get(context.Background(), srv.URL)
	require.Error(t, err)

	var apiErr *transport.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)

	// 2 retries: 3 total attempts, backoff 1s then 2s.
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestExecutor_Do_TerminalStatusNotRetried(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
	}{
		{name: "400 bad request", status: http.StatusBadRequest},
		{name: "403 forbidden", status: http.StatusForbidden},
		{name: "404 not found", status: http.StatusNotFound},
		{name: "500 internal", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var hits atomic.Int32
			srv := httptest.NewServer(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					hits.Add(1)
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(`{"error":{"message":"denied"}}`))
				}),
			)
			defer srv.Close()

			var delays []time.Duration
			exec := transport.New("searchconsole", &fakeTokens{token: "tok-1"},
				transport.WithSleepFunc(recordingSleep(&delays)),
			)

			_, err := exec.Get(context.Background(), srv.URL)
			require.Error(t, err)

			var apiErr *transport.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)

			// Terminal: exactly one attempt, zero backoffs.
			assert.Equal(t, int32(1), hits.Load())
			assert.Empty(t, delays)
		})
	}
}

func TestExecutor_Do_ExtractsGoogleErrorMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(
				`{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`,
			))
		}),
	)
	defer srv.Close()

	exec := transport.New("analytics", &fakeTokens{token: "tok-1"})

	_, err := exec.Get(context.Background(), srv.URL)
	var apiErr *transport.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "The caller does not have permission", apiErr.Message)
}

func TestExecutor_Do_RawBodyWhenNotJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("plain text failure"))
		}),
	)
	defer srv.Close()

	exec := transport.New("analytics", &fakeTokens{token: "tok-1"})

	_, err := exec.Get(context.Background(), srv.URL)
	var apiErr *transport.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "plain text failure", apiErr.Message)
}

func TestExecutor_Do_NetworkFailureRetried(t *testing.T) {
	t.Parallel()

	// A closed server yields connection-refused on every attempt.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	var delays []time.Duration
	tokens := &fakeTokens{token: "tok-1"}
	exec := transport.New("merchant", tokens,
		transport.WithSleepFunc(recordingSleep(&delays)),
	)

	_, err := exec.Get(context.Background(), url)
	require.Error(t, err)

	var netErr *transport.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
	assert.Equal(t, int32(3), tokens.calls.Load())
}

func TestExecutor_Do_TimeoutRetried(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) == 1 {
				time.Sleep(200 * time.Millisecond)
				return
			}
			_, _ = w.Write([]byte(`{}`))
		}),
	)
	defer srv.Close()

	var delays []time.Duration
	exec := transport.New("analytics", &fakeTokens{token: "tok-1"},
		transport.WithTimeout(50*time.Millisecond),
		transport.WithSleepFunc(recordingSleep(&delays)),
	)

	_, err := exec.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, []time.Duration{time.Second}, delays)
}

func TestExecutor_Do_TokenFailureTerminal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			t.Error("no request should reach the API when the token fails")
		}),
	)
	defer srv.Close()

	tokenErr := errors.New("re-authentication required")
	exec := transport.New("analytics", &fakeTokens{err: tokenErr})

	_, err := exec.Get(context.Background(), srv.URL)
	require.ErrorIs(t, err, tokenErr)
}

func TestExecutor_Do_DailyQuotaTerminal(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}),
	)
	defer srv.Close()

	limiter := transport.NewRateLimiter(100, 100, 1)
	exec := transport.New("merchant", &fakeTokens{token: "tok-1"},
		transport.WithRateLimiter(limiter),
	)

	_, err := exec.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	_, err = exec.Get(context.Background(), srv.URL)
	require.ErrorIs(t, err, transport.ErrDailyQuotaExhausted)
}
