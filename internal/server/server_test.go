package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpulse/gapctl/internal/cache"
	"github.com/webpulse/gapctl/internal/google/analytics"
	"github.com/webpulse/gapctl/internal/google/merchant"
	"github.com/webpulse/gapctl/internal/google/searchconsole"
	"github.com/webpulse/gapctl/internal/server"
	"github.com/webpulse/gapctl/internal/transport"
)

const (
	echoContentType = "Content-Type"
	echoJSON        = "application/json"
)

type stubAnalytics struct {
	report    json.RawMessage
	reportErr error
	summaries []json.RawMessage
	gotReq    analytics.ReportRequest
}

func (s *stubAnalytics) RunReport(_ context.Context, req analytics.ReportRequest) (json.RawMessage, error) {
	s.gotReq = req
	return s.report, s.reportErr
}

func (s *stubAnalytics) AccountSummaries(context.Context, int) ([]json.RawMessage, error) {
	return s.summaries, nil
}

type stubSearch struct {
	result json.RawMessage
	sites  json.RawMessage
	err    error
}

func (s *stubSearch) Query(context.Context, searchconsole.QueryRequest) (json.RawMessage, error) {
	return s.result, s.err
}

func (s *stubSearch) ListSites(context.Context) (json.RawMessage, error) {
	return s.sites, s.err
}

type stubMerchant struct {
	summary *merchant.FeedSummary
	page    *merchant.ProductsPage
	err     error
}

func (s *stubMerchant) FeedSummary(context.Context, string) (*merchant.FeedSummary, error) {
	return s.summary, s.err
}

func (s *stubMerchant) ListProducts(context.Context, string, string) (*merchant.ProductsPage, error) {
	return s.page, s.err
}

func newTestServer(t *testing.T, opts server.Options) http.Handler {
	t.Helper()
	if opts.Analytics == nil {
		opts.Analytics = &stubAnalytics{}
	}
	if opts.Search == nil {
		opts.Search = &stubSearch{}
	}
	if opts.Merchant == nil {
		opts.Merchant = &stubMerchant{}
	}
	return server.New(opts).Handler()
}

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Options{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_AnalyticsReport(t *testing.T) {
	t.Parallel()

	stub := &stubAnalytics{report: json.RawMessage(`{"rowCount":9}`)}
	h := newTestServer(t, server.Options{Analytics: stub})

	body := `{"metrics":["sessions"],"startDate":"2026-01-01","endDate":"2026-01-31","limit":10}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/report", strings.NewReader(body))
	req.Header.Set(echoContentType, echoJSON)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rowCount":9}`, rec.Body.String())
	assert.Equal(t, []string{"sessions"}, stub.gotReq.Metrics)
	assert.Equal(t, 10, stub.gotReq.Limit)
}

func TestServer_AnalyticsReport_UpstreamErrorKeepsStatus(t *testing.T) {
	t.Parallel()

	stub := &stubAnalytics{
		reportErr: &transport.APIError{
			Status:  http.StatusForbidden,
			Message: "permission denied",
			Hint:    "verify the authenticated account has access to property 999",
		},
	}
	h := newTestServer(t, server.Options{Analytics: stub})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/report", strings.NewReader(`{}`))
	req.Header.Set(echoContentType, echoJSON)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "permission denied", body["error"])
	assert.Contains(t, body["hint"], "999")
}

func TestServer_AnalyticsReport_NonAPIErrorIsBadGateway(t *testing.T) {
	t.Parallel()

	stub := &stubAnalytics{reportErr: errors.New("dial tcp: connection refused")}
	h := newTestServer(t, server.Options{Analytics: stub})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analytics/report", strings.NewReader(`{}`))
	req.Header.Set(echoContentType, echoJSON)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServer_SearchQuery(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Options{
		Search: &stubSearch{result: json.RawMessage(`{"rows":[{"clicks":3}]}`)},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search/query",
		strings.NewReader(`{"startDate":"2026-01-01","endDate":"2026-01-31"}`))
	req.Header.Set(echoContentType, echoJSON)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rows":[{"clicks":3}]}`, rec.Body.String())
}

func TestServer_SearchSites(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Options{
		Search: &stubSearch{sites: json.RawMessage(`{"siteEntry":[]}`)},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/sites", http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"siteEntry":[]}`, rec.Body.String())
}

func TestServer_MerchantSummary(t *testing.T) {
	t.Parallel()

	h := newTestServer(t, server.Options{
		Merchant: &stubMerchant{summary: &merchant.FeedSummary{
			TotalProducts: 540, Approved: 500, Disapproved: 30, Pending: 10, IssueCount: 45,
		}},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/merchant/summary", http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"totalProducts":540,"approved":500,"disapproved":30,"pending":10,"issueCount":45}`,
		rec.Body.String(),
	)
}

func TestServer_CacheStatsAndClear(t *testing.T) {
	t.Parallel()

	analyticsCache := cache.New("analytics", time.Minute)
	caches := map[string]*cache.Cache{"analytics": analyticsCache}

	_, err := cache.GetOrFetch(context.Background(), analyticsCache, "k", cache.FetchOptions{},
		func(context.Context) (string, error) { return "v", nil })
	require.NoError(t, err)

	h := newTestServer(t, server.Options{Caches: caches})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats["analytics"].Size)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/cache/clear", http.NoBody)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cleared":{"analytics":1}}`, rec.Body.String())
	assert.Equal(t, 0, analyticsCache.Stats().Size)
}

func TestServer_ShutdownStopsListener(t *testing.T) {
	t.Parallel()

	srv := server.New(server.Options{
		Addr:      "127.0.0.1:0",
		Analytics: &stubAnalytics{},
		Search:    &stubSearch{},
		Merchant:  &stubMerchant{},
	})

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	// Give the listener a moment to bind before shutting down.
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after shutdown")
	}
}
