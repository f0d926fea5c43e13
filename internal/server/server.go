// Package server exposes the aggregation clients over a local HTTP API,
// intended for dashboards that poll the same reports the CLI prints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/webpulse/gapctl/internal/cache"
	"github.com/webpulse/gapctl/internal/google/analytics"
	"github.com/webpulse/gapctl/internal/google/merchant"
	"github.com/webpulse/gapctl/internal/google/searchconsole"
	"github.com/webpulse/gapctl/internal/transport"
)

// AnalyticsService is the slice of the Analytics client the server uses.
type AnalyticsService interface {
	RunReport(ctx context.Context, req analytics.ReportRequest) (json.RawMessage, error)
	AccountSummaries(ctx context.Context, limit int) ([]json.RawMessage, error)
}

// SearchService is the slice of the Search Console client the server uses.
type SearchService interface {
	Query(ctx context.Context, req searchconsole.QueryRequest) (json.RawMessage, error)
	ListSites(ctx context.Context) (json.RawMessage, error)
}

// MerchantService is the slice of the Merchant Center client the server
// uses.
type MerchantService interface {
	FeedSummary(ctx context.Context, merchantID string) (*merchant.FeedSummary, error)
	ListProducts(ctx context.Context, merchantID, pageToken string) (*merchant.ProductsPage, error)
}

// Options wires the server to its dependencies.
type Options struct {
	Addr      string
	Logger    *slog.Logger
	Analytics AnalyticsService
	Search    SearchService
	Merchant  MerchantService
	Caches    map[string]*cache.Cache
}

// Server is the HTTP surface over the aggregation clients.
type Server struct {
	echo   *echo.Echo
	addr   string
	logger *slog.Logger
	opts   Options
}

// New builds the server with routing and middleware installed.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(Recovery(opts.Logger))
	e.Use(RequestLog(opts.Logger))
	e.Use(Metrics())

	s := &Server{echo: e, addr: opts.Addr, logger: opts.Logger, opts: opts}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/analytics/report", s.analyticsReport)
	v1.GET("/analytics/summaries", s.analyticsSummaries)
	v1.POST("/search/query", s.searchQuery)
	v1.GET("/search/sites", s.searchSites)
	v1.GET("/merchant/summary", s.merchantSummary)
	v1.GET("/merchant/products", s.merchantProducts)
	v1.GET("/cache/stats", s.cacheStats)
	v1.POST("/cache/clear", s.cacheClear)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on %s: %w", s.addr, err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// writeError maps upstream failures onto the response: a Google API
// error keeps its original status and message, everything else is a 502
// because the upstream call is what failed, not this process.
func writeError(c echo.Context, err error) error {
	var apiErr *transport.APIError
	if errors.As(err, &apiErr) {
		body := map[string]string{"error": apiErr.Message}
		if apiErr.Hint != "" {
			body["hint"] = apiErr.Hint
		}
		return c.JSON(apiErr.Status, body)
	}

	return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
}

type reportRequestBody struct {
	PropertyID      string          `json:"propertyId"`
	Metrics         []string        `json:"metrics"`
	Dimensions      []string        `json:"dimensions"`
	StartDate       string          `json:"startDate"`
	EndDate         string          `json:"endDate"`
	Limit           int             `json:"limit"`
	DimensionFilter json.RawMessage `json:"dimensionFilter"`
}

func (s *Server) analyticsReport(c echo.Context) error {
	var body reportRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	raw, err := s.opts.Analytics.RunReport(c.Request().Context(), analytics.ReportRequest{
		PropertyID:      body.PropertyID,
		Metrics:         body.Metrics,
		Dimensions:      body.Dimensions,
		StartDate:       body.StartDate,
		EndDate:         body.EndDate,
		Limit:           body.Limit,
		DimensionFilter: body.DimensionFilter,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (s *Server) analyticsSummaries(c echo.Context) error {
	summaries, err := s.opts.Analytics.AccountSummaries(c.Request().Context(), 0)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"accountSummaries": summaries})
}

type searchQueryBody struct {
	SiteURL    string          `json:"siteUrl"`
	StartDate  string          `json:"startDate"`
	EndDate    string          `json:"endDate"`
	Dimensions []string        `json:"dimensions"`
	RowLimit   int             `json:"rowLimit"`
	StartRow   int             `json:"startRow"`
	Filters    json.RawMessage `json:"dimensionFilterGroups"`
}

func (s *Server) searchQuery(c echo.Context) error {
	var body searchQueryBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	raw, err := s.opts.Search.Query(c.Request().Context(), searchconsole.QueryRequest{
		SiteURL:    body.SiteURL,
		StartDate:  body.StartDate,
		EndDate:    body.EndDate,
		Dimensions: body.Dimensions,
		RowLimit:   body.RowLimit,
		StartRow:   body.StartRow,
		Filters:    body.Filters,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (s *Server) searchSites(c echo.Context) error {
	raw, err := s.opts.Search.ListSites(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (s *Server) merchantSummary(c echo.Context) error {
	summary, err := s.opts.Merchant.FeedSummary(c.Request().Context(), c.QueryParam("merchantId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) merchantProducts(c echo.Context) error {
	page, err := s.opts.Merchant.ListProducts(
		c.Request().Context(),
		c.QueryParam("merchantId"),
		c.QueryParam("pageToken"),
	)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) cacheStats(c echo.Context) error {
	stats := make(map[string]cache.Stats, len(s.opts.Caches))
	for name, cc := range s.opts.Caches {
		stats[name] = cc.Stats()
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) cacheClear(c echo.Context) error {
	cleared := make(map[string]int, len(s.opts.Caches))
	for name, cc := range s.opts.Caches {
		cleared[name] = cc.Clear()
	}
	return c.JSON(http.StatusOK, map[string]any{"cleared": cleared})
}
