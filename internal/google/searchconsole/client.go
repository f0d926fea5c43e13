// Package searchconsole provides a read-only client for the Google
// Search Console API.
package searchconsole

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/webpulse/gapctl/internal/cache"
	"github.com/webpulse/gapctl/internal/transport"
)

// Scope is the OAuth scope this client requires.
const Scope = "https://www.googleapis.com/auth/webmasters.readonly"

const (
	defaultBaseURL = "https://searchconsole.googleapis.com/webmasters/v3"

	ttlQuery = 5 * time.Minute
	ttlSites = time.Hour

	defaultRowLimit = 25
)

// ErrNoSiteURL is returned when a call omits the site URL and no default
// is configured.
var ErrNoSiteURL = errors.New(
	"no site URL supplied and search_console.site_url is not configured",
)

// Executor issues authenticated JSON requests.
type Executor interface {
	Get(ctx context.Context, url string) (json.RawMessage, error)
	Post(ctx context.Context, url string, body any) (json.RawMessage, error)
}

// Client is the Search Console service client.
type Client struct {
	exec    Executor
	cache   *cache.Cache
	siteURL string
	baseURL string
	noCache bool
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDefaultSite sets the site URL used when a call omits one.
func WithDefaultSite(site string) ClientOption {
	return func(c *Client) {
		c.siteURL = site
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithCacheBypass makes every call skip the response cache.
func WithCacheBypass(bypass bool) ClientOption {
	return func(c *Client) {
		c.noCache = bypass
	}
}

// NewClient creates a Search Console client.
func NewClient(exec Executor, responses *cache.Cache, opts ...ClientOption) *Client {
	c := &Client{
		exec:    exec,
		cache:   responses,
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) resolveSite(site string) (string, error) {
	if site != "" {
		return site, nil
	}
	if c.siteURL != "" {
		return c.siteURL, nil
	}
	return "", ErrNoSiteURL
}

func (c *Client) fetchOpts(ttl time.Duration) cache.FetchOptions {
	return cache.FetchOptions{TTL: ttl, Bypass: c.noCache}
}

func (c *Client) siteHints(err error, site string) error {
	err = transport.HintFor(err, http.StatusForbidden,
		"verify the authenticated account is a verified owner or user of "+site)
	return transport.HintFor(err, http.StatusNotFound,
		"check the site URL: "+site+" (must match the Search Console property exactly)")
}

// QueryRequest holds the caller-supplied parameters for Query.
type QueryRequest struct {
	SiteURL    string
	StartDate  string
	EndDate    string
	Dimensions []string
	RowLimit   int
	StartRow   int
	Filters    json.RawMessage // opaque dimensionFilterGroups, passed through
}

// Query executes a search analytics query.
func (c *Client) Query(ctx context.Context, req QueryRequest) (json.RawMessage, error) {
	site, err := c.resolveSite(req.SiteURL)
	if err != nil {
		return nil, err
	}

	rowLimit := req.RowLimit
	if rowLimit <= 0 {
		rowLimit = defaultRowLimit
	}

	payload := map[string]any{
		"startDate": req.StartDate,
		"endDate":   req.EndDate,
		"rowLimit":  rowLimit,
	}
	if len(req.Dimensions) > 0 {
		payload["dimensions"] = req.Dimensions
	}
	if req.StartRow > 0 {
		payload["startRow"] = req.StartRow
	}
	if len(req.Filters) > 0 {
		payload["dimensionFilterGroups"] = req.Filters
	}

	key := cache.Key("searchconsole.query", map[string]any{
		"site":       site,
		"startDate":  req.StartDate,
		"endDate":    req.EndDate,
		"dimensions": req.Dimensions,
		"rowLimit":   rowLimit,
		"startRow":   req.StartRow,
		"filters":    rawOrNil(req.Filters),
	})

	result, err := cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlQuery),
		func(ctx context.Context) (json.RawMessage, error) {
			u := fmt.Sprintf("%s/sites/%s/searchAnalytics/query", c.baseURL, url.PathEscape(site))
			return c.exec.Post(ctx, u, payload)
		})
	if err != nil {
		return nil, c.siteHints(err, site)
	}
	return result, nil
}

// ListSites returns the sites the authenticated user can access. The
// site list changes rarely, so it is cached for an hour.
func (c *Client) ListSites(ctx context.Context) (json.RawMessage, error) {
	key := cache.Key("searchconsole.listSites", nil)

	return cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlSites),
		func(ctx context.Context) (json.RawMessage, error) {
			return c.exec.Get(ctx, c.baseURL+"/sites")
		})
}

// ListSitemaps returns the sitemaps submitted for a site.
func (c *Client) ListSitemaps(ctx context.Context, siteURL string) (json.RawMessage, error) {
	site, err := c.resolveSite(siteURL)
	if err != nil {
		return nil, err
	}

	key := cache.Key("searchconsole.listSitemaps", map[string]any{"site": site})

	result, err := cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlQuery),
		func(ctx context.Context) (json.RawMessage, error) {
			u := fmt.Sprintf("%s/sites/%s/sitemaps", c.baseURL, url.PathEscape(site))
			return c.exec.Get(ctx, u)
		})
	if err != nil {
		return nil, c.siteHints(err, site)
	}
	return result, nil
}

// TopQueries is a convenience preset: search analytics by query,
// ordered by clicks (the API's default ordering).
func (c *Client) TopQueries(ctx context.Context, siteURL, startDate, endDate string, limit int) (json.RawMessage, error) {
	return c.Query(ctx, QueryRequest{
		SiteURL:    siteURL,
		StartDate:  startDate,
		EndDate:    endDate,
		Dimensions: []string{"query"},
		RowLimit:   limit,
	})
}

// TopPages is a convenience preset: search analytics by page.
func (c *Client) TopPages(ctx context.Context, siteURL, startDate, endDate string, limit int) (json.RawMessage, error) {
	return c.Query(ctx, QueryRequest{
		SiteURL:    siteURL,
		StartDate:  startDate,
		EndDate:    endDate,
		Dimensions: []string{"page"},
		RowLimit:   limit,
	})
}

func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
