// Package analytics provides a read-only client for the Google Analytics
// Data and Admin APIs. Report and metadata responses are treated as
// opaque JSON owned by Google; only pagination cursors are parsed.
package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/webpulse/gapctl/internal/cache"
	"github.com/webpulse/gapctl/internal/paginate"
	"github.com/webpulse/gapctl/internal/transport"
)

// Scope is the OAuth scope this client requires.
const Scope = "https://www.googleapis.com/auth/analytics.readonly"

const (
	defaultDataURL  = "https://analyticsdata.googleapis.com/v1beta"
	defaultAdminURL = "https://analyticsadmin.googleapis.com/v1beta"

	// TTLs by data volatility: realtime activity changes by the minute,
	// reports by the request window, account structure almost never.
	ttlRealtime = time.Minute
	ttlReport   = 5 * time.Minute
	ttlAdmin    = time.Hour
	ttlMetadata = 24 * time.Hour

	adminPageSize = 200
)

// ErrNoPropertyID is returned when a call omits the property id and no
// default is configured.
var ErrNoPropertyID = errors.New(
	"no property id supplied and analytics.property_id is not configured",
)

// Executor issues authenticated JSON requests.
type Executor interface {
	Get(ctx context.Context, url string) (json.RawMessage, error)
	Post(ctx context.Context, url string, body any) (json.RawMessage, error)
}

// Client is the Analytics service client. It owns one cache namespace
// and routes all network access through its executor.
type Client struct {
	exec       Executor
	cache      *cache.Cache
	propertyID string
	dataURL    string
	adminURL   string
	noCache    bool
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDefaultProperty sets the property id used when a call omits one.
func WithDefaultProperty(id string) ClientOption {
	return func(c *Client) {
		c.propertyID = id
	}
}

// WithDataURL overrides the Analytics Data API base URL.
func WithDataURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.dataURL = u
		}
	}
}

// WithAdminURL overrides the Analytics Admin API base URL.
func WithAdminURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.adminURL = u
		}
	}
}

// WithCacheBypass makes every call skip the response cache.
func WithCacheBypass(bypass bool) ClientOption {
	return func(c *Client) {
		c.noCache = bypass
	}
}

// NewClient creates an Analytics client.
func NewClient(exec Executor, responses *cache.Cache, opts ...ClientOption) *Client {
	c := &Client{
		exec:     exec,
		cache:    responses,
		dataURL:  defaultDataURL,
		adminURL: defaultAdminURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolveProperty returns the explicit property id or the configured
// default.
func (c *Client) resolveProperty(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if c.propertyID != "" {
		return c.propertyID, nil
	}
	return "", ErrNoPropertyID
}

func (c *Client) fetchOpts(ttl time.Duration) cache.FetchOptions {
	return cache.FetchOptions{TTL: ttl, Bypass: c.noCache}
}

func (c *Client) propertyHints(err error, property string) error {
	err = transport.HintFor(err, http.StatusForbidden,
		"verify the authenticated account has access to property "+property)
	return transport.HintFor(err, http.StatusNotFound,
		"check the property id: "+property)
}

// ReportRequest holds the caller-supplied parameters for RunReport.
type ReportRequest struct {
	PropertyID      string
	Metrics         []string
	Dimensions      []string
	StartDate       string
	EndDate         string
	Limit           int
	DimensionFilter json.RawMessage // opaque filter expression, passed through
}

// RunReport executes a Data API report query.
func (c *Client) RunReport(ctx context.Context, req ReportRequest) (json.RawMessage, error) {
	property, err := c.resolveProperty(req.PropertyID)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"dateRanges": []map[string]string{
			{"startDate": req.StartDate, "endDate": req.EndDate},
		},
		"metrics":    names(req.Metrics),
		"dimensions": names(req.Dimensions),
	}
	if req.Limit > 0 {
		payload["limit"] = strconv.Itoa(req.Limit)
	}
	if len(req.DimensionFilter) > 0 {
		payload["dimensionFilter"] = req.DimensionFilter
	}

	key := cache.Key("analytics.runReport", map[string]any{
		"property":   property,
		"metrics":    req.Metrics,
		"dimensions": req.Dimensions,
		"startDate":  req.StartDate,
		"endDate":    req.EndDate,
		"limit":      req.Limit,
		"filter":     rawOrNil(req.DimensionFilter),
	})

	result, err := cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlReport),
		func(ctx context.Context) (json.RawMessage, error) {
			u := fmt.Sprintf("%s/properties/%s:runReport", c.dataURL, url.PathEscape(property))
			return c.exec.Post(ctx, u, payload)
		})
	if err != nil {
		return nil, c.propertyHints(err, property)
	}
	return result, nil
}

// RealtimeRequest holds the caller-supplied parameters for
// RunRealtimeReport.
type RealtimeRequest struct {
	PropertyID string
	Metrics    []string
	Dimensions []string
	Limit      int
}

// RunRealtimeReport executes a Data API realtime query. Realtime data is
// highly dynamic, so the cache TTL is short.
func (c *Client) RunRealtimeReport(ctx context.Context, req RealtimeRequest) (json.RawMessage, error) {
	property, err := c.resolveProperty(req.PropertyID)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"metrics":    names(req.Metrics),
		"dimensions": names(req.Dimensions),
	}
	if req.Limit > 0 {
		payload["limit"] = strconv.Itoa(req.Limit)
	}

	key := cache.Key("analytics.runRealtimeReport", map[string]any{
		"property":   property,
		"metrics":    req.Metrics,
		"dimensions": req.Dimensions,
		"limit":      req.Limit,
	})

	result, err := cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlRealtime),
		func(ctx context.Context) (json.RawMessage, error) {
			u := fmt.Sprintf("%s/properties/%s:runRealtimeReport", c.dataURL, url.PathEscape(property))
			return c.exec.Post(ctx, u, payload)
		})
	if err != nil {
		return nil, c.propertyHints(err, property)
	}
	return result, nil
}

// Metadata returns the metric/dimension schema for a property. The
// schema changes rarely, so it is cached for a day.
func (c *Client) Metadata(ctx context.Context, propertyID string) (json.RawMessage, error) {
	property, err := c.resolveProperty(propertyID)
	if err != nil {
		return nil, err
	}

	key := cache.Key("analytics.metadata", map[string]any{"property": property})

	result, err := cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlMetadata),
		func(ctx context.Context) (json.RawMessage, error) {
			u := fmt.Sprintf("%s/properties/%s/metadata", c.dataURL, url.PathEscape(property))
			return c.exec.Get(ctx, u)
		})
	if err != nil {
		return nil, c.propertyHints(err, property)
	}
	return result, nil
}

// AccountsPage is one page of Admin API accounts.
type AccountsPage struct {
	Accounts      []json.RawMessage `json:"accounts"`
	NextPageToken string            `json:"nextPageToken"`
}

// ListAccounts returns one page of accounts plus a continuation cursor.
func (c *Client) ListAccounts(ctx context.Context, pageToken string) (*AccountsPage, error) {
	key := cache.Key("analytics.listAccounts", map[string]any{"pageToken": pageToken})

	return cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlAdmin),
		func(ctx context.Context) (*AccountsPage, error) {
			u := c.adminURL + "/accounts?" + pageQuery(pageToken).Encode()
			raw, err := c.exec.Get(ctx, u)
			if err != nil {
				return nil, err
			}

			page := &AccountsPage{}
			if err := json.Unmarshal(raw, page); err != nil {
				return nil, fmt.Errorf("parsing accounts page: %w", err)
			}
			return page, nil
		})
}

// PropertiesPage is one page of Admin API properties.
type PropertiesPage struct {
	Properties    []json.RawMessage `json:"properties"`
	NextPageToken string            `json:"nextPageToken"`
}

// ListProperties returns one page of properties under the given account
// (format "accounts/123").
func (c *Client) ListProperties(ctx context.Context, account, pageToken string) (*PropertiesPage, error) {
	if account == "" {
		return nil, errors.New("account is required (format accounts/123)")
	}

	key := cache.Key("analytics.listProperties", map[string]any{
		"account":   account,
		"pageToken": pageToken,
	})

	return cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlAdmin),
		func(ctx context.Context) (*PropertiesPage, error) {
			q := pageQuery(pageToken)
			q.Set("filter", "parent:"+account)

			raw, err := c.exec.Get(ctx, c.adminURL+"/properties?"+q.Encode())
			if err != nil {
				return nil, err
			}

			page := &PropertiesPage{}
			if err := json.Unmarshal(raw, page); err != nil {
				return nil, fmt.Errorf("parsing properties page: %w", err)
			}
			return page, nil
		})
}

type accountSummariesPage struct {
	AccountSummaries []json.RawMessage `json:"accountSummaries"`
	NextPageToken    string            `json:"nextPageToken"`
}

// AccountSummaries aggregates the account/property tree across all
// pages, capped at limit when limit > 0.
func (c *Client) AccountSummaries(ctx context.Context, limit int) ([]json.RawMessage, error) {
	return paginate.Collect(ctx, func(ctx context.Context, cursor string) (paginate.Page[json.RawMessage], error) {
		key := cache.Key("analytics.accountSummaries", map[string]any{"pageToken": cursor})

		page, err := cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlAdmin),
			func(ctx context.Context) (*accountSummariesPage, error) {
				u := c.adminURL + "/accountSummaries?" + pageQuery(cursor).Encode()
				raw, err := c.exec.Get(ctx, u)
				if err != nil {
					return nil, err
				}

				parsed := &accountSummariesPage{}
				if err := json.Unmarshal(raw, parsed); err != nil {
					return nil, fmt.Errorf("parsing account summaries page: %w", err)
				}
				return parsed, nil
			})
		if err != nil {
			return paginate.Page[json.RawMessage]{}, err
		}

		return paginate.Page[json.RawMessage]{
			Items:      page.AccountSummaries,
			NextCursor: page.NextPageToken,
		}, nil
	}, limit)
}

// names maps metric/dimension names into the Data API's object form.
func names(values []string) []map[string]string {
	out := make([]map[string]string, 0, len(values))
	for _, v := range values {
		out = append(out, map[string]string{"name": v})
	}
	return out
}

func pageQuery(pageToken string) url.Values {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(adminPageSize))
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	return q
}

// rawOrNil lets an absent filter and a nil filter derive the same cache key.
func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
