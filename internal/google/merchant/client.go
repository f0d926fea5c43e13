// Package merchant provides a read-only client for the Google Merchant
// Center Content API, including feed-level aggregations computed
// client-side from paginated product status listings.
package merchant

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
const Scope = "https://www.googleapis.com/auth/content"

const (
	defaultBaseURL = "https://shoppingcontent.googleapis.com/content/v2.1"

	ttlProducts = 5 * time.Minute
	ttlAccount  = time.Hour

	defaultPageSize = 250
)

// ErrNoMerchantID is returned when a call omits the merchant id and no
// default is configured.
var ErrNoMerchantID = errors.New(
	"no merchant id supplied and merchant.merchant_id is not configured",
)

// Executor issues authenticated JSON requests.
type Executor interface {
	Get(ctx context.Context, url string) (json.RawMessage, error)
	Post(ctx context.Context, url string, body any) (json.RawMessage, error)
}

// Client is the Merchant Center service client.
type Client struct {
	exec       Executor
	cache      *cache.Cache
	merchantID string
	baseURL    string
	pageSize   int
	noCache    bool
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDefaultMerchant sets the merchant id used when a call omits one.
func WithDefaultMerchant(id string) ClientOption {
	return func(c *Client) {
		c.merchantID = id
	}
}

// WithBaseURL overrides the Content API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithPageSize overrides the list page size.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithCacheBypass makes every call skip the response cache.
func WithCacheBypass(bypass bool) ClientOption {
	return func(c *Client) {
		c.noCache = bypass
	}
}

// NewClient creates a Merchant Center client.
func NewClient(exec Executor, responses *cache.Cache, opts ...ClientOption) *Client {
	c := &Client{
		exec:     exec,
		cache:    responses,
		baseURL:  defaultBaseURL,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) resolveMerchant(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	if c.merchantID != "" {
		return c.merchantID, nil
	}
	return "", ErrNoMerchantID
}

func (c *Client) fetchOpts(ttl time.Duration) cache.FetchOptions {
	return cache.FetchOptions{TTL: ttl, Bypass: c.noCache}
}

func (c *Client) merchantHints(err error, merchantID string) error {
	err = transport.HintFor(err, http.StatusForbidden,
		"verify the authenticated account has access to merchant "+merchantID)
	return transport.HintFor(err, http.StatusNotFound,
		"check the merchant id: "+merchantID)
}

func (c *Client) listQuery(pageToken string) url.Values {
	q := url.Values{}
	q.Set("maxResults", strconv.Itoa(c.pageSize))
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	return q
}

// ProductsPage is one page of products.
type ProductsPage struct {
	Products      []json.RawMessage `json:"resources"`
	NextPageToken string            `json:"nextPageToken"`
}

// ListProducts returns one page of products plus a continuation cursor.
func (c *Client) ListProducts(ctx context.Context, merchantID, pageToken string) (*ProductsPage, error) {
	merchant, err := c.resolveMerchant(merchantID)
	if err != nil {
		return nil, err
	}

	key := cache.Key("merchant.listProducts", map[string]any{
		"merchant":  merchant,
		"pageToken": pageToken,
	})

	page, err := cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlProducts),
		func(ctx context.Context) (*ProductsPage, error) {
			u := fmt.Sprintf("%s/%s/products?%s", c.baseURL, merchant, c.listQuery(pageToken).Encode())
			raw, err := c.exec.Get(ctx, u)
			if err != nil {
				return nil, err
			}

			parsed := &ProductsPage{}
			if err := json.Unmarshal(raw, parsed); err != nil {
				return nil, fmt.Errorf("parsing products page: %w", err)
			}
			return parsed, nil
		})
	if err != nil {
		return nil, c.merchantHints(err, merchant)
	}
	return page, nil
}

// GetProduct returns one product by its REST id.
func (c *Client) GetProduct(ctx context.Context, merchantID, productID string) (json.RawMessage, error) {
	merchant, err := c.resolveMerchant(merchantID)
	if err != nil {
		return nil, err
	}
	if productID == "" {
		return nil, errors.New("product id is required")
	}

	key := cache.Key("merchant.getProduct", map[string]any{
		"merchant": merchant,
		"product":  productID,
	})

	result, err := cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlProducts),
		func(ctx context.Context) (json.RawMessage, error) {
			u := fmt.Sprintf("%s/%s/products/%s", c.baseURL, merchant, url.PathEscape(productID))
			return c.exec.Get(ctx, u)
		})
	if err != nil {
		err = transport.HintFor(err, http.StatusNotFound,
			"check the product id: "+productID+" (format channel:contentLanguage:targetCountry:offerId)")
		return nil, c.merchantHints(err, merchant)
	}
	return result, nil
}

// StatusesPage is one page of product statuses.
type StatusesPage struct {
	Statuses      []ProductStatus `json:"resources"`
	NextPageToken string          `json:"nextPageToken"`
}

// ListProductStatuses returns one page of product statuses plus a
// continuation cursor.
func (c *Client) ListProductStatuses(ctx context.Context, merchantID, pageToken string) (*StatusesPage, error) {
	merchant, err := c.resolveMerchant(merchantID)
	if err != nil {
		return nil, err
	}

	key := cache.Key("merchant.listProductStatuses", map[string]any{
		"merchant":  merchant,
		"pageToken": pageToken,
	})

	page, err := cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlProducts),
		func(ctx context.Context) (*StatusesPage, error) {
			u := fmt.Sprintf("%s/%s/productstatuses?%s", c.baseURL, merchant, c.listQuery(pageToken).Encode())
			raw, err := c.exec.Get(ctx, u)
			if err != nil {
				return nil, err
			}

			parsed := &StatusesPage{}
			if err := json.Unmarshal(raw, parsed); err != nil {
				return nil, fmt.Errorf("parsing product statuses page: %w", err)
			}
			return parsed, nil
		})
	if err != nil {
		return nil, c.merchantHints(err, merchant)
	}
	return page, nil
}

// FeedSummary aggregates all product statuses into approval counts and a
// total issue count. It drains every page: a partial summary would be
// misleading.
func (c *Client) FeedSummary(ctx context.Context, merchantID string) (*FeedSummary, error) {
	statuses, err := paginate.Collect(ctx, c.statusFetcher(merchantID, nil), 0)
	if err != nil {
		return nil, err
	}

	summary := &FeedSummary{TotalProducts: len(statuses)}
	for i := range statuses {
		switch statuses[i].Classify() {
		case StatusDisapproved:
			summary.Disapproved++
		case StatusPending:
			summary.Pending++
		default:
			summary.Approved++
		}
		summary.IssueCount += len(statuses[i].ItemLevelIssues)
	}

	return summary, nil
}

// DisapprovedProducts walks product statuses, keeping only disapproved
// ones, until limit products are gathered or the feed is exhausted.
func (c *Client) DisapprovedProducts(ctx context.Context, merchantID string, limit int) ([]ProductStatus, error) {
	onlyDisapproved := func(s ProductStatus) bool {
		return s.Classify() == StatusDisapproved
	}
	return paginate.Collect(ctx, c.statusFetcher(merchantID, onlyDisapproved), limit)
}

// statusFetcher adapts ListProductStatuses to the paginator, optionally
// filtering each page so only qualifying items count against the limit.
func (c *Client) statusFetcher(merchantID string, keep func(ProductStatus) bool) paginate.FetchFunc[ProductStatus] {
	return func(ctx context.Context, cursor string) (paginate.Page[ProductStatus], error) {
		page, err := c.ListProductStatuses(ctx, merchantID, cursor)
		if err != nil {
			return paginate.Page[ProductStatus]{}, err
		}

		items := page.Statuses
		if keep != nil {
			items = nil
			for i := range page.Statuses {
				if keep(page.Statuses[i]) {
					items = append(items, page.Statuses[i])
				}
			}
		}

		return paginate.Page[ProductStatus]{Items: items, NextCursor: page.NextPageToken}, nil
	}
}

// AccountInfo returns the merchant account record.
func (c *Client) AccountInfo(ctx context.Context, merchantID string) (json.RawMessage, error) {
	merchant, err := c.resolveMerchant(merchantID)
	if err != nil {
		return nil, err
	}

	key := cache.Key("merchant.accountInfo", map[string]any{"merchant": merchant})

	result, err := cache.GetOrFetch(ctx, c.cache, key, c.fetchOpts(ttlAccount),
		func(ctx context.Context) (json.RawMessage, error) {
			u := fmt.Sprintf("%s/%s/accounts/%s", c.baseURL, merchant, merchant)
			return c.exec.Get(ctx, u)
		})
	if err != nil {
		return nil, c.merchantHints(err, merchant)
	}
	return result, nil
}
