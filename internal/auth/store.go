// Package auth manages the per-user OAuth credential record: loading it
// from disk, refreshing the access token through the OAuth token endpoint,
// and persisting refreshed credentials back to the file.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/webpulse/gapctl/internal/metrics"
)

// expirySkew is the freshness window: a token expiring within this
// duration of now (or with no recorded expiry at all) is refreshed
// before use.
const expirySkew = 5 * time.Minute

// Credentials is the on-disk credential record, matching the JSON layout
// written by the Google OAuth installed-app flow.
type Credentials struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refresh_token"`
	TokenURI     string     `json:"token_uri"`
	ClientID     string     `json:"client_id"`
	ClientSecret string     `json:"client_secret"`
	Scopes       []string   `json:"scopes"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}

// FileStore reads a credential record from a known file location, keeps
// it in memory for the life of the process, refreshes the access token
// when it is stale, and writes refreshed records back. Thread-safe via
// mutex.
type FileStore struct {
	path   string
	scope  string
	client *http.Client
	logger *slog.Logger

	mu      sync.Mutex
	creds   *Credentials
	nowFunc func() time.Time // for testing
}

// StoreOption configures the FileStore.
type StoreOption func(*FileStore)

// WithHTTPClient overrides the HTTP client used for token refresh.
func WithHTTPClient(c *http.Client) StoreOption {
	return func(s *FileStore) {
		s.client = c
	}
}

// WithNowFunc overrides the time function for testing.
func WithNowFunc(f func() time.Time) StoreOption {
	return func(s *FileStore) {
		s.nowFunc = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *FileStore) {
		s.logger = l
	}
}

// NewFileStore creates a token store backed by the credential file at
// path. scope names the OAuth scope the owning service requires; it is
// only used to make load errors actionable.
func NewFileStore(path, scope string, opts ...StoreOption) *FileStore {
	s := &FileStore{
		path:    path,
		scope:   scope,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  slog.Default(),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns a valid access token, loading the credential record on
// first use and refreshing when the record is expired or has no expiry.
func (s *FileStore) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.creds == nil {
		if err := s.loadLocked(); err != nil {
			return "", err
		}
	}

	if s.expiredLocked() {
		if err := s.refreshLocked(ctx); err != nil {
			return "", err
		}
	}

	return s.creds.Token, nil
}

func (s *FileStore) loadLocked() error {
	data, err := os.ReadFile(s.path) //nolint:gosec // path from validated config
	if err != nil {
		return &CredentialLoadError{Path: s.path, Scope: s.scope, Err: err}
	}

	creds := &Credentials{}
	if err := json.Unmarshal(data, creds); err != nil {
		return &CredentialLoadError{Path: s.path, Scope: s.scope, Err: err}
	}

	s.creds = creds
	return nil
}

// expiredLocked reports whether the current token must be refreshed:
// no recorded expiry, or expiry within the skew window.
func (s *FileStore) expiredLocked() bool {
	if s.creds.Expiry == nil {
		return true
	}
	return s.creds.Expiry.Sub(s.nowFunc()) < expirySkew
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (s *FileStore) refreshLocked(ctx context.Context) error {
	if s.creds.RefreshToken == "" {
		return fmt.Errorf("refreshing token for %s: %w", s.path, ErrNoRefreshToken)
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {s.creds.RefreshToken},
		"client_id":     {s.creds.ClientID},
		"client_secret": {s.creds.ClientSecret},
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.creds.TokenURI,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return fmt.Errorf("creating refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.TokenRefreshFailuresTotal.Inc()
		return fmt.Errorf("executing refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.TokenRefreshFailuresTotal.Inc()
		return fmt.Errorf("reading refresh response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.TokenRefreshFailuresTotal.Inc()
		return &TokenRefreshError{Status: resp.StatusCode, Body: string(body)}
	}

	var refreshed refreshResponse
	if err := json.Unmarshal(body, &refreshed); err != nil {
		metrics.TokenRefreshFailuresTotal.Inc()
		return fmt.Errorf("parsing refresh response: %w", err)
	}

	s.creds.Token = refreshed.AccessToken
	if refreshed.ExpiresIn > 0 {
		expiry := s.nowFunc().Add(time.Duration(refreshed.ExpiresIn) * time.Second)
		s.creds.Expiry = &expiry
	}

	metrics.TokenRefreshesTotal.Inc()
	s.persistLocked()

	return nil
}

// persistLocked writes the refreshed record back to disk. A write
// failure is logged and ignored: the in-memory token stays usable for
// the rest of this process.
func (s *FileStore) persistLocked() {
	data, err := json.MarshalIndent(s.creds, "", "  ")
	if err != nil {
		s.logger.Warn("marshaling refreshed credentials", "path", s.path, "err", err)
		return
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.logger.Warn("persisting refreshed credentials", "path", s.path, "err", err)
	}
}
