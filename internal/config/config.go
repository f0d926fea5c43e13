// Package config handles loading and validating the application configuration.
// Configuration is resolved exactly once at startup and the resulting value is
// passed to every component; nothing reads config files ambiently after that.
//
// The documented config format is JSON; files are parsed with yaml.v3, whose
// grammar is a superset of JSON, so YAML configs work too.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Credentials   CredentialsConfig   `yaml:"credentials" json:"credentials"`
	Analytics     AnalyticsConfig     `yaml:"analytics" json:"analytics"`
	SearchConsole SearchConsoleConfig `yaml:"search_console" json:"search_console"`
	Merchant      MerchantConfig      `yaml:"merchant" json:"merchant"`
	HTTP          HTTPConfig          `yaml:"http" json:"http"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit" json:"rate_limit"`
	Cache         CacheConfig         `yaml:"cache" json:"cache"`
	Server        ServerConfig        `yaml:"server" json:"server"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
}

// CredentialsConfig locates the per-user OAuth credential record.
type CredentialsConfig struct {
	Dir       string `yaml:"dir" json:"dir"`
	UserEmail string `yaml:"user_email" json:"user_email"`
}

// File returns the path of the credential record for the configured user.
func (c *CredentialsConfig) File() string {
	return filepath.Join(c.Dir, c.UserEmail+".json")
}

// AnalyticsConfig defines Google Analytics defaults.
type AnalyticsConfig struct {
	PropertyID string `yaml:"property_id" json:"property_id"`
	DataURL    string `yaml:"data_url" json:"data_url"`
	AdminURL   string `yaml:"admin_url" json:"admin_url"`
}

// SearchConsoleConfig defines Search Console defaults.
type SearchConsoleConfig struct {
	SiteURL string `yaml:"site_url" json:"site_url"`
	BaseURL string `yaml:"base_url" json:"base_url"`
}

// MerchantConfig defines Merchant Center defaults.
type MerchantConfig struct {
	MerchantID string `yaml:"merchant_id" json:"merchant_id"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
}

// HTTPConfig defines outbound request behavior.
type HTTPConfig struct {
	TimeoutMS  int `yaml:"timeout_ms" json:"timeout_ms"`
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// Timeout returns the per-request timeout as a duration.
func (h *HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutMS) * time.Millisecond
}

// RateLimitConfig defines client-side API rate limiting.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second" json:"per_second"`
	Burst      int     `yaml:"burst" json:"burst"`
	DailyLimit int64   `yaml:"daily_limit" json:"daily_limit"`
}

// CacheConfig defines the response cache behavior.
type CacheConfig struct {
	Disabled bool `yaml:"disabled" json:"disabled"`
}

// ServerConfig defines the optional serve-mode HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // text, json
}

// Load reads and parses a config file, performing environment variable
// substitution, applying defaults, and validating required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyAnalyticsDefaults(&cfg.Analytics)
	applySearchConsoleDefaults(&cfg.SearchConsole)
	applyMerchantDefaults(&cfg.Merchant)
	applyHTTPDefaults(&cfg.HTTP)
	applyRateLimitDefaults(&cfg.RateLimit)
	applyServerDefaults(&cfg.Server)
	applyLoggingDefaults(&cfg.Logging)
}

func applyAnalyticsDefaults(a *AnalyticsConfig) {
	if a.DataURL == "" {
		a.DataURL = "https://analyticsdata.googleapis.com/v1beta"
	}
	if a.AdminURL == "" {
		a.AdminURL = "https://analyticsadmin.googleapis.com/v1beta"
	}
}

func applySearchConsoleDefaults(s *SearchConsoleConfig) {
	if s.BaseURL == "" {
		s.BaseURL = "https://searchconsole.googleapis.com/webmasters/v3"
	}
}

func applyMerchantDefaults(m *MerchantConfig) {
	if m.BaseURL == "" {
		m.BaseURL = "https://shoppingcontent.googleapis.com/content/v2.1"
	}
}

func applyHTTPDefaults(h *HTTPConfig) {
	if h.TimeoutMS == 0 {
		h.TimeoutMS = 30000
	}
	if h.MaxRetries == 0 {
		h.MaxRetries = 2
	}
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 5.0
	}
	if r.Burst == 0 {
		r.Burst = 10
	}
	if r.DailyLimit == 0 {
		r.DailyLimit = 50000
	}
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "127.0.0.1"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Credentials.Dir == "" {
		errs = append(errs, fmt.Errorf("credentials.dir is required"))
	}
	if cfg.Credentials.UserEmail == "" {
		errs = append(errs, fmt.Errorf("credentials.user_email is required"))
	}

	return errors.Join(errs...)
}
