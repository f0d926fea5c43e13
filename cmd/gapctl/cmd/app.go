package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/webpulse/gapctl/internal/auth"
	"github.com/webpulse/gapctl/internal/cache"
	"github.com/webpulse/gapctl/internal/config"
	"github.com/webpulse/gapctl/internal/google/analytics"
	"github.com/webpulse/gapctl/internal/google/merchant"
	"github.com/webpulse/gapctl/internal/google/searchconsole"
	"github.com/webpulse/gapctl/internal/transport"
	"github.com/webpulse/gapctl/pkg/logger"
)

const cacheDefaultTTL = 5 * time.Minute

// app bundles the configured service clients. All three share one
// credential file (each with its own scope), one rate limiter, and the
// HTTP settings from config.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	analytics *analytics.Client
	search    *searchconsole.Client
	merchant  *merchant.Client
	caches    map[string]*cache.Cache
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".gapctl.json"), nil
}

func newApp() (*app, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	timeout := cfg.HTTP.Timeout()
	if ms := viper.GetInt("timeout"); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}
	bypass := viper.GetBool("no-cache")

	// One limiter across all services keeps the process under the
	// project-wide quota, not a per-API one.
	limiter := transport.NewRateLimiter(
		cfg.RateLimit.PerSecond,
		cfg.RateLimit.Burst,
		cfg.RateLimit.DailyLimit,
	)

	newExec := func(service, scope string) *transport.Executor {
		tokens := auth.NewFileStore(cfg.Credentials.File(), scope, auth.WithLogger(log))
		return transport.New(service, tokens,
			transport.WithTimeout(timeout),
			transport.WithMaxRetries(cfg.HTTP.MaxRetries),
			transport.WithRateLimiter(limiter),
			transport.WithLogger(log),
		)
	}

	newCache := func(namespace string) *cache.Cache {
		opts := []cache.CacheOption{cache.WithLogger(log)}
		if cfg.Cache.Disabled {
			opts = append(opts, cache.Disabled())
		}
		return cache.New(namespace, cacheDefaultTTL, opts...)
	}

	caches := map[string]*cache.Cache{
		"analytics":     newCache("analytics"),
		"searchconsole": newCache("searchconsole"),
		"merchant":      newCache("merchant"),
	}

	return &app{
		cfg:    cfg,
		logger: log,
		caches: caches,
		analytics: analytics.NewClient(
			newExec("analytics", analytics.Scope),
			caches["analytics"],
			analytics.WithDefaultProperty(cfg.Analytics.PropertyID),
			analytics.WithDataURL(cfg.Analytics.DataURL),
			analytics.WithAdminURL(cfg.Analytics.AdminURL),
			analytics.WithCacheBypass(bypass),
		),
		search: searchconsole.NewClient(
			newExec("searchconsole", searchconsole.Scope),
			caches["searchconsole"],
			searchconsole.WithDefaultSite(cfg.SearchConsole.SiteURL),
			searchconsole.WithBaseURL(cfg.SearchConsole.BaseURL),
			searchconsole.WithCacheBypass(bypass),
		),
		merchant: merchant.NewClient(
			newExec("merchant", merchant.Scope),
			caches["merchant"],
			merchant.WithDefaultMerchant(cfg.Merchant.MerchantID),
			merchant.WithBaseURL(cfg.Merchant.BaseURL),
			merchant.WithCacheBypass(bypass),
		),
	}, nil
}
