package main

import "errors"

// KnownMetrics is the set of metric names exported by gapctl plus
// recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics (serve mode).
	"gapctl_http_request_duration_seconds": true,
	"gapctl_http_requests_total":           true,

	// Health metrics.
	"gapctl_healthz_up": true,

	// Google API metrics.
	"gapctl_api_calls_total":              true,
	"gapctl_api_retries_total":            true,
	"gapctl_api_request_duration_seconds": true,

	// Quota metrics.
	"gapctl_quota_daily_usage":      true,
	"gapctl_quota_limit_hits_total": true,

	// Token lifecycle metrics.
	"gapctl_token_refreshes_total":        true,
	"gapctl_token_refresh_failures_total": true,

	// Response cache metrics.
	"gapctl_cache_hits_total":   true,
	"gapctl_cache_misses_total": true,

	// Recording rules.
	"gapctl:http_requests:rate5m": true,
	"gapctl:http_errors:rate5m":   true,
	"gapctl:api_calls:rate5m":     true,
	"gapctl:api_retries:rate5m":   true,
	"gapctl:cache_hit_ratio:5m":   true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
