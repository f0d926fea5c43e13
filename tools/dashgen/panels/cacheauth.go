package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// CacheHitRatio returns a timeseries panel showing the response cache
// hit ratio across all namespaces.
func CacheHitRatio() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Cache Hit Ratio").
		Description("Response cache hits as a fraction of all lookups").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(HalfWidth).
		WithTarget(PromQuery(`gapctl:cache_hit_ratio:5m`, "hit ratio", "A")).
		Unit("percentunit").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// TokenRefreshFailures returns a stat panel showing OAuth refresh
// failures over the past hour.
func TokenRefreshFailures() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Token Refresh Failures (1h)").
		Description("Failed OAuth access token refreshes in the last hour").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(HalfWidth).
		WithTarget(PromQuery(`increase(gapctl_token_refresh_failures_total{job="gapctl"}[1h])`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(1, 3)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
