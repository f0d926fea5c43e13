package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "gapctl-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "gapctl-recording",
					Rules: []Rule{
						{
							Record: "gapctl:http_requests:rate5m",
							Expr:   `sum(rate(gapctl_http_requests_total[5m]))`,
						},
						{
							Record: "gapctl:http_errors:rate5m",
							Expr:   `sum(rate(gapctl_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "gapctl:api_calls:rate5m",
							Expr:   `sum by (service) (rate(gapctl_api_calls_total[5m]))`,
						},
						{
							Record: "gapctl:api_retries:rate5m",
							Expr:   `sum by (service) (rate(gapctl_api_retries_total[5m]))`,
						},
						{
							Record: "gapctl:cache_hit_ratio:5m",
							Expr: `sum(rate(gapctl_cache_hits_total[5m])) / ` +
								`(sum(rate(gapctl_cache_hits_total[5m])) + sum(rate(gapctl_cache_misses_total[5m])))`,
						},
					},
				},
			},
		},
	}
}
