package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// gapctl serve-mode operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "gapctl-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "gapctl-alerts",
					Rules: []Rule{
						{
							Alert: "GapctlDown",
							Expr:  `absent(up{job="gapctl"})`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "gapctl serve mode is down",
								"description": "The gapctl job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert: "GapctlHighErrorRate",
							Expr:  `gapctl:http_errors:rate5m / gapctl:http_requests:rate5m > 0.05`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on gapctl",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert: "GapctlRetryStorm",
							Expr:  `sum(gapctl:api_retries:rate5m) > 1`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Google API calls are being retried at a high rate",
								"description": "Sustained 429/503/network retries suggest quota pressure or an upstream incident.",
							},
						},
						{
							Alert: "GapctlQuotaHigh",
							Expr:  `sum(gapctl_quota_daily_usage) > 40000`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Google API daily usage is above 80% of the quota",
								"description": "Daily API usage has exceeded 40000 calls (default limit is 50000).",
							},
						},
						{
							Alert: "GapctlQuotaExhausted",
							Expr:  `increase(gapctl_quota_limit_hits_total[5m]) > 0`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Client-side daily API quota has been exhausted",
								"description": "Outbound Google API calls are being blocked until the daily window resets.",
							},
						},
						{
							Alert: "GapctlTokenRefreshFailures",
							Expr:  `increase(gapctl_token_refresh_failures_total[5m]) > 0`,
							For:   "1m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "OAuth token refreshes are failing",
								"description": "One or more access token refreshes against the Google token endpoint have failed.",
							},
						},
					},
				},
			},
		},
	}
}
