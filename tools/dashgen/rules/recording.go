package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata:   metadata("comps-recording-rules"),
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "comps-recording",
					Rules: []Rule{
						{
							Record: "comps:http_requests:rate5m",
							Expr:   `sum(rate(comps_http_requests_total[5m]))`,
						},
						{
							Record: "comps:http_errors:rate5m",
							Expr:   `sum(rate(comps_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "comps:cascade_wins:rate5m",
							Expr:   `sum(rate(comps_cascade_wins_total[5m])) by (source)`,
						},
						{
							Record: "comps:fetch_blocked:rate5m",
							Expr:   `sum(rate(comps_fetch_attempts_total{outcome="blocked"}[5m])) by (source)`,
						},
						{
							Record: "comps:cache_hit_ratio:rate5m",
							Expr: `sum(rate(comps_cache_hits_total[5m])) / ` +
								`(sum(rate(comps_cache_hits_total[5m])) + sum(rate(comps_cache_misses_total[5m])))`,
						},
						{
							Record: "comps:upstream_requests:rate5m",
							Expr:   `rate(comps_upstream_requests_total[5m])`,
						},
					},
				},
			},
		},
	}
}
