package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// comps-server operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata:   metadata("comps-alerts"),
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "comps-alerts",
					Rules: []Rule{
						alert("CompsDown", `absent(up{job="comps-server"})`, "2m", "critical",
							"Comps server is down",
							"The comps-server job has been absent for more than 2 minutes."),
						alert("CompsReadinessDown", `comps_readyz_up == 0`, "2m", "critical",
							"Comps server readiness check is failing",
							"The readiness probe has been reporting not-ready for more than 2 minutes."),
						alert("CompsHighErrorRate", `comps:http_errors:rate5m / comps:http_requests:rate5m > 0.05`, "5m", "warning",
							"High HTTP error rate on the comps server",
							"More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes."),
						alert("CompsMarketplaceBlocked", `sum(comps:fetch_blocked:rate5m) > 0.1`, "10m", "warning",
							"Marketplace is blocking fetch attempts",
							"Fetchers have been answered with 403/429 or challenge pages for more than 10 minutes."),
						alert("CompsCascadeExhausted", `comps:cascade_wins:rate5m{source="none"} / ignoring(source) sum(comps:cascade_wins:rate5m) > 0.5`, "15m", "warning",
							"Most lookups find no comparables",
							"More than half of uncached aggregations exhausted every fetcher over the last 15 minutes."),
						alert("CompsQuotaHigh", `comps_upstream_daily_usage > 4000`, "5m", "warning",
							"Marketplace daily usage is above 80% of the budget",
							"Daily marketplace requests have exceeded 4000 (budget is 5000)."),
						alert("CompsQuotaExhausted", `increase(comps_upstream_daily_limit_hits_total[5m]) > 0`, "0m", "critical",
							"Marketplace daily budget has been reached",
							"The daily marketplace request budget is exhausted. Lookups return empty results until the window rolls."),
						alert("CompsSnapshotWriteFailures", `increase(comps_snapshot_write_failures_total[5m]) > 0`, "5m", "warning",
							"Snapshot writes are failing",
							"One or more result snapshots could not be persisted to Postgres."),
					},
				},
			},
		},
	}
}

func alert(name, expr, forDur, severity, summary, description string) Rule {
	return Rule{
		Alert: name,
		Expr:  expr,
		For:   forDur,
		Labels: map[string]string{
			"severity": severity,
		},
		Annotations: map[string]string{
			"summary":     summary,
			"description": description,
		},
	}
}
