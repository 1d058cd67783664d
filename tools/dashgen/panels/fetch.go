package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// FetchOutcomes returns a timeseries panel showing fetcher attempts by
// source and outcome.
func FetchOutcomes() *timeseries.PanelBuilder {
	return timeSeries("Fetch Attempts", "Fetcher attempts per second by source and outcome", 8).
		WithTarget(PromQuery(
			`sum(rate(comps_fetch_attempts_total{`+Job+`}[5m])) by (source, outcome)`,
			"{{source}} {{outcome}}", "A",
		)).
		Unit("reqps").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip())
}

// CascadeWins returns a timeseries panel showing which source supplied each
// aggregation.
func CascadeWins() *timeseries.PanelBuilder {
	return timeSeries("Cascade Winners", "Aggregations by the source that supplied the data", 8).
		WithTarget(PromQuery(`comps:cascade_wins:rate5m`, "{{source}}", "A")).
		Unit("reqps").
		Tooltip(MultiTooltip())
}

// FetchLatency returns a timeseries panel showing p95 fetch latency per
// source.
func FetchLatency() *timeseries.PanelBuilder {
	return timeSeries("Fetch Latency (p95)", "95th percentile duration of one fetch attempt", 8).
		WithTarget(PromQuery(quantile(0.95, "comps_fetch_duration_seconds_bucket", "source"), "{{source}}", "A")).
		Unit("s").
		Tooltip(MultiTooltip())
}

// DailyUsage returns a timeseries panel showing the rolling 24h marketplace
// request count with thresholds at the daily budget.
func DailyUsage() *timeseries.PanelBuilder {
	return timeSeries("Daily Usage vs Budget",
		fmt.Sprintf("Rolling 24h marketplace request count (budget: %d)", DailyLimit), TSWidth).
		WithTarget(PromQuery(`comps_upstream_daily_usage{`+Job+`}`, "usage", "A")).
		Thresholds(ThresholdsGreenYellowRed(float64(DailyLimit)*0.8, float64(DailyLimit))).
		ColorScheme(ColorSchemeThresholds())
}

// LimitHits returns a stat panel showing how often the daily budget was
// reached in the past 24 hours.
func LimitHits() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Budget Exhausted (24h)").
		Description("Times the daily marketplace request budget was reached in the last 24 hours").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`increase(comps_upstream_daily_limit_hits_total{`+Job+`}[24h])`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(1, 3)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
