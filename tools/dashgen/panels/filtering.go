package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/bargauge"
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// RawListingsDistribution returns a bar gauge panel showing how many raw
// listings back each aggregation.
func RawListingsDistribution() *bargauge.PanelBuilder {
	return bargauge.NewPanelBuilder().
		Title("Raw Listings per Aggregation").
		Description("Distribution of listing counts before filtering").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(
			`sum(increase(comps_raw_listings_bucket{`+Job+`}[1h])) by (le)`,
			"{{le}}", "A",
		)).
		Orientation(common.VizOrientationHorizontal).
		Min(0).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// ListingsDropped returns a timeseries panel showing listings removed before
// statistics, by stage.
func ListingsDropped() *timeseries.PanelBuilder {
	return timeSeries("Listings Dropped", "Listings removed by dedup, cap, clamp and IQR per second", 8).
		WithTarget(PromQuery(
			`sum(rate(comps_listings_dropped_total{`+Job+`}[5m])) by (stage)`,
			"{{stage}}", "A",
		)).
		Tooltip(MultiTooltip())
}

// ClampFallbacks returns a stat panel showing how often the clamp was
// reverted to the raw sample in the past 24 hours.
func ClampFallbacks() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Clamp Reverts (24h)").
		Description("Aggregations where clamping kept too few listings and the raw sample was used").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`increase(comps_clamp_fallback_total{`+Job+`}[24h])`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(10, 50)).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeArea)
}

// AggregationLatency returns a timeseries panel showing p50 and p95 duration
// of uncached aggregations.
func AggregationLatency() *timeseries.PanelBuilder {
	const bucket = "comps_aggregation_duration_seconds_bucket"
	return timeSeries("Aggregation Latency", "Duration of uncached comparables lookups", FullWidth).
		WithTarget(PromQuery(quantile(0.50, bucket), "p50", "A")).
		WithTarget(PromQuery(quantile(0.95, bucket), "p95", "B")).
		Unit("s").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip())
}
