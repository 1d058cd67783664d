package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// quantile builds a histogram_quantile expression over a bucket metric,
// aggregated by the given extra labels.
func quantile(q float64, bucket string, by ...string) string {
	labels := "le"
	for _, l := range by {
		labels += ", " + l
	}
	return fmt.Sprintf(`histogram_quantile(%.2f, sum(rate(%s{%s}[5m])) by (%s))`, q, bucket, Job, labels)
}

// timeSeries returns a line panel with the shared styling used across the
// dashboard.
func timeSeries(title, description string, span uint32) *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title(title).
		Description(description).
		Datasource(DSRef()).
		Height(TSHeight).
		Span(span).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// RequestRate returns a timeseries panel showing the HTTP request rate by
// route.
func RequestRate() *timeseries.PanelBuilder {
	return timeSeries("Request Rate", "HTTP requests per second by route", TSWidth).
		WithTarget(PromQuery(`comps:http_requests:rate5m`, "total", "A")).
		WithTarget(PromQuery(
			`sum(rate(comps_http_requests_total{`+Job+`}[5m])) by (path)`,
			"{{path}}", "B",
		)).
		Unit("reqps").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip())
}

// LatencyPercentiles returns a timeseries panel showing p50, p95, and p99
// HTTP request latencies.
func LatencyPercentiles() *timeseries.PanelBuilder {
	const bucket = "comps_http_request_duration_seconds_bucket"
	return timeSeries("Latency Percentiles", "HTTP request duration percentiles", TSWidth).
		WithTarget(PromQuery(quantile(0.50, bucket), "p50", "A")).
		WithTarget(PromQuery(quantile(0.95, bucket), "p95", "B")).
		WithTarget(PromQuery(quantile(0.99, bucket), "p99", "C")).
		Unit("s").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip())
}

// ErrorRate returns a timeseries panel showing the HTTP 5xx error rate
// as a percentage.
func ErrorRate() *timeseries.PanelBuilder {
	return timeSeries("Error Rate %", "HTTP 5xx error rate as percentage of total requests", TSWidth).
		WithTarget(PromQuery(
			`comps:http_errors:rate5m / comps:http_requests:rate5m * 100`,
			"error %", "A",
		)).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds())
}

// NotFoundRate returns a timeseries panel showing how often price lookups
// find no comparables.
func NotFoundRate() *timeseries.PanelBuilder {
	return timeSeries("No-Comparables Rate %", "Share of price lookups answered 404", TSWidth).
		WithTarget(PromQuery(
			`sum(rate(comps_http_requests_total{`+Job+`, path=~"/api/price|/price", status="404"}[5m]))`+
				` / sum(rate(comps_http_requests_total{`+Job+`, path=~"/api/price|/price"}[5m])) * 100`,
			"not found %", "A",
		)).
		Unit("percent")
}
