package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// CacheHitRatio returns a stat panel showing the fresh-hit share of cache
// lookups.
func CacheHitRatio() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Cache Hit Ratio").
		Description("Fresh cache hits as a percentage of all lookups").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`comps:cache_hit_ratio:rate5m * 100`, "", "A")).
		Unit("percent").
		Thresholds(ThresholdsRedGreen(20)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// CacheEntries returns a stat panel showing the current cache size.
func CacheEntries() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Cache Entries").
		Description("Entries currently held in the result cache").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(`comps_cache_entries{`+Job+`}`, "", "A")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeArea)
}

// CacheChurn returns a timeseries panel showing evictions and requests that
// joined another caller's in-flight fetch.
func CacheChurn() *timeseries.PanelBuilder {
	return timeSeries("Evictions and Shared Fetches", "Bound evictions and collapsed concurrent misses", TSWidth).
		WithTarget(PromQuery(`rate(comps_cache_evictions_total{`+Job+`}[5m])`, "evictions", "A")).
		WithTarget(PromQuery(`rate(comps_shared_fetches_total{`+Job+`}[5m])`, "shared", "B")).
		Unit("ops").
		Tooltip(MultiTooltip())
}
