package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// SnapshotWrites returns a timeseries panel showing snapshot persistence
// throughput and failures.
func SnapshotWrites() *timeseries.PanelBuilder {
	return timeSeries("Snapshot Writes", "Result snapshots persisted and failed per second", TSWidth).
		WithTarget(PromQuery(`rate(comps_snapshot_writes_total{`+Job+`}[5m])`, "written", "A")).
		WithTarget(PromQuery(`rate(comps_snapshot_write_failures_total{`+Job+`}[5m])`, "failed", "B")).
		Unit("ops").
		Tooltip(MultiTooltip())
}

// SnapshotsPruned returns a stat panel showing snapshots removed by the
// retention job in the past 24 hours.
func SnapshotsPruned() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Snapshots Pruned (24h)").
		Description("Snapshots removed by retention pruning in the last 24 hours").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`increase(comps_snapshots_pruned_total{`+Job+`}[24h])`, "", "A")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeNone)
}
