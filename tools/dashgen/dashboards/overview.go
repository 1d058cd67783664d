// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/fliplens-comps/tools/dashgen/panels"
)

// BuildOverview constructs the Comps Overview dashboard with all metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Comps Overview").
		Uid("comps-overview").
		Tags([]string{"comps", "comps-server"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.QuotaGauge()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()).
		WithPanel(panels.NotFoundRate()))

	b.WithRow(dashboard.NewRowBuilder("Marketplace").
		WithPanel(panels.FetchOutcomes()).
		WithPanel(panels.CascadeWins()).
		WithPanel(panels.FetchLatency()).
		WithPanel(panels.DailyUsage()).
		WithPanel(panels.LimitHits()))

	b.WithRow(dashboard.NewRowBuilder("Cache").
		WithPanel(panels.CacheHitRatio()).
		WithPanel(panels.CacheEntries()).
		WithPanel(panels.CacheChurn()))

	b.WithRow(dashboard.NewRowBuilder("Filtering").
		WithPanel(panels.RawListingsDistribution()).
		WithPanel(panels.ListingsDropped()).
		WithPanel(panels.ClampFallbacks()).
		WithPanel(panels.AggregationLatency()))

	b.WithRow(dashboard.NewRowBuilder("Snapshots").
		WithPanel(panels.SnapshotWrites()).
		WithPanel(panels.SnapshotsPruned()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
