package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/fliplens-comps/tools/dashgen/dashboards"
	"github.com/donaldgifford/fliplens-comps/tools/dashgen/rules"
	"github.com/donaldgifford/fliplens-comps/tools/dashgen/validate"
)

func TestDefaultConfigValid(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate_EmptyOutputDir(t *testing.T) {
	t.Parallel()
	cfg := Config{OutputDir: "", DashboardEnabled: true}
	assert.Error(t, cfg.Validate())
}

func TestConfigValidate_NothingEnabled(t *testing.T) {
	t.Parallel()
	cfg := Config{OutputDir: "/tmp", DashboardEnabled: false, RulesEnabled: false}
	assert.Error(t, cfg.Validate())
}

func TestBuildOverviewDashboard(t *testing.T) {
	t.Parallel()

	builder := dashboards.BuildOverview()
	dash, err := builder.Build()
	require.NoError(t, err)

	require.NotNil(t, dash.Uid)
	assert.Equal(t, "comps-overview", *dash.Uid)

	require.NotNil(t, dash.Title)
	assert.Equal(t, "Comps Overview", *dash.Title)

	require.NotNil(t, dash.Templating)
	assert.Len(t, dash.Templating.List, 1)
	assert.Equal(t, "datasource", dash.Templating.List[0].Name)

	assert.Len(t, dash.Panels, 6)

	totalPanels := 0
	for _, p := range dash.Panels {
		if p.RowPanel != nil {
			totalPanels += len(p.RowPanel.Panels)
		}
	}
	assert.Equal(t, 22, totalPanels)

	result := validate.Dashboard(dash, KnownMetrics)
	assert.True(t, result.Ok(), "validation errors: %v", result.Errors)
	assert.Empty(t, result.Warnings, "unexpected warnings: %v", result.Warnings)
}

func TestRecordingRules(t *testing.T) {
	t.Parallel()

	cr := rules.RecordingRules()
	assert.Equal(t, "monitoring.coreos.com/v1", cr.APIVersion)
	assert.Equal(t, "PrometheusRule", cr.Kind)
	assert.Equal(t, "comps-recording-rules", cr.Metadata.Name)

	require.Len(t, cr.Spec.Groups, 1)
	group := cr.Spec.Groups[0]
	assert.Equal(t, "comps-recording", group.Name)

	expectedRecords := []string{
		"comps:http_requests:rate5m",
		"comps:http_errors:rate5m",
		"comps:cascade_wins:rate5m",
		"comps:fetch_blocked:rate5m",
		"comps:cache_hit_ratio:rate5m",
		"comps:upstream_requests:rate5m",
	}
	require.Len(t, group.Rules, len(expectedRecords))
	for i, rule := range group.Rules {
		assert.Equal(t, expectedRecords[i], rule.Record)
		assert.True(t, KnownMetrics[rule.Record], "recording rule %s missing from KnownMetrics", rule.Record)
	}

	result := validate.Rules(cr, KnownMetrics)
	assert.True(t, result.Ok(), "validation errors: %v", result.Errors)

	data, err := yaml.Marshal(cr)
	require.NoError(t, err)
	assert.Contains(t, string(data), "apiVersion: monitoring.coreos.com/v1")
}

func TestAlertRules(t *testing.T) {
	t.Parallel()

	cr := rules.AlertRules()
	assert.Equal(t, "comps-alerts", cr.Metadata.Name)

	require.Len(t, cr.Spec.Groups, 1)
	group := cr.Spec.Groups[0]
	assert.Equal(t, "comps-alerts", group.Name)

	expectedAlerts := []string{
		"CompsDown",
		"CompsReadinessDown",
		"CompsHighErrorRate",
		"CompsMarketplaceBlocked",
		"CompsCascadeExhausted",
		"CompsQuotaHigh",
		"CompsQuotaExhausted",
		"CompsSnapshotWriteFailures",
	}
	require.Len(t, group.Rules, len(expectedAlerts))
	for i, rule := range group.Rules {
		assert.Equal(t, expectedAlerts[i], rule.Alert)
		assert.NotEmpty(t, rule.Labels["severity"], "alert %s missing severity", rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], "alert %s missing summary", rule.Alert)
		assert.NotEmpty(t, rule.Annotations["description"], "alert %s missing description", rule.Alert)
	}

	result := validate.Rules(cr, KnownMetrics)
	assert.True(t, result.Ok(), "validation errors: %v", result.Errors)
}

func TestValidate_RejectsUnknownAndInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		expr     string
		wantErr  bool
		wantWarn bool
	}{
		{name: "known metric", expr: `rate(comps_cache_hits_total[5m])`},
		{name: "unknown metric", expr: `rate(spt_ingestion_errors_total[5m])`, wantErr: true},
		{name: "syntax error", expr: `sum(rate(comps_cache_hits_total[5m])`, wantErr: true},
		{name: "empty", expr: "", wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := validate.Expr("test", tt.expr, KnownMetrics)
			assert.Equal(t, tt.wantErr, !r.Ok(), "errors: %v", r.Errors)
			assert.Equal(t, tt.wantWarn, len(r.Warnings) > 0)
		})
	}
}

func TestMetricNames(t *testing.T) {
	t.Parallel()

	names, err := validate.MetricNames(`comps:http_errors:rate5m / comps:http_requests:rate5m > 0.05`)
	require.NoError(t, err)
	assert.Equal(t, []string{"comps:http_errors:rate5m", "comps:http_requests:rate5m"}, names)
}

func TestRun_WritesArtifacts(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	require.NoError(t, run(cfg, false))

	dashJSON, err := os.ReadFile(filepath.Join(cfg.OutputDir, "grafana", "data", "comps-overview.json"))
	require.NoError(t, err)
	var dash map[string]any
	require.NoError(t, json.Unmarshal(dashJSON, &dash))
	assert.Equal(t, "comps-overview", dash["uid"])

	for _, name := range []string{"comps-recording-rules.yaml", "comps-alerts.yaml"} {
		data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "prometheus", name))
		require.NoError(t, err)
		assert.Contains(t, string(data), generatedHeader)
		assert.Contains(t, string(data), "kind: PrometheusRule")
	}
}

func TestRun_ValidateOnlyWritesNothing(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	require.NoError(t, run(cfg, true))

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
