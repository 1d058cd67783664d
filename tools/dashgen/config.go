package main

import "errors"

// KnownMetrics is the set of metric names exported by comps-server plus
// recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"comps_http_request_duration_seconds_bucket": true,
	"comps_http_requests_total":                  true,

	// Health metrics.
	"comps_healthz_up": true,
	"comps_readyz_up":  true,

	// Fetch cascade metrics.
	"comps_fetch_attempts_total":                true,
	"comps_fetch_duration_seconds_bucket":       true,
	"comps_cascade_wins_total":                  true,
	"comps_aggregation_duration_seconds_bucket": true,
	"comps_upstream_requests_total":             true,
	"comps_upstream_daily_usage":                true,
	"comps_upstream_daily_limit_hits_total":     true,

	// Cache metrics.
	"comps_cache_hits_total":      true,
	"comps_cache_misses_total":    true,
	"comps_cache_evictions_total": true,
	"comps_cache_entries":         true,
	"comps_shared_fetches_total":  true,

	// Filtering metrics.
	"comps_raw_listings_bucket":    true,
	"comps_listings_dropped_total": true,
	"comps_clamp_fallback_total":   true,

	// Snapshot metrics.
	"comps_snapshot_writes_total":         true,
	"comps_snapshot_write_failures_total": true,
	"comps_snapshots_pruned_total":        true,

	// Recording rules.
	"comps:http_requests:rate5m":     true,
	"comps:http_errors:rate5m":       true,
	"comps:cascade_wins:rate5m":      true,
	"comps:fetch_blocked:rate5m":     true,
	"comps:cache_hit_ratio:rate5m":   true,
	"comps:upstream_requests:rate5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
