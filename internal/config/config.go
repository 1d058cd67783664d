// Package config handles loading and validating the comps server
// configuration from an optional YAML file, a .env file, and environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the marketplace origin used when none is configured.
const DefaultBaseURL = "https://www.vinted.co.uk"

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	Browser     BrowserConfig     `yaml:"browser"`
	Engine      EngineConfig      `yaml:"engine"`
	Database    DatabaseConfig    `yaml:"database"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Logging     LoggingConfig     `yaml:"logging"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MarketplaceConfig defines the upstream marketplace and plain HTTP
// transport settings.
type MarketplaceConfig struct {
	BaseURL        string          `yaml:"base_url"`
	ConnectTimeout time.Duration   `yaml:"connect_timeout"`
	ReadTimeout    time.Duration   `yaml:"read_timeout"`
	MaxItems       int             `yaml:"max_items"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines the local request budget towards the marketplace.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"` // 0 disables the daily budget
}

// BrowserConfig defines the headless-browser transport.
type BrowserConfig struct {
	Enabled  bool          `yaml:"enabled"`
	ExecPath string        `yaml:"exec_path"`
	Timeout  time.Duration `yaml:"timeout"`
}

// EngineConfig defines aggregation, statistics and cache behaviour.
type EngineConfig struct {
	ExamplesLimit   int           `yaml:"examples_limit"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	CacheMaxEntries int           `yaml:"cache_max_entries"`
	OutlierFilter   *bool         `yaml:"outlier_filter"` // default: true
	ClampMin        float64       `yaml:"clamp_min"`
	ClampMax        float64       `yaml:"clamp_max"`
	CascadeTimeout  time.Duration `yaml:"cascade_timeout"`
	Pacing          PacingConfig  `yaml:"pacing"`
}

// OutlierFilterEnabled reports whether IQR trimming is on.
func (e *EngineConfig) OutlierFilterEnabled() bool {
	return e.OutlierFilter == nil || *e.OutlierFilter
}

// PacingConfig defines the pauses taken before fallback fetch attempts.
type PacingConfig struct {
	BeforeHTML        time.Duration `yaml:"before_html"`
	BeforeBrowserAPI  time.Duration `yaml:"before_browser_api"`
	BeforeBrowserHTML time.Duration `yaml:"before_browser_html"`
}

// DatabaseConfig defines the optional PostgreSQL snapshot store. Either URL
// or Host must be set to enable it.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Enabled reports whether a database has been configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.URL != "" || d.Host != ""
}

// DSN returns a PostgreSQL connection string. URL wins over the discrete
// fields.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// ScheduleConfig defines cron intervals for housekeeping jobs.
type ScheduleConfig struct {
	SnapshotRetention  time.Duration `yaml:"snapshot_retention"`
	PruneInterval      time.Duration `yaml:"prune_interval"`
	CachePurgeInterval time.Duration `yaml:"cache_purge_interval"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// TelemetryConfig defines OpenTelemetry trace export. An empty endpoint
// disables export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
}

// Load builds the configuration. path is optional; when empty only defaults,
// .env and environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	envErrs := applyEnv(cfg, os.LookupEnv)

	if err := errors.Join(append(envErrs, validate(cfg))...); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration with every default applied and no
// overrides.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// loadDotEnv loads path into the environment without overwriting variables
// that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyMarketplaceDefaults(&cfg.Marketplace)
	applyBrowserDefaults(&cfg.Browser)
	applyEngineDefaults(&cfg.Engine)
	applyDatabaseDefaults(&cfg.Database)
	applyScheduleDefaults(&cfg.Schedule)
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 5055
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 60 * time.Second
	}
}

func applyMarketplaceDefaults(m *MarketplaceConfig) {
	if m.BaseURL == "" {
		m.BaseURL = DefaultBaseURL
	}
	m.BaseURL = strings.TrimRight(m.BaseURL, "/")
	if m.ConnectTimeout == 0 {
		m.ConnectTimeout = 5 * time.Second
	}
	if m.ReadTimeout == 0 {
		m.ReadTimeout = 15 * time.Second
	}
	if m.MaxItems == 0 {
		m.MaxItems = 40
	}
	applyRateLimitDefaults(&m.RateLimit)
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 2.0
	}
	if r.Burst == 0 {
		r.Burst = 4
	}
	if r.DailyLimit == 0 {
		r.DailyLimit = 5000
	}
}

func applyBrowserDefaults(b *BrowserConfig) {
	if b.Timeout == 0 {
		b.Timeout = 30 * time.Second
	}
}

func applyEngineDefaults(e *EngineConfig) {
	if e.ExamplesLimit == 0 {
		e.ExamplesLimit = 5
	}
	if e.CacheTTL == 0 {
		e.CacheTTL = 600 * time.Second
	}
	if e.CacheMaxEntries == 0 {
		e.CacheMaxEntries = 1024
	}
	if e.OutlierFilter == nil {
		on := true
		e.OutlierFilter = &on
	}
	if e.ClampMin == 0 {
		e.ClampMin = 2
	}
	if e.ClampMax == 0 {
		e.ClampMax = 500
	}
	if e.CascadeTimeout == 0 {
		e.CascadeTimeout = 45 * time.Second
	}
	if e.Pacing.BeforeHTML == 0 {
		e.Pacing.BeforeHTML = 400 * time.Millisecond
	}
	if e.Pacing.BeforeBrowserAPI == 0 {
		e.Pacing.BeforeBrowserAPI = 200 * time.Millisecond
	}
	if e.Pacing.BeforeBrowserHTML == 0 {
		e.Pacing.BeforeBrowserHTML = 400 * time.Millisecond
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.SnapshotRetention == 0 {
		s.SnapshotRetention = 30 * 24 * time.Hour
	}
	if s.PruneInterval == 0 {
		s.PruneInterval = 24 * time.Hour
	}
	if s.CachePurgeInterval == 0 {
		s.CachePurgeInterval = 10 * time.Minute
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "comps-server"
	}
}

// applyEnv overlays the environment variables the service has always
// honoured. Unparseable values are returned as errors and leave the field
// untouched.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) []error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	seconds := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid seconds %q", key, v))
			return
		}
		*dst = time.Duration(f * float64(time.Second))
	}
	integer := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
			return
		}
		*dst = n
	}
	float := func(key string, dst *float64) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid number %q", key, v))
			return
		}
		*dst = f
	}

	if v, ok := lookup("VINTED_BASE"); ok && v != "" {
		cfg.Marketplace.BaseURL = strings.TrimRight(v, "/")
	}
	seconds("CONNECT_TIMEOUT", &cfg.Marketplace.ConnectTimeout)
	seconds("READ_TIMEOUT", &cfg.Marketplace.ReadTimeout)
	integer("MAX_ITEMS", &cfg.Marketplace.MaxItems)
	integer("EXAMPLES_LIMIT", &cfg.Engine.ExamplesLimit)
	seconds("CACHE_TTL", &cfg.Engine.CacheTTL)
	if v, ok := lookup("OUTLIER_FILTER"); ok && v != "" {
		on := strings.TrimSpace(v) == "1"
		cfg.Engine.OutlierFilter = &on
	}
	float("CLAMP_MIN", &cfg.Engine.ClampMin)
	float("CLAMP_MAX", &cfg.Engine.ClampMax)
	integer("PORT", &cfg.Server.Port)
	str("DATABASE_URL", &cfg.Database.URL)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	if v, ok := lookup("BROWSER_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("BROWSER_ENABLED: invalid boolean %q", v))
		} else {
			cfg.Browser.Enabled = b
		}
	}
	str("CHROME_BIN", &cfg.Browser.ExecPath)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)

	return errs
}

func validate(cfg *Config) error {
	var errs []error

	if u, err := url.Parse(cfg.Marketplace.BaseURL); err != nil ||
		(u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf(
			"marketplace.base_url must be an absolute http(s) URL (got %q)", cfg.Marketplace.BaseURL,
		))
	}
	if cfg.Marketplace.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("marketplace.connect_timeout must be positive"))
	}
	if cfg.Marketplace.ReadTimeout <= 0 {
		errs = append(errs, errors.New("marketplace.read_timeout must be positive"))
	}
	if cfg.Marketplace.MaxItems <= 0 {
		errs = append(errs, errors.New("marketplace.max_items must be positive"))
	}
	if cfg.Marketplace.RateLimit.PerSecond <= 0 {
		errs = append(errs, errors.New("marketplace.rate_limit.per_second must be positive"))
	}
	if cfg.Marketplace.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("marketplace.rate_limit.burst must be positive"))
	}
	if cfg.Marketplace.RateLimit.DailyLimit < 0 {
		errs = append(errs, errors.New("marketplace.rate_limit.daily_limit must not be negative"))
	}

	if cfg.Engine.ExamplesLimit < 0 {
		errs = append(errs, errors.New("engine.examples_limit must not be negative"))
	}
	if cfg.Engine.CacheTTL < 0 {
		errs = append(errs, errors.New("engine.cache_ttl must not be negative"))
	}
	if cfg.Engine.CacheMaxEntries <= 0 {
		errs = append(errs, errors.New("engine.cache_max_entries must be positive"))
	}
	if cfg.Engine.ClampMin < 0 {
		errs = append(errs, errors.New("engine.clamp_min must not be negative"))
	}
	if cfg.Engine.ClampMin >= cfg.Engine.ClampMax {
		errs = append(errs, fmt.Errorf(
			"engine.clamp_min (%g) must be below engine.clamp_max (%g)",
			cfg.Engine.ClampMin, cfg.Engine.ClampMax,
		))
	}
	if cfg.Engine.CascadeTimeout <= 0 {
		errs = append(errs, errors.New("engine.cascade_timeout must be positive"))
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1-65535 (got %d)", cfg.Server.Port))
	}

	if cfg.Browser.Enabled && cfg.Browser.Timeout <= 0 {
		errs = append(errs, errors.New("browser.timeout must be positive"))
	}

	if cfg.Database.Enabled() && cfg.Schedule.SnapshotRetention <= 0 {
		errs = append(errs, errors.New("schedule.snapshot_retention must be positive"))
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be one of: text, json (got %q)", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}
