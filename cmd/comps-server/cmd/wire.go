package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/donaldgifford/fliplens-comps/internal/comps"
	"github.com/donaldgifford/fliplens-comps/internal/config"
	"github.com/donaldgifford/fliplens-comps/internal/marketplace"
	"github.com/donaldgifford/fliplens-comps/internal/store"
	"github.com/donaldgifford/fliplens-comps/pkg/stats"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

// components holds everything built from a Config that commands share.
type components struct {
	engine      *comps.Engine
	rateLimiter *marketplace.RateLimiter
	browser     *marketplace.BrowserTransport
	store       *store.PostgresStore
}

// Close releases the browser and the database pool.
func (c *components) Close() {
	if c.browser != nil {
		c.browser.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// buildComponents wires transports, fetchers and the engine. The snapshot
// store is only connected when withStore is set and a database is configured.
func buildComponents(
	ctx context.Context,
	cfg *config.Config,
	log *slog.Logger,
	withStore bool,
) (*components, error) {
	mc := cfg.Marketplace
	rl := marketplace.NewRateLimiter(mc.RateLimit.PerSecond, mc.RateLimit.Burst, mc.RateLimit.DailyLimit)

	c := &components{rateLimiter: rl}

	httpT := marketplace.NewHTTPTransport(
		marketplace.WithTimeouts(mc.ConnectTimeout, mc.ReadTimeout),
		marketplace.WithRateLimiter(rl),
	)

	fetchOpts := []marketplace.FetcherOption{
		marketplace.WithMaxItems(mc.MaxItems),
		marketplace.WithLogger(log),
	}

	fetchers := []marketplace.Fetcher{
		marketplace.NewAPIFetcher(httpT, mc.BaseURL, fetchOpts...),
		marketplace.NewHTMLFetcher(httpT, mc.BaseURL, fetchOpts...),
	}

	if cfg.Browser.Enabled {
		c.browser = marketplace.NewBrowserTransport(
			marketplace.WithExecPath(cfg.Browser.ExecPath),
			marketplace.WithBrowserTimeout(cfg.Browser.Timeout),
			marketplace.WithBrowserRateLimiter(rl),
		)
		fetchers = append(fetchers,
			marketplace.NewAPIFetcher(c.browser, mc.BaseURL,
				append(fetchOpts, marketplace.WithSource(domain.SourceBrowserAPI))...),
			marketplace.NewHTMLFetcher(c.browser, mc.BaseURL,
				append(fetchOpts, marketplace.WithSource(domain.SourceBrowserHTML))...),
		)
	}

	ec := cfg.Engine
	opts := []comps.EngineOption{
		comps.WithLogger(log),
		comps.WithMaxItems(mc.MaxItems),
		comps.WithExamplesLimit(ec.ExamplesLimit),
		comps.WithStatsOptions(stats.Options{
			ClampMin:      ec.ClampMin,
			ClampMax:      ec.ClampMax,
			OutlierFilter: ec.OutlierFilterEnabled(),
		}),
		comps.WithPacing(comps.Pacing{
			BeforeHTML:        ec.Pacing.BeforeHTML,
			BeforeBrowserAPI:  ec.Pacing.BeforeBrowserAPI,
			BeforeBrowserHTML: ec.Pacing.BeforeBrowserHTML,
		}),
		comps.WithCacheTTL(ec.CacheTTL),
		comps.WithCacheMaxEntries(ec.CacheMaxEntries),
		comps.WithCascadeTimeout(ec.CascadeTimeout),
	}

	if withStore && cfg.Database.Enabled() {
		st, err := store.NewPostgresStore(ctx, cfg.Database.DSN())
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			c.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		c.store = st
		opts = append(opts, comps.WithSnapshotRecorder(st))
		log.Info("snapshot history enabled")
	}

	c.engine = comps.NewEngine(fetchers, opts...)

	log.Info("comparables engine ready",
		"base_url", mc.BaseURL,
		"fetchers", len(fetchers),
		"browser", cfg.Browser.Enabled,
	)
	return c, nil
}
