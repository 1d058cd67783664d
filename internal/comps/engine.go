// Package comps aggregates comparable marketplace listings into a robust
// price estimate.
//
// A call normalizes the item attributes into a query, serves a fresh cached
// result when one exists, and otherwise runs the fetch cascade, removes
// duplicate listings, filters and summarizes prices, assembles the result
// and caches it. Concurrent misses for one query share a single cascade.
package comps

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/donaldgifford/fliplens-comps/internal/cache"
	"github.com/donaldgifford/fliplens-comps/internal/marketplace"
	"github.com/donaldgifford/fliplens-comps/internal/metrics"
	"github.com/donaldgifford/fliplens-comps/pkg/currency"
	"github.com/donaldgifford/fliplens-comps/pkg/query"
	"github.com/donaldgifford/fliplens-comps/pkg/stats"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

const (
	defaultMaxItems       = 40
	defaultExamplesLimit  = 5
	defaultCacheTTL       = 600 * time.Second
	defaultCascadeTimeout = 45 * time.Second
	snapshotWriteTimeout  = 5 * time.Second

	tracerName = "github.com/donaldgifford/fliplens-comps/internal/comps"
)

// Comparer produces a comparables estimate for an item description.
type Comparer interface {
	GetComparables(ctx context.Context, attrs domain.Attributes) domain.Result
}

// SnapshotRecorder persists freshly computed results.
type SnapshotRecorder interface {
	SaveSnapshot(ctx context.Context, s *domain.Snapshot) error
}

type stage struct {
	fetcher marketplace.Fetcher
	source  domain.Source
}

// Engine is the aggregation orchestrator. It is safe for concurrent use.
type Engine struct {
	stages []stage
	cache  *cache.TTL[domain.Result]
	group  singleflight.Group

	maxItems        int
	examplesLimit   int
	statsOpts       stats.Options
	pacing          Pacing
	cacheTTL        time.Duration
	cacheMaxEntries int
	cascadeTimeout  time.Duration
	recorder        SnapshotRecorder
	nowFunc         func() time.Time
	tracer          trace.Tracer
	log             *slog.Logger
}

var _ Comparer = (*Engine)(nil)

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// WithMaxItems caps the raw listings considered per query.
func WithMaxItems(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxItems = n
		}
	}
}

// WithExamplesLimit caps the example listings returned.
func WithExamplesLimit(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.examplesLimit = n
		}
	}
}

// WithStatsOptions sets the clamp bounds and outlier filter flag.
func WithStatsOptions(o stats.Options) EngineOption {
	return func(e *Engine) {
		e.statsOpts = o
	}
}

// WithPacing sets the delays between cascade attempts.
func WithPacing(p Pacing) EngineOption {
	return func(e *Engine) {
		e.pacing = p
	}
}

// WithCacheTTL sets how long a computed result stays fresh.
func WithCacheTTL(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d >= 0 {
			e.cacheTTL = d
		}
	}
}

// WithCacheMaxEntries bounds the result cache.
func WithCacheMaxEntries(n int) EngineOption {
	return func(e *Engine) {
		e.cacheMaxEntries = n
	}
}

// WithCascadeTimeout bounds one full cascade. Zero leaves only the
// caller's deadline in force.
func WithCascadeTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.cascadeTimeout = d
	}
}

// WithSnapshotRecorder persists every freshly computed result.
func WithSnapshotRecorder(r SnapshotRecorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithNowFunc overrides the clock used for cache freshness and snapshots.
func WithNowFunc(f func() time.Time) EngineOption {
	return func(e *Engine) {
		e.nowFunc = f
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// NewEngine creates an Engine that tries fetchers in the given order.
func NewEngine(fetchers []marketplace.Fetcher, opts ...EngineOption) *Engine {
	e := &Engine{
		maxItems:        defaultMaxItems,
		examplesLimit:   defaultExamplesLimit,
		statsOpts:       stats.Options{ClampMin: 2, ClampMax: 500, OutlierFilter: true},
		pacing:          DefaultPacing(),
		cacheTTL:        defaultCacheTTL,
		cacheMaxEntries: cache.DefaultMaxEntries,
		cascadeTimeout:  defaultCascadeTimeout,
		nowFunc:         time.Now,
		log:             slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}

	for _, f := range fetchers {
		e.stages = append(e.stages, stage{fetcher: f, source: f.Source()})
	}

	e.cache = cache.New[domain.Result](e.cacheTTL,
		cache.WithMaxEntries(e.cacheMaxEntries),
		cache.WithNowFunc(e.nowFunc),
		cache.WithOnEvict(func(string) { metrics.CacheEvictionsTotal.Inc() }),
	)
	return e
}

// GetComparables implements Comparer. It never fails: when no listings can
// be found, or ctx ends before a result is ready, it returns a result with
// Count zero and nil statistics.
func (e *Engine) GetComparables(ctx context.Context, attrs domain.Attributes) domain.Result {
	q := query.Normalize(attrs)

	ctx, span := e.tracer.Start(ctx, "comps.GetComparables",
		trace.WithAttributes(attribute.String("comps.query", q)),
	)
	defer span.End()

	if entry, fresh := e.cache.Get(q); fresh {
		metrics.CacheHitsTotal.Inc()
		span.SetAttributes(attribute.Bool("comps.cache_hit", true))

		res := entry.Value.Clone()
		res.Cache = true
		e.log.Debug("comparables served from cache", "query", q, "count", res.Count)
		return res
	}
	metrics.CacheMissesTotal.Inc()

	ch := e.group.DoChan(q, func() (any, error) {
		fetchCtx, cancel := e.fetchContext(ctx)
		defer cancel()
		return e.compute(fetchCtx, q), nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			metrics.SharedFetchesTotal.Inc()
		}
		res := r.Val.(domain.Result)
		span.SetAttributes(
			attribute.String("comps.source", string(res.Source)),
			attribute.Int("comps.count", res.Count),
		)
		return res.Clone()
	case <-ctx.Done():
		e.log.Info("caller gave up waiting for comparables", "query", q, "error", ctx.Err())
		return e.emptyResult(q)
	}
}

// CacheLen returns the number of cached results, fresh or stale.
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}

// PurgeCache drops stale cache entries and returns how many were removed.
func (e *Engine) PurgeCache() int {
	n := e.cache.Purge()
	metrics.CacheEntries.Set(float64(e.cache.Len()))
	return n
}

// fetchContext detaches the cascade from the caller's cancellation so that
// callers sharing the fetch are unaffected when the first one leaves. The
// caller's deadline still applies, bounded by the cascade timeout.
func (e *Engine) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)

	deadline, hasDeadline := ctx.Deadline()
	if e.cascadeTimeout > 0 {
		limit := time.Now().Add(e.cascadeTimeout)
		if !hasDeadline || limit.Before(deadline) {
			deadline, hasDeadline = limit, true
		}
	}
	if !hasDeadline {
		return context.WithCancel(base)
	}
	return context.WithDeadline(base, deadline)
}

// compute runs every stage after a cache miss and caches the result unless
// the fetch context expired first.
func (e *Engine) compute(ctx context.Context, q string) domain.Result {
	start := time.Now()
	res, summary := e.aggregate(ctx, q)
	metrics.AggregationDuration.Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		e.log.Warn("cascade cut short, result not cached",
			"query", q,
			"source", res.Source,
			"error", ctx.Err(),
		)
		return res
	}

	e.cache.Put(q, res)
	metrics.CacheEntries.Set(float64(e.cache.Len()))
	e.recordSnapshot(ctx, &res, summary)
	return res
}

func (e *Engine) aggregate(ctx context.Context, q string) (domain.Result, stats.Summary) {
	won := e.runCascade(ctx, q)

	listings := Dedup(won.Listings)
	if d := len(won.Listings) - len(listings); d > 0 {
		metrics.ListingsDroppedTotal.WithLabelValues("dedup").Add(float64(d))
	}
	if len(listings) > e.maxItems {
		metrics.ListingsDroppedTotal.WithLabelValues("cap").Add(float64(len(listings) - e.maxItems))
		listings = listings[:e.maxItems]
	}

	prices := make([]float64, len(listings))
	for i, l := range listings {
		prices[i] = l.PriceGBP
	}
	summary := stats.Compute(prices, e.statsOpts)
	observeSummary(summary)

	res := e.emptyResult(q)
	res.Source = won.Source
	res.Count = len(listings)
	res.MedianGBP = summary.Median
	res.P25GBP = summary.P25
	res.P75GBP = summary.P75
	res.Examples = examples(listings, e.examplesLimit)

	metrics.CascadeWinsTotal.WithLabelValues(string(res.Source)).Inc()
	e.log.Info("comparables computed",
		"query", q,
		"source", res.Source,
		"count", res.Count,
		"used", summary.UsedCount,
		"cached", false,
	)
	return res, summary
}

func (e *Engine) emptyResult(q string) domain.Result {
	return domain.Result{
		Query:         q,
		Examples:      []domain.Example{},
		Source:        domain.SourceNone,
		OutlierFilter: e.statsOpts.OutlierFilter,
		Clamp:         domain.Clamp{Min: e.statsOpts.ClampMin, Max: e.statsOpts.ClampMax},
	}
}

func examples(listings []domain.Listing, limit int) []domain.Example {
	n := min(limit, len(listings))
	out := make([]domain.Example, 0, n)
	for _, l := range listings[:n] {
		out = append(out, domain.Example{
			Title:    l.Title,
			PriceGBP: currency.Round2(l.PriceGBP),
			URL:      l.URL,
		})
	}
	return out
}

func observeSummary(s stats.Summary) {
	metrics.RawListings.Observe(float64(s.RawCount))
	if s.ClampReverted {
		metrics.ClampFallbackTotal.Inc()
	}
	if s.ClampDropped > 0 {
		metrics.ListingsDroppedTotal.WithLabelValues("clamp").Add(float64(s.ClampDropped))
	}
	if s.IQRDropped > 0 {
		metrics.ListingsDroppedTotal.WithLabelValues("iqr").Add(float64(s.IQRDropped))
	}
}

func (e *Engine) recordSnapshot(ctx context.Context, res *domain.Result, s stats.Summary) {
	if e.recorder == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), snapshotWriteTimeout)
	defer cancel()

	snap := &domain.Snapshot{
		Query:     res.Query,
		Source:    res.Source,
		Count:     res.Count,
		UsedCount: s.UsedCount,
		MedianGBP: res.MedianGBP,
		P25GBP:    res.P25GBP,
		P75GBP:    res.P75GBP,
		Examples:  res.Examples,
		CreatedAt: e.nowFunc(),
	}
	if err := e.recorder.SaveSnapshot(ctx, snap); err != nil {
		metrics.SnapshotWriteFailuresTotal.Inc()
		e.log.Warn("saving snapshot", "query", res.Query, "error", err)
		return
	}
	metrics.SnapshotWritesTotal.Inc()
}
