package comps

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/fliplens-comps/internal/marketplace"
	marketMocks "github.com/donaldgifford/fliplens-comps/internal/marketplace/mocks"
	"github.com/donaldgifford/fliplens-comps/pkg/logger"
	"github.com/donaldgifford/fliplens-comps/pkg/stats"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

var hoodie = domain.Attributes{Brand: "Nike", ItemType: "hoodie", Size: "M", Colour: "grey"}

const hoodieQuery = "Nike hoodie M grey"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFetcher(t *testing.T, src domain.Source) *marketMocks.MockFetcher {
	t.Helper()
	f := marketMocks.NewMockFetcher(t)
	f.EXPECT().Source().Return(src).Once()
	return f
}

func newTestEngine(fetchers []marketplace.Fetcher, opts ...EngineOption) *Engine {
	base := []EngineOption{
		WithLogger(logger.Discard()),
		WithPacing(Pacing{}),
	}
	return NewEngine(fetchers, append(base, opts...)...)
}

func listing(i int, price float64) domain.Listing {
	return domain.Listing{
		Title:    fmt.Sprintf("Listing %d", i),
		PriceGBP: price,
		URL:      fmt.Sprintf("https://market.test/items/%d", i),
	}
}

func found(src domain.Source, prices ...float64) marketplace.Result {
	res := marketplace.Result{Source: src}
	for i, p := range prices {
		res.Listings = append(res.Listings, listing(i, p))
	}
	return res
}

func empty(src domain.Source, err error) marketplace.Result {
	return marketplace.Result{Source: src, Err: err}
}

func TestGetComparables_CascadeShortCircuits(t *testing.T) {
	t.Parallel()

	api := newFetcher(t, domain.SourceAPI)
	html := newFetcher(t, domain.SourceHTML)
	bapi := newFetcher(t, domain.SourceBrowserAPI)
	bhtml := newFetcher(t, domain.SourceBrowserHTML)

	api.EXPECT().Fetch(mock.Anything, hoodieQuery).
		Return(found(domain.SourceAPI, 10, 12, 11, 13, 14, 12, 1000)).Once()

	eng := newTestEngine([]marketplace.Fetcher{api, html, bapi, bhtml})
	res := eng.GetComparables(context.Background(), hoodie)

	assert.Equal(t, hoodieQuery, res.Query)
	assert.Equal(t, domain.SourceAPI, res.Source)
	assert.Equal(t, 7, res.Count)
	require.NotNil(t, res.MedianGBP)
	require.NotNil(t, res.P25GBP)
	require.NotNil(t, res.P75GBP)
	assert.InDelta(t, 12.0, *res.MedianGBP, 1e-9)
	assert.InDelta(t, 11.25, *res.P25GBP, 1e-9)
	assert.InDelta(t, 12.75, *res.P75GBP, 1e-9)
	assert.True(t, res.OutlierFilter)
	assert.Equal(t, domain.Clamp{Min: 2, Max: 500}, res.Clamp)
	assert.False(t, res.Cache)
	assert.Len(t, res.Examples, 5)
}

func TestGetComparables_FallsBackInOrder(t *testing.T) {
	t.Parallel()

	api := newFetcher(t, domain.SourceAPI)
	html := newFetcher(t, domain.SourceHTML)
	bapi := newFetcher(t, domain.SourceBrowserAPI)
	bhtml := newFetcher(t, domain.SourceBrowserHTML)

	var order []domain.Source
	record := func(src domain.Source) func(context.Context, string) {
		return func(context.Context, string) { order = append(order, src) }
	}

	api.EXPECT().Fetch(mock.Anything, hoodieQuery).Run(record(domain.SourceAPI)).
		Return(empty(domain.SourceAPI, marketplace.ErrBlocked)).Once()
	html.EXPECT().Fetch(mock.Anything, hoodieQuery).Run(record(domain.SourceHTML)).
		Return(empty(domain.SourceHTML, marketplace.ErrNoListings)).Once()
	bapi.EXPECT().Fetch(mock.Anything, hoodieQuery).Run(record(domain.SourceBrowserAPI)).
		Return(empty(domain.SourceBrowserAPI, marketplace.ErrUpstreamShape)).Once()
	bhtml.EXPECT().Fetch(mock.Anything, hoodieQuery).Run(record(domain.SourceBrowserHTML)).
		Return(found(domain.SourceBrowserHTML, 20, 30)).Once()

	eng := newTestEngine([]marketplace.Fetcher{api, html, bapi, bhtml})
	res := eng.GetComparables(context.Background(), hoodie)

	assert.Equal(t, []domain.Source{
		domain.SourceAPI, domain.SourceHTML, domain.SourceBrowserAPI, domain.SourceBrowserHTML,
	}, order)
	assert.Equal(t, domain.SourceBrowserHTML, res.Source)
	assert.Equal(t, 2, res.Count)
	require.NotNil(t, res.MedianGBP)
	assert.InDelta(t, 25.0, *res.MedianGBP, 1e-9)
}

func TestGetComparables_ZeroResultShape(t *testing.T) {
	t.Parallel()

	api := newFetcher(t, domain.SourceAPI)
	html := newFetcher(t, domain.SourceHTML)
	api.EXPECT().Fetch(mock.Anything, mock.Anything).
		Return(empty(domain.SourceAPI, errors.New("connection refused"))).Once()
	html.EXPECT().Fetch(mock.Anything, mock.Anything).
		Return(empty(domain.SourceHTML, marketplace.ErrNoListings)).Once()

	eng := newTestEngine([]marketplace.Fetcher{api, html})
	res := eng.GetComparables(context.Background(), domain.Attributes{})

	assert.Empty(t, res.Query)
	assert.Zero(t, res.Count)
	assert.Nil(t, res.MedianGBP)
	assert.Nil(t, res.P25GBP)
	assert.Nil(t, res.P75GBP)
	assert.NotNil(t, res.Examples)
	assert.Empty(t, res.Examples)
	assert.Equal(t, domain.SourceNone, res.Source)
	assert.False(t, res.Found())
}

func TestGetComparables_NoFetchers(t *testing.T) {
	t.Parallel()

	res := newTestEngine(nil).GetComparables(context.Background(), hoodie)
	assert.Zero(t, res.Count)
	assert.Equal(t, domain.SourceNone, res.Source)
}

func TestGetComparables_CacheFreshness(t *testing.T) {
	t.Parallel()

	clk := &testClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}

	api := newFetcher(t, domain.SourceAPI)
	api.EXPECT().Fetch(mock.Anything, hoodieQuery).
		Return(found(domain.SourceAPI, 10, 20, 30)).Twice()

	eng := newTestEngine([]marketplace.Fetcher{api},
		WithCacheTTL(10*time.Minute),
		WithNowFunc(clk.Now),
	)

	first := eng.GetComparables(context.Background(), hoodie)
	assert.False(t, first.Cache)

	clk.Advance(5 * time.Minute)
	// Same attributes with different padding normalize to the same key.
	second := eng.GetComparables(context.Background(), domain.Attributes{
		Brand: " Nike ", ItemType: "hoodie", Size: "M ", Colour: "grey",
	})
	assert.True(t, second.Cache)
	second.Cache = false
	assert.Equal(t, first, second)

	clk.Advance(5 * time.Minute)
	third := eng.GetComparables(context.Background(), hoodie)
	assert.False(t, third.Cache)
	assert.Equal(t, 1, eng.CacheLen())
}

func TestGetComparables_CachedResultIsIsolated(t *testing.T) {
	t.Parallel()

	api := newFetcher(t, domain.SourceAPI)
	api.EXPECT().Fetch(mock.Anything, mock.Anything).Return(found(domain.SourceAPI, 10, 20)).Once()

	eng := newTestEngine([]marketplace.Fetcher{api})

	first := eng.GetComparables(context.Background(), hoodie)
	*first.MedianGBP = 999
	first.Examples[0].Title = "mutated"

	second := eng.GetComparables(context.Background(), hoodie)
	assert.InDelta(t, 15.0, *second.MedianGBP, 1e-9)
	assert.Equal(t, "Listing 0", second.Examples[0].Title)
}

func TestGetComparables_DedupAndCaps(t *testing.T) {
	t.Parallel()

	a, b, c := listing(1, 10), listing(2, 20), listing(3, 30)
	api := newFetcher(t, domain.SourceAPI)
	api.EXPECT().Fetch(mock.Anything, mock.Anything).Return(marketplace.Result{
		Source:   domain.SourceAPI,
		Listings: []domain.Listing{a, b, a, c},
	}).Once()

	eng := newTestEngine([]marketplace.Fetcher{api}, WithExamplesLimit(10))
	res := eng.GetComparables(context.Background(), hoodie)

	assert.Equal(t, 3, res.Count)
	assert.Equal(t, []domain.Example{
		{Title: a.Title, PriceGBP: a.PriceGBP, URL: a.URL},
		{Title: b.Title, PriceGBP: b.PriceGBP, URL: b.URL},
		{Title: c.Title, PriceGBP: c.PriceGBP, URL: c.URL},
	}, res.Examples)
}

func TestGetComparables_MaxItemsAndExamplesAreIndependent(t *testing.T) {
	t.Parallel()

	api := newFetcher(t, domain.SourceAPI)
	api.EXPECT().Fetch(mock.Anything, mock.Anything).
		Return(found(domain.SourceAPI, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19)).Once()

	eng := newTestEngine([]marketplace.Fetcher{api}, WithMaxItems(6), WithExamplesLimit(2))
	res := eng.GetComparables(context.Background(), hoodie)

	assert.Equal(t, 6, res.Count)
	require.Len(t, res.Examples, 2)
	assert.InDelta(t, 10.0, res.Examples[0].PriceGBP, 1e-9)
	require.NotNil(t, res.MedianGBP)
	assert.InDelta(t, 12.5, *res.MedianGBP, 1e-9)
}

func TestGetComparables_ClampFallbackKeepsRaw(t *testing.T) {
	t.Parallel()

	api := newFetcher(t, domain.SourceAPI)
	api.EXPECT().Fetch(mock.Anything, mock.Anything).
		Return(found(domain.SourceAPI, 1, 1, 1, 50, 60)).Once()

	eng := newTestEngine([]marketplace.Fetcher{api},
		WithStatsOptions(stats.Options{ClampMin: 2, ClampMax: 500}),
	)
	res := eng.GetComparables(context.Background(), hoodie)

	assert.Equal(t, 5, res.Count)
	assert.False(t, res.OutlierFilter)
	require.NotNil(t, res.MedianGBP)
	assert.InDelta(t, 1.0, *res.MedianGBP, 1e-9)
}

func TestGetComparables_PacingHonoursCallerDeadline(t *testing.T) {
	t.Parallel()

	api := newFetcher(t, domain.SourceAPI)
	html := newFetcher(t, domain.SourceHTML)
	api.EXPECT().Fetch(mock.Anything, mock.Anything).
		Return(empty(domain.SourceAPI, marketplace.ErrNoListings)).Once()

	eng := newTestEngine([]marketplace.Fetcher{api, html},
		WithPacing(Pacing{BeforeHTML: time.Hour}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := eng.GetComparables(ctx, hoodie)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Zero(t, res.Count)
	assert.Nil(t, res.MedianGBP)
	assert.Equal(t, domain.SourceNone, res.Source)

	// Joining the key waits for the in-flight cascade, if any, to finish.
	_, _, _ = eng.group.Do(hoodieQuery, func() (any, error) { return domain.Result{}, nil })
	assert.Zero(t, eng.CacheLen(), "an aborted cascade must not be cached")
}

func TestGetComparables_SharesInFlightFetch(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})

	api := newFetcher(t, domain.SourceAPI)
	api.EXPECT().Fetch(mock.Anything, hoodieQuery).
		RunAndReturn(func(context.Context, string) marketplace.Result {
			close(started)
			<-release
			return found(domain.SourceAPI, 10, 20, 30)
		}).Once()

	eng := newTestEngine([]marketplace.Fetcher{api})

	const callers = 8
	results := make([]domain.Result, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = eng.GetComparables(context.Background(), hoodie)
		}(i)
	}

	<-started
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, 3, r.Count)
		require.NotNil(t, r.MedianGBP)
		assert.InDelta(t, 20.0, *r.MedianGBP, 1e-9)
	}
}

func TestGetComparables_WaiterLeavesFetchCompletes(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	done := make(chan struct{})

	api := newFetcher(t, domain.SourceAPI)
	api.EXPECT().Fetch(mock.Anything, hoodieQuery).
		RunAndReturn(func(ctx context.Context, _ string) marketplace.Result {
			defer close(done)
			<-release
			assert.NoError(t, ctx.Err(), "caller cancellation must not reach the fetch")
			return found(domain.SourceAPI, 40)
		}).Once()

	eng := newTestEngine([]marketplace.Fetcher{api})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res := eng.GetComparables(ctx, hoodie)
	assert.Zero(t, res.Count)
	assert.Equal(t, hoodieQuery, res.Query)

	close(release)
	<-done
	require.Eventually(t, func() bool { return eng.CacheLen() == 1 }, time.Second, 5*time.Millisecond)

	cached := eng.GetComparables(context.Background(), hoodie)
	assert.True(t, cached.Cache)
	assert.Equal(t, 1, cached.Count)
}

type fakeRecorder struct {
	mu    sync.Mutex
	snaps []*domain.Snapshot
	err   error
}

func (f *fakeRecorder) SaveSnapshot(_ context.Context, s *domain.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps = append(f.snaps, s)
	return f.err
}

func TestGetComparables_RecordsSnapshots(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := &fakeRecorder{}

	api := newFetcher(t, domain.SourceAPI)
	api.EXPECT().Fetch(mock.Anything, mock.Anything).Return(found(domain.SourceAPI, 10, 20, 30)).Once()

	eng := newTestEngine([]marketplace.Fetcher{api},
		WithSnapshotRecorder(rec),
		WithNowFunc(func() time.Time { return now }),
	)

	_ = eng.GetComparables(context.Background(), hoodie)
	// Cache hits are not recorded again.
	_ = eng.GetComparables(context.Background(), hoodie)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.snaps, 1)
	s := rec.snaps[0]
	assert.Equal(t, hoodieQuery, s.Query)
	assert.Equal(t, domain.SourceAPI, s.Source)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 3, s.UsedCount)
	assert.Equal(t, now, s.CreatedAt)
	require.NotNil(t, s.MedianGBP)
	assert.InDelta(t, 20.0, *s.MedianGBP, 1e-9)
}

func TestGetComparables_SnapshotFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	rec := &fakeRecorder{err: errors.New("db down")}
	api := newFetcher(t, domain.SourceAPI)
	api.EXPECT().Fetch(mock.Anything, mock.Anything).Return(found(domain.SourceAPI, 10)).Once()

	eng := newTestEngine([]marketplace.Fetcher{api}, WithSnapshotRecorder(rec))
	res := eng.GetComparables(context.Background(), hoodie)

	assert.Equal(t, 1, res.Count)
	assert.Equal(t, 1, eng.CacheLen())
}

func TestGetComparables_CacheBound(t *testing.T) {
	t.Parallel()

	api := newFetcher(t, domain.SourceAPI)
	api.EXPECT().Fetch(mock.Anything, mock.Anything).Return(found(domain.SourceAPI, 10)).Times(3)

	eng := newTestEngine([]marketplace.Fetcher{api}, WithCacheMaxEntries(2))
	for _, brand := range []string{"a", "b", "c"} {
		_ = eng.GetComparables(context.Background(), domain.Attributes{Brand: brand})
	}
	assert.Equal(t, 2, eng.CacheLen())
}

func TestPurgeCache(t *testing.T) {
	t.Parallel()

	clk := &testClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	api := newFetcher(t, domain.SourceAPI)
	api.EXPECT().Fetch(mock.Anything, mock.Anything).Return(found(domain.SourceAPI, 10)).Once()

	eng := newTestEngine([]marketplace.Fetcher{api},
		WithCacheTTL(time.Minute),
		WithNowFunc(clk.Now),
	)
	_ = eng.GetComparables(context.Background(), hoodie)

	assert.Zero(t, eng.PurgeCache())
	clk.Advance(2 * time.Minute)
	assert.Equal(t, 1, eng.PurgeCache())
	assert.Zero(t, eng.CacheLen())
}

func TestFetchContext(t *testing.T) {
	t.Parallel()

	eng := newTestEngine(nil, WithCascadeTimeout(time.Minute))

	t.Run("caller cancellation is detached", func(t *testing.T) {
		t.Parallel()

		parent, cancelParent := context.WithCancel(context.Background())
		ctx, cancel := eng.fetchContext(parent)
		defer cancel()
		cancelParent()
		assert.NoError(t, ctx.Err())
	})

	t.Run("shorter caller deadline wins", func(t *testing.T) {
		t.Parallel()

		parent, cancelParent := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelParent()
		want, _ := parent.Deadline()

		ctx, cancel := eng.fetchContext(parent)
		defer cancel()
		got, ok := ctx.Deadline()
		require.True(t, ok)
		assert.Equal(t, want, got)
	})

	t.Run("cascade timeout bounds open-ended callers", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := eng.fetchContext(context.Background())
		defer cancel()
		got, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), got, 5*time.Second)
	})

	t.Run("no timeout and no deadline", func(t *testing.T) {
		t.Parallel()

		open := newTestEngine(nil, WithCascadeTimeout(0))
		ctx, cancel := open.fetchContext(context.Background())
		defer cancel()
		_, ok := ctx.Deadline()
		assert.False(t, ok)
	})
}
