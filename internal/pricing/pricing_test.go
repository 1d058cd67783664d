package pricing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/fliplens-comps/pkg/logger"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

type fakeSource struct {
	calls []domain.Attributes
	res   *domain.Result
	err   error
}

func (f *fakeSource) Price(_ context.Context, attrs domain.Attributes) (*domain.Result, error) {
	f.calls = append(f.calls, attrs)
	return f.res, f.err
}

func ptr[T any](v T) *T { return &v }

func examples(n int) []domain.Example {
	out := make([]domain.Example, n)
	for i := range out {
		out[i] = domain.Example{
			Title:    fmt.Sprintf("Item %d", i),
			PriceGBP: 10,
			URL:      fmt.Sprintf("https://market.test/items/%d", i),
		}
	}
	return out
}

func newTestService(src PriceSource, opts ...Option) *Service {
	return NewService(src, append([]Option{WithLogger(logger.Discard())}, opts...)...)
}

func TestSuggest_ConvertsToPence(t *testing.T) {
	t.Parallel()

	src := &fakeSource{res: &domain.Result{
		Count:     7,
		P25GBP:    ptr(11.25),
		MedianGBP: ptr(12.01),
		P75GBP:    ptr(12.75),
		Examples:  examples(8),
	}}
	svc := newTestService(src)

	est := svc.Suggest(context.Background(), Request{
		Brand: "Nike", Category: "hoodie", Size: "M", Colour: "grey", Condition: "good",
	})

	require.True(t, est.HasPrices())
	assert.Equal(t, int64(1125), *est.LowPence)
	assert.Equal(t, int64(1201), *est.MidPence)
	assert.Equal(t, int64(1275), *est.HighPence)
	assert.Len(t, est.Examples, 5)

	require.Len(t, src.calls, 1)
	assert.Equal(t, domain.Attributes{Brand: "Nike", ItemType: "hoodie", Size: "M", Colour: "grey"}, src.calls[0])
}

func TestSuggest_Clamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		gbp  *float64
		opts []Option
		want *int64
	}{
		{name: "below floor", gbp: ptr(0.2), want: ptr(DefaultMinPence)},
		{name: "above ceiling", gbp: ptr(900.0), want: ptr(DefaultMaxPence)},
		{name: "inside bounds", gbp: ptr(45.5), want: ptr(int64(4550))},
		{name: "null", gbp: nil, want: nil},
		{name: "zero", gbp: ptr(0.0), want: nil},
		{name: "negative", gbp: ptr(-3.0), want: nil},
		{name: "custom bounds", gbp: ptr(45.5), opts: []Option{WithBounds(100, 2000)}, want: ptr(int64(2000))},
		{name: "inverted bounds collapse to min", gbp: ptr(45.5), opts: []Option{WithBounds(300, 100)}, want: ptr(int64(300))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := newTestService(&fakeSource{res: &domain.Result{MedianGBP: tt.gbp}}, tt.opts...)
			est := svc.Suggest(context.Background(), Request{Brand: "x"})
			assert.Equal(t, tt.want, est.MidPence)
		})
	}
}

func TestSuggest_CachesByNormalizedFields(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{res: &domain.Result{MedianGBP: ptr(10.0)}}
	svc := newTestService(src,
		WithCacheTTL(10*time.Minute),
		WithNowFunc(func() time.Time { return now }),
	)

	ctx := context.Background()
	svc.Suggest(ctx, Request{Brand: "Nike", Category: "Hoodie", Condition: "Good"})
	svc.Suggest(ctx, Request{Brand: " nike ", Category: "hoodie", Condition: "GOOD"})
	assert.Len(t, src.calls, 1)

	svc.Suggest(ctx, Request{Brand: "Nike", Category: "Hoodie", Condition: "Fair"})
	assert.Len(t, src.calls, 2, "condition is part of the key")

	svc.Suggest(ctx, Request{Brand: "Nike", Category: "Hoodie", Colour: "red", Condition: "Good"})
	assert.Len(t, src.calls, 3, "colour is part of the key")

	now = now.Add(11 * time.Minute)
	svc.Suggest(ctx, Request{Brand: "Nike", Category: "Hoodie", Condition: "Good"})
	assert.Len(t, src.calls, 4, "stale entries refetch")
}

func TestSuggest_CachedEstimateIsolated(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeSource{res: &domain.Result{MedianGBP: ptr(10.0), Examples: examples(2)}})
	ctx := context.Background()

	first := svc.Suggest(ctx, Request{Brand: "Nike"})
	*first.MidPence = 1
	first.Examples[0].Title = "mutated"

	second := svc.Suggest(ctx, Request{Brand: "Nike"})
	assert.Equal(t, int64(1000), *second.MidPence)
	assert.Equal(t, "Item 0", second.Examples[0].Title)
}

func TestSuggest_UpstreamFailure(t *testing.T) {
	t.Parallel()

	svc := newTestService(&fakeSource{err: errors.New("comps down")})
	est := svc.Suggest(context.Background(), Request{Brand: "Nike"})

	assert.False(t, est.HasPrices())
	assert.NotNil(t, est.Examples)
	assert.Empty(t, est.Examples)
}

func TestSuggest_CanceledCallerIsNotCached(t *testing.T) {
	t.Parallel()

	src := &fakeSource{err: context.Canceled}
	svc := newTestService(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Suggest(ctx, Request{Brand: "Nike"})

	src.err = nil
	src.res = &domain.Result{MedianGBP: ptr(10.0)}
	est := svc.Suggest(context.Background(), Request{Brand: "Nike"})
	require.NotNil(t, est.MidPence)
	assert.Len(t, src.calls, 2)
}

func TestSuggest_NoSource(t *testing.T) {
	t.Parallel()

	est := newTestService(nil).Suggest(context.Background(), Request{Brand: "Nike"})
	assert.False(t, est.HasPrices())
	assert.NotNil(t, est.Examples)
}
