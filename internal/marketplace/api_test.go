package marketplace_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/fliplens-comps/internal/marketplace"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

type transportFunc func(ctx context.Context, url string) (*marketplace.Response, error)

func (f transportFunc) Get(ctx context.Context, url string) (*marketplace.Response, error) {
	return f(ctx, url)
}

func staticTransport(status int, body string) transportFunc {
	return func(context.Context, string) (*marketplace.Response, error) {
		return &marketplace.Response{StatusCode: status, Body: []byte(body)}, nil
	}
}

func TestAPIFetcher_Fetch(t *testing.T) {
	t.Parallel()

	const base = "https://market.test"

	tests := []struct {
		name        string
		body        string
		status      int
		want        []domain.Listing
		wantOutcome string
	}{
		{
			name:   "items container with mixed price fields",
			status: http.StatusOK,
			body: `{"items":[
				{"id": 11, "title": "Nike hoodie", "price_with_currency": {"amount": "12.50"}},
				{"id": 12, "description": "Grey tee", "price": "£8.00", "url": "/items/12-grey-tee"},
				{"brand_title": "Adidas", "price_numeric": 2599, "path": "items/13"},
				{"id": "14", "price": 45},
				{"price": 3.5}
			]}`,
			want: []domain.Listing{
				{Title: "Nike hoodie", PriceGBP: 12.5, URL: base + "/items/11"},
				{Title: "Grey tee", PriceGBP: 8, URL: base + "/items/12-grey-tee"},
				{Title: "Adidas", PriceGBP: 25.99, URL: base + "/items/13"},
				{Title: "Item", PriceGBP: 45, URL: base + "/items/14"},
				{Title: "Item", PriceGBP: 3.5, URL: base},
			},
			wantOutcome: marketplace.OutcomeOK,
		},
		{
			name:        "data container",
			status:      http.StatusOK,
			body:        `{"data":[{"title":"Jacket","price":"20.00","url":"https://market.test/items/9"}]}`,
			want:        []domain.Listing{{Title: "Jacket", PriceGBP: 20, URL: "https://market.test/items/9"}},
			wantOutcome: marketplace.OutcomeOK,
		},
		{
			name:        "items without prices are dropped",
			status:      http.StatusOK,
			body:        `{"items":[{"title":"Free"},{"title":"Zero","price":0},"junk"]}`,
			wantOutcome: marketplace.OutcomeEmpty,
		},
		{
			name:        "empty items",
			status:      http.StatusOK,
			body:        `{"items":[]}`,
			wantOutcome: marketplace.OutcomeEmpty,
		},
		{
			name:        "unknown container",
			status:      http.StatusOK,
			body:        `{"results":[{"title":"x","price":"1.00"}]}`,
			wantOutcome: marketplace.OutcomeShape,
		},
		{
			name:        "malformed json",
			status:      http.StatusOK,
			body:        `{"items":[`,
			wantOutcome: marketplace.OutcomeShape,
		},
		{
			name:        "array document",
			status:      http.StatusOK,
			body:        `[1,2,3]`,
			wantOutcome: marketplace.OutcomeShape,
		},
		{
			name:        "challenge page",
			status:      http.StatusOK,
			body:        `<html><title>Just a moment...</title></html>`,
			wantOutcome: marketplace.OutcomeBlocked,
		},
		{
			name:        "forbidden",
			status:      http.StatusForbidden,
			wantOutcome: marketplace.OutcomeBlocked,
		},
		{
			name:        "server error",
			status:      http.StatusBadGateway,
			wantOutcome: marketplace.OutcomeStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := marketplace.NewAPIFetcher(staticTransport(tt.status, tt.body), base+"/")
			res := f.Fetch(context.Background(), "nike hoodie")

			assert.Equal(t, domain.SourceAPI, res.Source)
			assert.Equal(t, tt.want, res.Listings)
			assert.Equal(t, tt.wantOutcome, marketplace.Outcome(res.Err))
			assert.Equal(t, len(tt.want) == 0, res.Err != nil)
		})
	}
}

func TestAPIFetcher_QueryParametersAndFallbackEndpoint(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()

		q := r.URL.Query()
		assert.Equal(t, "nike hoodie", q.Get("search_text"))
		assert.Equal(t, "10", q.Get("per_page"))
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "newest_first", q.Get("order"))
		assert.Equal(t, "GBP", q.Get("currency"))

		if r.URL.Path == "/api/v2/catalog/items" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"id":1,"title":"A","price":"5.00"}]}`))
	}))
	t.Cleanup(srv.Close)

	f := marketplace.NewAPIFetcher(marketplace.NewHTTPTransport(), srv.URL, marketplace.WithMaxItems(10))
	res := f.Fetch(context.Background(), "nike hoodie")

	require.NoError(t, res.Err)
	require.Len(t, res.Listings, 1)
	assert.Equal(t, srv.URL+"/items/1", res.Listings[0].URL)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/api/v2/catalog/items", "/api/v2/catalog/items.json"}, paths)
}

func TestAPIFetcher_StopsAtFirstProductiveEndpoint(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	tr := transportFunc(func(context.Context, string) (*marketplace.Response, error) {
		calls.Add(1)
		return &marketplace.Response{
			StatusCode: http.StatusOK,
			Body:       []byte(`{"items":[{"id":1,"price":"5.00"}]}`),
		}, nil
	})

	res := marketplace.NewAPIFetcher(tr, "https://m.test").Fetch(context.Background(), "q")
	require.NoError(t, res.Err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAPIFetcher_CapsOutputAndPageSize(t *testing.T) {
	t.Parallel()

	var items []string
	for range 60 {
		items = append(items, `{"title":"x","price":"9.99"}`)
	}
	body := `{"items":[` + strings.Join(items, ",") + `]}`

	var perPage string
	tr := transportFunc(func(_ context.Context, u string) (*marketplace.Response, error) {
		if perPage == "" {
			perPage = u[strings.Index(u, "per_page="):]
		}
		return &marketplace.Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
	})

	res := marketplace.NewAPIFetcher(tr, "https://m.test", marketplace.WithMaxItems(100)).
		Fetch(context.Background(), "q")
	assert.Len(t, res.Listings, 60)
	assert.True(t, strings.HasPrefix(perPage, "per_page=40"))

	res = marketplace.NewAPIFetcher(tr, "https://m.test", marketplace.WithMaxItems(5)).
		Fetch(context.Background(), "q")
	assert.Len(t, res.Listings, 5)
}

func TestAPIFetcher_TransportErrorIsContained(t *testing.T) {
	t.Parallel()

	tr := transportFunc(func(context.Context, string) (*marketplace.Response, error) {
		return nil, errors.New("connection refused")
	})

	res := marketplace.NewAPIFetcher(tr, "https://m.test").Fetch(context.Background(), "q")
	assert.True(t, res.Empty())
	require.Error(t, res.Err)
	assert.Equal(t, marketplace.OutcomeTransport, marketplace.Outcome(res.Err))
}

func TestAPIFetcher_CanceledContextSkipsSecondEndpoint(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	tr := transportFunc(func(ctx context.Context, _ string) (*marketplace.Response, error) {
		calls.Add(1)
		return nil, ctx.Err()
	})

	res := marketplace.NewAPIFetcher(tr, "https://m.test").Fetch(ctx, "q")
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, marketplace.OutcomeCanceled, marketplace.Outcome(res.Err))
}

func TestAPIFetcher_WithSource(t *testing.T) {
	t.Parallel()

	f := marketplace.NewAPIFetcher(staticTransport(http.StatusOK, `{"items":[]}`), "https://m.test",
		marketplace.WithSource(domain.SourceBrowserAPI))
	assert.Equal(t, domain.SourceBrowserAPI, f.Source())
	assert.Equal(t, domain.SourceBrowserAPI, f.Fetch(context.Background(), "q").Source)
}

func TestAPIFetcher_TruncatesTitles(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("é", 200)
	body := `{"items":[{"title":"` + long + `","price":"5.00"}]}`

	res := marketplace.NewAPIFetcher(staticTransport(http.StatusOK, body), "https://m.test").
		Fetch(context.Background(), "q")
	require.Len(t, res.Listings, 1)
	assert.Equal(t, strings.Repeat("é", domain.MaxTitleLen), res.Listings[0].Title)
}
