package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/donaldgifford/fliplens-comps/internal/comps"
	"github.com/donaldgifford/fliplens-comps/internal/marketplace"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadTestFixture(t *testing.T) *catalogFixture {
	t.Helper()
	f, err := loadFixture(filepath.Join("testdata", "catalog.json"))
	if err != nil {
		t.Fatalf("loading fixture: %v", err)
	}
	return f
}

func newTestOrigin(t *testing.T, mode string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newMux(testLogger(), loadTestFixture(t), mode))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadFixture(t *testing.T) {
	fixture := loadTestFixture(t)
	if len(fixture.Items) == 0 {
		t.Fatal("expected items in fixture")
	}
	for _, item := range fixture.Items {
		if !strings.HasPrefix(item.Path, "/items/") {
			t.Errorf("item %d path=%q, want /items/ prefix", item.ID, item.Path)
		}
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := loadFixture(filepath.Join("testdata", "missing.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

func TestSearch(t *testing.T) {
	fixture := loadTestFixture(t)

	tests := []struct {
		name  string
		text  string
		limit int
		want  int
	}{
		{name: "all tokens must match", text: "nike hoodie m", want: 7},
		{name: "brand title matches", text: "levi's", want: 3},
		{name: "limit caps results", text: "nike", limit: 2, want: 2},
		{name: "no match", text: "prada", want: 0},
		{name: "empty text matches everything", text: "", want: len(fixture.Items)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := search(fixture, tt.text, tt.limit)
			if len(got) != tt.want {
				t.Errorf("len=%d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestCatalogAPI(t *testing.T) {
	srv := newTestOrigin(t, modeOK)

	resp, err := http.Get(srv.URL + "/api/v2/catalog/items?search_text=barbour&per_page=1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want %d", resp.StatusCode, http.StatusOK)
	}

	var body catalogFixture
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Items) != 1 {
		t.Fatalf("items=%d, want 1", len(body.Items))
	}
	if body.Items[0].Price.Amount != "85.00" {
		t.Errorf("amount=%s, want 85.00", body.Items[0].Price.Amount)
	}
}

func TestCatalogAPI_Modes(t *testing.T) {
	tests := []struct {
		mode string
		want int
	}{
		{mode: modeOK, want: http.StatusOK},
		{mode: modeHTMLOnly, want: http.StatusForbidden},
		{mode: modeChallenge, want: http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			srv := newTestOrigin(t, tt.mode)

			resp, err := http.Get(srv.URL + "/api/v2/catalog/items.json?search_text=nike")
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status=%d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestCatalogHTML(t *testing.T) {
	srv := newTestOrigin(t, modeOK)

	resp, err := http.Get(srv.URL + "/catalog?search_text=levi")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	page := string(body)

	if got := strings.Count(page, `href="/items/`); got != 3 {
		t.Errorf("item anchors=%d, want 3", got)
	}
	if !strings.Contains(page, "£18.00") {
		t.Error("expected price text in page")
	}
}

func TestCatalogHTML_Challenge(t *testing.T) {
	srv := newTestOrigin(t, modeChallenge)

	resp, err := http.Get(srv.URL + "/catalog?search_text=nike")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if !strings.Contains(string(body), "Just a moment") {
		t.Error("expected challenge marker in page")
	}
}

func TestItemHandler(t *testing.T) {
	srv := newTestOrigin(t, modeOK)

	resp, err := http.Get(srv.URL + "/items/1001-nike-club-fleece-hoodie")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status=%d, want %d", resp.StatusCode, http.StatusOK)
	}

	resp, err = http.Get(srv.URL + "/items/9999-unknown")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status=%d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// TestEngineAgainstOrigin runs the real fetchers and engine against the mock
// origin in each mode.
func TestEngineAgainstOrigin(t *testing.T) {
	tests := []struct {
		mode       string
		wantSource domain.Source
		wantCount  int
	}{
		{mode: modeOK, wantSource: domain.SourceAPI, wantCount: 7},
		{mode: modeHTMLOnly, wantSource: domain.SourceHTML, wantCount: 7},
		{mode: modeChallenge, wantSource: domain.SourceNone, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			srv := newTestOrigin(t, tt.mode)

			transport := marketplace.NewHTTPTransport(marketplace.WithTimeouts(time.Second, 2*time.Second))
			eng := comps.NewEngine(
				[]marketplace.Fetcher{
					marketplace.NewAPIFetcher(transport, srv.URL),
					marketplace.NewHTMLFetcher(transport, srv.URL),
				},
				comps.WithLogger(testLogger()),
				comps.WithPacing(comps.Pacing{}),
			)

			res := eng.GetComparables(context.Background(), domain.Attributes{
				Brand:    "Nike",
				ItemType: "hoodie",
				Size:     "M",
			})

			if res.Source != tt.wantSource {
				t.Errorf("source=%s, want %s", res.Source, tt.wantSource)
			}
			if res.Count != tt.wantCount {
				t.Errorf("count=%d, want %d", res.Count, tt.wantCount)
			}
			if tt.wantCount > 0 && (res.MedianGBP == nil || *res.MedianGBP != 12.5) {
				t.Errorf("median=%v, want 12.5", res.MedianGBP)
			}
		})
	}
}
