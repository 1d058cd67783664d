// Package main implements a mock marketplace origin for local development.
// It serves the catalog JSON API and the catalog HTML search page from a
// JSON fixture, and can simulate a blocked API or a challenge page so every
// stage of the fetch cascade can be exercised without touching the real site.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Modes select which parts of the origin misbehave.
const (
	modeOK        = "ok"        // API and HTML both serve listings
	modeHTMLOnly  = "html-only" // API answers 403, HTML serves listings
	modeChallenge = "challenge" // API answers 429, HTML serves a challenge page
)

type catalogFixture struct {
	Items []catalogItem `json:"items"`
}

type catalogItem struct {
	ID         int64        `json:"id"`
	Title      string       `json:"title"`
	BrandTitle string       `json:"brand_title"`
	Price      catalogPrice `json:"price"`
	Path       string       `json:"path"`
}

type catalogPrice struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

func main() {
	port := flag.Int("port", 8090, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/catalog.json", "path to catalog fixture")
	mode := flag.String("mode", modeOK, "origin behaviour: ok, html-only, challenge")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fixture, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "items", len(fixture.Items), "mode", *mode)

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock marketplace", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, newMux(logger, fixture, *mode)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newMux(logger *slog.Logger, fixture *catalogFixture, mode string) *http.ServeMux {
	api := catalogAPIHandler(logger, fixture, mode)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/catalog/items", api)
	mux.HandleFunc("GET /api/v2/catalog/items.json", api)
	mux.HandleFunc("GET /catalog", catalogHTMLHandler(logger, fixture, mode))
	mux.HandleFunc("GET /items/{slug}", itemHandler(fixture))
	return mux
}

func loadFixture(path string) (*catalogFixture, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var f catalogFixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return &f, nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

// search returns fixture items whose title or brand contains every token of
// the search text, case-insensitively.
func search(fixture *catalogFixture, text string, limit int) []catalogItem {
	tokens := strings.Fields(strings.ToLower(text))

	matched := make([]catalogItem, 0, len(fixture.Items))
	for _, item := range fixture.Items {
		haystack := strings.ToLower(item.Title + " " + item.BrandTitle)
		ok := true
		for _, tok := range tokens {
			if !strings.Contains(haystack, tok) {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, item)
		}
		if limit > 0 && len(matched) >= limit {
			break
		}
	}
	return matched
}

func catalogAPIHandler(logger *slog.Logger, fixture *catalogFixture, mode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch mode {
		case modeHTMLOnly:
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		case modeChallenge:
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}

		limit := 40
		if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 {
			limit = v
		}

		text := r.URL.Query().Get("search_text")
		items := search(fixture, text, limit)

		w.Header().Set("Content-Type", "application/json")
		//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
		json.NewEncoder(w).Encode(catalogFixture{Items: items})
		logger.Info("catalog api", "query", text, "returned", len(items))
	}
}

var catalogPage = template.Must(template.New("catalog").Parse(`<!DOCTYPE html>
<html><head><title>Catalog</title></head>
<body>
<div class="feed-grid">
{{- range .}}
  <div class="feed-grid__item">
    <a href="{{.Path}}" aria-label="{{.Title}}"><img alt="{{.Title}}"></a>
    <p class="price">£{{.Price.Amount}}</p>
  </div>
{{- end}}
</div>
</body></html>
`))

const challengePage = `<!DOCTYPE html>
<html><head><title>Just a moment...</title></head>
<body><div id="cf-chl-widget">Checking your browser</div></body></html>
`

func catalogHTMLHandler(logger *slog.Logger, fixture *catalogFixture, mode string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		if mode == modeChallenge {
			w.WriteHeader(http.StatusForbidden)
			//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
			w.Write([]byte(challengePage))
			logger.Info("catalog html challenged")
			return
		}

		text := r.URL.Query().Get("search_text")
		items := search(fixture, text, 0)
		if err := catalogPage.Execute(w, items); err != nil {
			logger.Error("rendering catalog page", "error", err)
			return
		}
		logger.Info("catalog html", "query", text, "returned", len(items))
	}
}

func itemHandler(fixture *catalogFixture) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, item := range fixture.Items {
			if strings.TrimPrefix(item.Path, "/items/") == r.PathValue("slug") {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
				fmt.Fprintf(w, "<html><body><h1>%s</h1><p>£%s</p></body></html>",
					template.HTMLEscapeString(item.Title), item.Price.Amount)
				return
			}
		}
		http.NotFound(w, r)
	}
}
