package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/donaldgifford/fliplens-comps/pkg/currency"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

const (
	// DefaultMaxItems caps listings per fetch when WithMaxItems is not set.
	DefaultMaxItems = 40

	// maxPageSize is the largest page the catalog API serves.
	maxPageSize = 40

	defaultTitle = "Item"
)

var catalogEndpoints = []string{
	"/api/v2/catalog/items",
	"/api/v2/catalog/items.json",
}

// FetcherOption configures an APIFetcher or HTMLFetcher.
type FetcherOption func(*fetcherConfig)

type fetcherConfig struct {
	maxItems int
	source   domain.Source
	log      *slog.Logger
}

// WithMaxItems caps the listings a single fetch returns.
func WithMaxItems(n int) FetcherOption {
	return func(c *fetcherConfig) {
		if n > 0 {
			c.maxItems = n
		}
	}
}

// WithSource overrides the source tag, e.g. for a browser-backed variant.
func WithSource(s domain.Source) FetcherOption {
	return func(c *fetcherConfig) {
		c.source = s
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) FetcherOption {
	return func(c *fetcherConfig) {
		c.log = l
	}
}

func newFetcherConfig(source domain.Source, opts []FetcherOption) fetcherConfig {
	c := fetcherConfig{
		maxItems: DefaultMaxItems,
		source:   source,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// APIFetcher reads listings from the marketplace's structured catalog
// search endpoint.
type APIFetcher struct {
	transport Transport
	baseURL   string
	cfg       fetcherConfig
}

// NewAPIFetcher creates an APIFetcher against baseURL (no trailing slash).
func NewAPIFetcher(t Transport, baseURL string, opts ...FetcherOption) *APIFetcher {
	return &APIFetcher{
		transport: t,
		baseURL:   strings.TrimRight(baseURL, "/"),
		cfg:       newFetcherConfig(domain.SourceAPI, opts),
	}
}

// Source implements Fetcher.Source.
func (f *APIFetcher) Source() domain.Source {
	return f.cfg.source
}

// Fetch implements Fetcher.Fetch. Each catalog endpoint is tried in turn
// and the first one yielding listings wins.
func (f *APIFetcher) Fetch(ctx context.Context, query string) Result {
	params := url.Values{}
	params.Set("search_text", query)
	params.Set("per_page", strconv.Itoa(min(f.cfg.maxItems, maxPageSize)))
	params.Set("page", "1")
	params.Set("order", "newest_first")
	params.Set("currency", "GBP")
	qs := params.Encode()

	var errs []error
	for _, ep := range catalogEndpoints {
		u := f.baseURL + ep + "?" + qs

		listings, err := f.fetchEndpoint(ctx, u)
		if err == nil {
			return Result{Source: f.cfg.source, Listings: listings}
		}

		f.cfg.log.Debug("catalog endpoint yielded nothing",
			"source", f.cfg.source,
			"endpoint", ep,
			"error", err,
		)
		errs = append(errs, fmt.Errorf("%s: %w", ep, err))
		if ctx.Err() != nil {
			break
		}
	}

	return Result{Source: f.cfg.source, Err: errors.Join(errs...)}
}

func (f *APIFetcher) fetchEndpoint(ctx context.Context, u string) ([]domain.Listing, error) {
	resp, err := f.transport.Get(ctx, u)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	items, err := decodeCatalog(resp.Body)
	if err != nil {
		return nil, err
	}

	listings := make([]domain.Listing, 0, min(len(items), f.cfg.maxItems))
	for _, raw := range items {
		if len(listings) >= f.cfg.maxItems {
			break
		}
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		price, ok := currency.FromAPIFields(item)
		if !ok {
			continue
		}
		listings = append(listings, domain.NewListing(itemTitle(item), price, f.itemURL(item)))
	}

	if len(listings) == 0 {
		return nil, ErrNoListings
	}
	return listings, nil
}

func decodeCatalog(body []byte) ([]any, error) {
	if looksBlocked(body) {
		return nil, fmt.Errorf("%w: challenge page", ErrBlocked)
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamShape, err)
	}

	items, itemsOK := doc["items"].([]any)
	if len(items) > 0 {
		return items, nil
	}
	data, dataOK := doc["data"].([]any)
	if len(data) > 0 {
		return data, nil
	}
	if !itemsOK && !dataOK {
		return nil, fmt.Errorf("%w: no items or data array", ErrUpstreamShape)
	}
	return nil, ErrNoListings
}

func itemTitle(item map[string]any) string {
	for _, k := range []string{"title", "description", "brand_title"} {
		if s, ok := item[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return defaultTitle
}

func (f *APIFetcher) itemURL(item map[string]any) string {
	for _, k := range []string{"url", "path"} {
		if s, ok := item[k].(string); ok && s != "" {
			return resolveURL(f.baseURL, s)
		}
	}

	switch id := item["id"].(type) {
	case float64:
		if id != 0 {
			return f.baseURL + "/items/" + strconv.FormatFloat(id, 'f', -1, 64)
		}
	case string:
		if id != "" {
			return f.baseURL + "/items/" + id
		}
	}
	return f.baseURL
}

// resolveURL makes ref absolute against base.
func resolveURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if strings.HasPrefix(ref, "/") {
		return base + ref
	}
	return base + "/" + ref
}

func checkStatus(resp *Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrBlocked, resp.StatusCode)
	default:
		return fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}
}

var challengeMarkers = [][]byte{
	[]byte("just a moment"),
	[]byte("cf-chl"),
	[]byte("captcha"),
}

// looksBlocked reports whether body is an HTML challenge page rather than
// a JSON document.
func looksBlocked(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return false
	}
	return hasChallengeMarker(trimmed)
}

func hasChallengeMarker(body []byte) bool {
	lower := bytes.ToLower(body)
	for _, m := range challengeMarkers {
		if bytes.Contains(lower, m) {
			return true
		}
	}
	return false
}
