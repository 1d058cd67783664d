package marketplace

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/donaldgifford/fliplens-comps/pkg/currency"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

const itemAnchorSelector = "a[href*='/items/']"

// HTMLFetcher scrapes listings from the marketplace's catalog search page.
type HTMLFetcher struct {
	transport Transport
	baseURL   string
	cfg       fetcherConfig
}

// NewHTMLFetcher creates an HTMLFetcher against baseURL (no trailing slash).
func NewHTMLFetcher(t Transport, baseURL string, opts ...FetcherOption) *HTMLFetcher {
	return &HTMLFetcher{
		transport: t,
		baseURL:   strings.TrimRight(baseURL, "/"),
		cfg:       newFetcherConfig(domain.SourceHTML, opts),
	}
}

// Source implements Fetcher.Source.
func (f *HTMLFetcher) Source() domain.Source {
	return f.cfg.source
}

// Fetch implements Fetcher.Fetch.
func (f *HTMLFetcher) Fetch(ctx context.Context, query string) Result {
	listings, err := f.fetch(ctx, query)
	if err != nil {
		f.cfg.log.Debug("catalog page yielded nothing",
			"source", f.cfg.source,
			"error", err,
		)
		return Result{Source: f.cfg.source, Err: err}
	}
	return Result{Source: f.cfg.source, Listings: listings}
}

func (f *HTMLFetcher) fetch(ctx context.Context, query string) ([]domain.Listing, error) {
	params := url.Values{}
	params.Set("search_text", query)
	params.Set("order", "newest_first")

	resp, err := f.transport.Get(ctx, f.baseURL+"/catalog?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing catalog page: %w", ErrUpstreamShape, err)
	}

	anchors := doc.Find(itemAnchorSelector)
	if anchors.Length() == 0 {
		if hasChallengeMarker(resp.Body) {
			return nil, fmt.Errorf("%w: challenge page", ErrBlocked)
		}
		return nil, ErrNoListings
	}
	if anchors.Length() > f.cfg.maxItems {
		anchors = anchors.Slice(0, f.cfg.maxItems)
	}

	var listings []domain.Listing
	anchors.Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" {
			return
		}

		price, ok := priceNear(a)
		if !ok {
			return
		}

		listings = append(listings, domain.NewListing(anchorTitle(a), price, f.absURL(href)))
	})

	if len(listings) == 0 {
		return nil, ErrNoListings
	}
	return listings, nil
}

func (f *HTMLFetcher) absURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return resolveURL(f.baseURL, href)
}

// priceNear looks for price text in the anchor, then its parent, then its
// grandparent.
func priceNear(a *goquery.Selection) (float64, bool) {
	scope := a
	for range 3 {
		if scope.Length() == 0 {
			break
		}
		if v, ok := currency.FromText(nodeText(scope)); ok {
			return v, true
		}
		scope = scope.Parent()
	}
	return 0, false
}

func anchorTitle(a *goquery.Selection) string {
	if label, ok := a.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return label
	}
	if text := nodeText(a); text != "" {
		return text
	}
	return defaultTitle
}

// nodeText joins the trimmed text nodes under the first node of sel with
// single spaces, skipping script and style content. goquery's Text
// concatenates without separators, which glues adjacent prices together.
func nodeText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	var parts []string
	collectText(sel.Get(0), &parts)
	return strings.Join(parts, " ")
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if s := strings.TrimSpace(n.Data); s != "" {
			*parts = append(*parts, s)
		}
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
