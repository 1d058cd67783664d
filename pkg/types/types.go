// Package domain defines the core business types for the comparables engine.
package domain

import (
	"slices"
	"time"
	"unicode/utf8"
)

// MaxTitleLen is the maximum number of characters kept from a listing title.
const MaxTitleLen = 120

// Source identifies which fetcher supplied the listings behind a result.
type Source string

// Source constants, in cascade priority order.
const (
	SourceAPI         Source = "api"
	SourceHTML        Source = "html"
	SourceBrowserAPI  Source = "browser-api"
	SourceBrowserHTML Source = "browser-html"
	SourceNone        Source = "none"
)

// Attributes is the structured item description a caller prices.
// Every field is optional.
type Attributes struct {
	Brand    string `json:"brand"`
	ItemType string `json:"item_type"`
	Size     string `json:"size"`
	Colour   string `json:"colour"`
}

// Listing is a single comparable listing produced by a fetcher.
// PriceGBP is always in the open interval (0, 10000).
type Listing struct {
	Title    string  `json:"title"`
	PriceGBP float64 `json:"price_gbp"`
	URL      string  `json:"url"`
}

// NewListing builds a Listing, truncating the title to MaxTitleLen characters.
func NewListing(title string, priceGBP float64, url string) Listing {
	return Listing{
		Title:    TruncateTitle(title),
		PriceGBP: priceGBP,
		URL:      url,
	}
}

// TruncateTitle cuts s to at most MaxTitleLen runes.
func TruncateTitle(s string) string {
	if utf8.RuneCountInString(s) <= MaxTitleLen {
		return s
	}
	r := []rune(s)
	return string(r[:MaxTitleLen])
}

// Example is the display projection of a Listing returned to callers.
type Example struct {
	Title    string  `json:"title"     doc:"Listing title"`
	PriceGBP float64 `json:"price_gbp" doc:"Price in GBP rounded to 2 decimals"`
	URL      string  `json:"url"       doc:"Absolute listing URL"`
}

// Clamp holds the soft price bounds applied before outlier trimming.
type Clamp struct {
	Min float64 `json:"min" doc:"Lower soft bound in GBP"`
	Max float64 `json:"max" doc:"Upper soft bound in GBP"`
}

// Result is the aggregated comparables estimate for one normalized query.
// Count is the raw listing count before clamp and IQR filtering.
type Result struct {
	Query         string    `json:"query"            doc:"Normalized query string"`
	Count         int       `json:"count"            doc:"Raw listings found before filtering"`
	MedianGBP     *float64  `json:"median_price_gbp" doc:"Median price in GBP" required:"false"`
	P25GBP        *float64  `json:"p25_gbp"          doc:"25th percentile in GBP" required:"false"`
	P75GBP        *float64  `json:"p75_gbp"          doc:"75th percentile in GBP" required:"false"`
	Examples      []Example `json:"examples"         doc:"Example listings"`
	Source        Source    `json:"source"           doc:"Fetcher that supplied the data"`
	OutlierFilter bool      `json:"outlier_filter"   doc:"Whether IQR trimming was enabled"`
	Clamp         Clamp     `json:"clamp"            doc:"Soft clamp bounds"`
	Cache         bool      `json:"cache,omitempty"  doc:"Set when served from cache"`
}

// Found reports whether any raw listings backed the result.
func (r *Result) Found() bool {
	return r.Count > 0
}

// Clone returns a deep copy of r so callers can mutate it freely.
func (r *Result) Clone() Result {
	c := *r
	c.MedianGBP = clonePtr(r.MedianGBP)
	c.P25GBP = clonePtr(r.P25GBP)
	c.P75GBP = clonePtr(r.P75GBP)
	c.Examples = slices.Clone(r.Examples)
	if c.Examples == nil {
		c.Examples = []Example{}
	}
	return c
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Snapshot is a persisted copy of a freshly computed Result.
type Snapshot struct {
	ID        string    `json:"id"               db:"id"`
	Query     string    `json:"query"            db:"query"`
	Source    Source    `json:"source"           db:"source"`
	Count     int       `json:"count"            db:"count"`
	UsedCount int       `json:"used_count"       db:"used_count"`
	MedianGBP *float64  `json:"median_price_gbp" db:"median_gbp"`
	P25GBP    *float64  `json:"p25_gbp"          db:"p25_gbp"`
	P75GBP    *float64  `json:"p75_gbp"          db:"p75_gbp"`
	Examples  []Example `json:"examples"         db:"examples"`
	CreatedAt time.Time `json:"created_at"       db:"created_at"`
}
