// Package marketplace fetches comparable listings from the peer-to-peer
// marketplace behind interfaces for testability.
//
// Two strategies exist, a structured catalog API fetch and an HTML catalog
// page scrape. Either can run over the plain HTTP transport or the headless
// browser transport. A fetcher never returns an error past its boundary; it
// returns a Result whose Err explains why Listings is empty.
package marketplace

import (
	"context"
	"errors"

	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

// Fetcher retrieves listings for a normalized query from one source.
type Fetcher interface {
	Source() domain.Source
	Fetch(ctx context.Context, query string) Result
}

// Result is the tagged outcome of one fetcher attempt. Err is nil exactly
// when Listings is non-empty.
type Result struct {
	Source   domain.Source
	Listings []domain.Listing
	Err      error
}

// Empty reports whether the attempt produced no listings.
func (r Result) Empty() bool {
	return len(r.Listings) == 0
}

// Sentinel errors classifying an empty fetch.
var (
	ErrUpstreamStatus    = errors.New("unexpected upstream status")
	ErrBlocked           = errors.New("blocked by anti-automation")
	ErrUpstreamShape     = errors.New("unrecognised upstream response shape")
	ErrNoListings        = errors.New("no listings found")
	ErrDailyLimitReached = errors.New("daily request budget reached")
)

// Outcome labels for metrics and logs.
const (
	OutcomeOK        = "ok"
	OutcomeEmpty     = "empty"
	OutcomeBlocked   = "blocked"
	OutcomeStatus    = "status"
	OutcomeShape     = "shape"
	OutcomeTransport = "transport"
	OutcomeThrottled = "throttled"
	OutcomeCanceled  = "canceled"
)

// Outcome maps a fetch error to a low-cardinality label. When err joins
// several causes the most significant one wins.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	case errors.Is(err, ErrDailyLimitReached):
		return OutcomeThrottled
	case errors.Is(err, ErrBlocked):
		return OutcomeBlocked
	case errors.Is(err, ErrUpstreamStatus):
		return OutcomeStatus
	case errors.Is(err, ErrUpstreamShape):
		return OutcomeShape
	case errors.Is(err, ErrNoListings):
		return OutcomeEmpty
	default:
		return OutcomeTransport
	}
}
