package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

// pricePaths are tried in order; older deployments only serve /price.
var pricePaths = []string{"/api/price", "/price"}

// Health is the body of GET /health.
type Health struct {
	OK         bool   `json:"ok"`
	VintedBase string `json:"vinted_base"`
}

// Quota is the body of GET /api/v1/quota.
type Quota struct {
	DailyLimit int64     `json:"daily_limit"`
	DailyUsed  int64     `json:"daily_used"`
	Remaining  int64     `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

// SnapshotsQuery filters ListSnapshots.
type SnapshotsQuery struct {
	Query  string
	Source string
	Limit  int
}

// Price fetches comparables for attrs. A 404 carrying a well-formed zero
// result is not an error; the zero result is returned once every path has
// been tried.
func (c *Client) Price(ctx context.Context, attrs domain.Attributes) (*domain.Result, error) {
	params := url.Values{}
	params.Set("brand", attrs.Brand)
	params.Set("item_type", attrs.ItemType)
	params.Set("size", attrs.Size)
	params.Set("colour", attrs.Colour)

	var (
		notFound *domain.Result
		errs     []error
	)
	for _, path := range pricePaths {
		var res domain.Result
		err := c.get(ctx, path, params, &res)
		if err == nil {
			return &res, nil
		}

		if statusOf(err) == http.StatusNotFound && notFound == nil {
			if zero, ok := decodeZeroResult(err); ok {
				notFound = zero
			}
		}
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}

	if notFound != nil {
		return notFound, nil
	}
	return nil, errors.Join(errs...)
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Quota calls GET /api/v1/quota.
func (c *Client) Quota(ctx context.Context) (*Quota, error) {
	var q Quota
	if err := c.get(ctx, "/api/v1/quota", nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// ListSnapshots calls GET /api/v1/snapshots.
func (c *Client) ListSnapshots(ctx context.Context, q SnapshotsQuery) ([]domain.Snapshot, error) {
	params := url.Values{}
	if q.Query != "" {
		params.Set("query", q.Query)
	}
	if q.Source != "" {
		params.Set("source", q.Source)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var snapshots []domain.Snapshot
	if err := c.get(ctx, "/api/v1/snapshots", params, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// decodeZeroResult reads a zero-result body out of a 404. Route-level 404s
// from servers without the endpoint carry no "query" key and are rejected.
func decodeZeroResult(err error) (*domain.Result, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return nil, false
	}

	var probe map[string]json.RawMessage
	if json.Unmarshal([]byte(apiErr.Body), &probe) != nil {
		return nil, false
	}
	if _, ok := probe["query"]; !ok {
		return nil, false
	}

	var res domain.Result
	if json.Unmarshal([]byte(apiErr.Body), &res) != nil {
		return nil, false
	}
	if res.Examples == nil {
		res.Examples = []domain.Example{}
	}
	return &res, true
}
