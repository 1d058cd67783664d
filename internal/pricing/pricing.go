// Package pricing turns comps results into the pence-denominated price
// suggestions shown to sellers. It calls the comps API over HTTP and keeps a
// small cache of its own.
package pricing

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/donaldgifford/fliplens-comps/internal/cache"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

const (
	// DefaultMinPence and DefaultMaxPence bound every suggested value.
	DefaultMinPence int64 = 50
	DefaultMaxPence int64 = 50000

	defaultCacheTTL   = 600 * time.Second
	defaultMaxEntries = 512
	maxExamples       = 5
)

// PriceSource fetches comparables. *client.Client satisfies it.
type PriceSource interface {
	Price(ctx context.Context, attrs domain.Attributes) (*domain.Result, error)
}

// Request describes the item being priced.
type Request struct {
	Brand     string
	Category  string
	Size      string
	Colour    string
	Condition string
}

// Estimate is a suggested price band in pence. Nil values mean no estimate.
type Estimate struct {
	LowPence  *int64           `json:"p25"`
	MidPence  *int64           `json:"value"`
	HighPence *int64           `json:"p75"`
	Examples  []domain.Example `json:"examples"`
}

// HasPrices reports whether any band value is set.
func (e *Estimate) HasPrices() bool {
	return e.LowPence != nil || e.MidPence != nil || e.HighPence != nil
}

type cacheKey struct {
	brand, category, size, colour, condition string
}

// Service suggests prices.
type Service struct {
	source   PriceSource
	minPence int64
	maxPence int64
	cacheTTL time.Duration
	nowFunc  func() time.Time
	cache    *cache.TTL[Estimate]
	log      *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithBounds sets the pence clamp. A max below min is raised to min and a
// negative min is treated as zero.
func WithBounds(minPence, maxPence int64) Option {
	return func(s *Service) {
		s.minPence = max(minPence, 0)
		s.maxPence = max(maxPence, s.minPence)
	}
}

// WithCacheTTL sets how long estimates are reused.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		s.cacheTTL = d
	}
}

// WithNowFunc overrides the clock.
func WithNowFunc(f func() time.Time) Option {
	return func(s *Service) {
		s.nowFunc = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates a Service. A nil source disables suggestions: every
// call returns an empty Estimate.
func NewService(source PriceSource, opts ...Option) *Service {
	s := &Service{
		source:   source,
		minPence: DefaultMinPence,
		maxPence: DefaultMaxPence,
		cacheTTL: defaultCacheTTL,
		nowFunc:  time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = cache.New[Estimate](
		s.cacheTTL,
		cache.WithMaxEntries(defaultMaxEntries),
		cache.WithNowFunc(func() time.Time { return s.nowFunc() }),
	)
	return s
}

// Suggest returns a price band for req. Upstream failures are logged and
// yield an empty estimate, which is cached like any other.
func (s *Service) Suggest(ctx context.Context, req Request) Estimate {
	if s.source == nil {
		return Estimate{Examples: []domain.Example{}}
	}

	key := newCacheKey(req).String()
	if entry, fresh := s.cache.Get(key); fresh {
		return clone(entry.Value)
	}

	res, err := s.source.Price(ctx, domain.Attributes{
		Brand:    req.Brand,
		ItemType: req.Category,
		Size:     req.Size,
		Colour:   req.Colour,
	})
	if err != nil {
		s.log.Warn("pricing fetch failed", "error", err, "brand", req.Brand, "category", req.Category)
		if ctx.Err() != nil {
			return Estimate{Examples: []domain.Example{}}
		}
	}

	est := s.build(res)
	s.cache.Put(key, est)
	return clone(est)
}

func (s *Service) build(res *domain.Result) Estimate {
	est := Estimate{Examples: []domain.Example{}}
	if res == nil {
		return est
	}

	est.LowPence = s.toPence(res.P25GBP)
	est.MidPence = s.toPence(res.MedianGBP)
	est.HighPence = s.toPence(res.P75GBP)

	n := min(len(res.Examples), maxExamples)
	est.Examples = append(est.Examples, res.Examples[:n]...)
	return est
}

// toPence converts a GBP amount to clamped integer pence. Missing or
// non-positive amounts give nil.
func (s *Service) toPence(gbp *float64) *int64 {
	if gbp == nil || *gbp <= 0 || math.IsNaN(*gbp) || math.IsInf(*gbp, 0) {
		return nil
	}
	p := int64(math.Round(*gbp * 100))
	p = max(s.minPence, min(s.maxPence, p))
	return &p
}

func newCacheKey(req Request) cacheKey {
	norm := func(v string) string { return strings.ToLower(strings.TrimSpace(v)) }
	return cacheKey{
		brand:     norm(req.Brand),
		category:  norm(req.Category),
		size:      norm(req.Size),
		colour:    norm(req.Colour),
		condition: norm(req.Condition),
	}
}

func (k cacheKey) String() string {
	return strings.Join([]string{k.brand, k.category, k.size, k.colour, k.condition}, "\x1f")
}

func clone(e Estimate) Estimate {
	c := Estimate{Examples: make([]domain.Example, len(e.Examples))}
	copy(c.Examples, e.Examples)
	if e.LowPence != nil {
		v := *e.LowPence
		c.LowPence = &v
	}
	if e.MidPence != nil {
		v := *e.MidPence
		c.MidPence = &v
	}
	if e.HighPence != nil {
		v := *e.HighPence
		c.HighPence = &v
	}
	return c
}
