package comps

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/fliplens-comps/internal/marketplace"
	"github.com/donaldgifford/fliplens-comps/internal/metrics"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

// winner is the first non-empty fetch of a cascade, or SourceNone.
type winner struct {
	Source   domain.Source
	Listings []domain.Listing
}

// runCascade tries each stage strictly in order and stops at the first one
// that yields listings. Results from different stages are never merged.
func (e *Engine) runCascade(ctx context.Context, q string) winner {
	for i, st := range e.stages {
		if i > 0 {
			if err := sleep(ctx, e.pacing.Before(st.source)); err != nil {
				e.log.Info("cascade aborted during pacing",
					"query", q,
					"next_source", st.source,
					"error", err,
				)
				break
			}
		}

		res := e.attempt(ctx, st, q)
		if !res.Empty() {
			return winner{Source: st.source, Listings: res.Listings}
		}
		if ctx.Err() != nil {
			break
		}
	}
	return winner{Source: domain.SourceNone}
}

func (e *Engine) attempt(ctx context.Context, st stage, q string) marketplace.Result {
	ctx, span := e.tracer.Start(ctx, "comps.fetch",
		trace.WithAttributes(attribute.String("comps.source", string(st.source))),
	)
	defer span.End()

	start := time.Now()
	res := st.fetcher.Fetch(ctx, q)
	elapsed := time.Since(start)

	outcome := marketplace.Outcome(res.Err)
	if res.Err == nil && res.Empty() {
		outcome = marketplace.OutcomeEmpty
	}

	metrics.FetchAttemptsTotal.WithLabelValues(string(st.source), outcome).Inc()
	metrics.FetchDuration.WithLabelValues(string(st.source)).Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.String("comps.outcome", outcome),
		attribute.Int("comps.listings", len(res.Listings)),
	)

	attrs := []any{
		"query", q,
		"source", st.source,
		"outcome", outcome,
		"listings", len(res.Listings),
		"duration_ms", elapsed.Milliseconds(),
	}
	if res.Empty() {
		if res.Err != nil {
			span.SetStatus(codes.Error, outcome)
			attrs = append(attrs, "error", res.Err)
		}
		e.log.Info("fetch attempt empty", attrs...)
	} else {
		e.log.Debug("fetch attempt succeeded", attrs...)
	}
	return res
}
