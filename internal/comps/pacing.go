package comps

import (
	"context"
	"time"

	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

// Pacing is the fixed delay inserted before each fallback attempt, keyed by
// the source about to run. The first attempt is never delayed.
type Pacing struct {
	BeforeHTML        time.Duration
	BeforeBrowserAPI  time.Duration
	BeforeBrowserHTML time.Duration
}

// DefaultPacing returns the standard delays between cascade attempts.
func DefaultPacing() Pacing {
	return Pacing{
		BeforeHTML:        400 * time.Millisecond,
		BeforeBrowserAPI:  200 * time.Millisecond,
		BeforeBrowserHTML: 400 * time.Millisecond,
	}
}

// Before returns the delay to wait before an attempt against s.
func (p Pacing) Before(s domain.Source) time.Duration {
	switch s {
	case domain.SourceHTML:
		return p.BeforeHTML
	case domain.SourceBrowserAPI:
		return p.BeforeBrowserAPI
	case domain.SourceBrowserHTML:
		return p.BeforeBrowserHTML
	default:
		return 0
	}
}

// sleep waits for d or until ctx ends, whichever is first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
