// Package store persists comparables snapshots. The engine only depends on
// the Store interface, so it runs unchanged with or without a database.
package store

import (
	"context"
	"time"

	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

// SnapshotQuery defines optional filters for snapshot history queries.
type SnapshotQuery struct {
	Query  string
	Source string
	Since  *time.Time
	Limit  int // default 50
}

// Store defines the snapshot history operations.
type Store interface {
	SaveSnapshot(ctx context.Context, s *domain.Snapshot) error
	ListSnapshots(ctx context.Context, q *SnapshotQuery) ([]domain.Snapshot, error)
	PruneSnapshots(ctx context.Context, before time.Time) (int64, error)

	// Migrations
	Migrate(ctx context.Context) error

	// Health
	Ping(ctx context.Context) error
}
