package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    *pgxpool.Pool
	nowFunc func() time.Time
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool, nowFunc: time.Now}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// SaveSnapshot inserts snap, assigning its ID and CreatedAt when unset.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = s.nowFunc().UTC()
	}

	examples := snap.Examples
	if examples == nil {
		examples = []domain.Example{}
	}
	raw, err := json.Marshal(examples)
	if err != nil {
		return fmt.Errorf("marshaling examples: %w", err)
	}

	args := pgx.NamedArgs{
		"id":         snap.ID,
		"query":      snap.Query,
		"source":     string(snap.Source),
		"count":      snap.Count,
		"used_count": snap.UsedCount,
		"median_gbp": snap.MedianGBP,
		"p25_gbp":    snap.P25GBP,
		"p75_gbp":    snap.P75GBP,
		"examples":   raw,
		"created_at": snap.CreatedAt,
	}

	if _, err := s.pool.Exec(ctx, queryInsertSnapshot, args); err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns snapshot history matching q, newest first.
func (s *PostgresStore) ListSnapshots(ctx context.Context, q *SnapshotQuery) ([]domain.Snapshot, error) {
	if q == nil {
		q = &SnapshotQuery{}
	}
	sql, args := q.ToSQL()

	rows, err := s.pool.Query(ctx, sql, args)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []domain.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// PruneSnapshots deletes snapshots created before the cutoff and reports how
// many were removed.
func (s *PostgresStore) PruneSnapshots(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, queryPruneSnapshots, before)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSnapshot(row pgx.Row) (domain.Snapshot, error) {
	var (
		snap     domain.Snapshot
		source   string
		examples []byte
	)

	if err := row.Scan(
		&snap.ID, &snap.Query, &source, &snap.Count, &snap.UsedCount,
		&snap.MedianGBP, &snap.P25GBP, &snap.P75GBP, &examples, &snap.CreatedAt,
	); err != nil {
		return snap, err
	}

	snap.Source = domain.Source(source)
	if err := json.Unmarshal(examples, &snap.Examples); err != nil {
		return snap, fmt.Errorf("decoding examples: %w", err)
	}
	if snap.Examples == nil {
		snap.Examples = []domain.Example{}
	}
	return snap, nil
}
