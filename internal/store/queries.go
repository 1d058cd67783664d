package store

// Snapshot queries.
const (
	queryInsertSnapshot = `
		INSERT INTO snapshots (
			id, query, source, count, used_count,
			median_gbp, p25_gbp, p75_gbp, examples, created_at
		) VALUES (
			@id, @query, @source, @count, @used_count,
			@median_gbp, @p25_gbp, @p75_gbp, @examples, @created_at
		)`

	queryPruneSnapshots = `DELETE FROM snapshots WHERE created_at < $1`
)

const baseSnapshotsSelect = `SELECT id::text, query, source, count, used_count,
	median_gbp, p25_gbp, p75_gbp, COALESCE(examples, '[]'), created_at
FROM snapshots`

// Migration bookkeeping.
const (
	queryCreateMigrationsTable = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	queryMigrationApplied = `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`

	queryRecordMigration = `INSERT INTO schema_migrations (version) VALUES ($1)`
)
