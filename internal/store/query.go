package store

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ToSQL builds the snapshot history query and its named arguments. Results
// are always newest first.
func (q *SnapshotQuery) ToSQL() (string, pgx.NamedArgs) {
	var conditions []string
	args := pgx.NamedArgs{}

	if query := strings.TrimSpace(q.Query); query != "" {
		conditions = append(conditions, "query = @query")
		args["query"] = query
	}

	if source := strings.TrimSpace(q.Source); source != "" {
		conditions = append(conditions, "source = @source")
		args["source"] = source
	}

	if q.Since != nil {
		conditions = append(conditions, "created_at >= @since")
		args["since"] = *q.Since
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	sql := fmt.Sprintf(
		"%s%s ORDER BY created_at DESC LIMIT %d",
		baseSnapshotsSelect, whereClause, limit,
	)
	return sql, args
}
