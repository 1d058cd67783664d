package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/fliplens-comps/internal/store"
	"github.com/donaldgifford/fliplens-comps/pkg/query"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

// SnapshotsHandler exposes persisted result history.
type SnapshotsHandler struct {
	store store.Store
}

// NewSnapshotsHandler creates a new SnapshotsHandler. s may be nil, in which
// case every request answers 503.
func NewSnapshotsHandler(s store.Store) *SnapshotsHandler {
	return &SnapshotsHandler{store: s}
}

// ListSnapshotsInput filters snapshot history.
type ListSnapshotsInput struct {
	Query  string    `query:"query"  doc:"Query string, normalized before matching" example:"nike hoodie"`
	Source string    `query:"source" doc:"Source tag"                               example:"api"`
	Since  time.Time `query:"since"  doc:"Only snapshots created at or after this time"`
	Limit  int       `query:"limit"  doc:"Maximum rows to return"                                   default:"50" minimum:"1" maximum:"500"`
}

// ListSnapshotsOutput is the snapshot history response.
type ListSnapshotsOutput struct {
	Body []domain.Snapshot
}

// ListSnapshots returns snapshots newest first.
func (h *SnapshotsHandler) ListSnapshots(
	ctx context.Context,
	input *ListSnapshotsInput,
) (*ListSnapshotsOutput, error) {
	if h.store == nil {
		return nil, huma.Error503ServiceUnavailable("snapshot history is not configured")
	}

	q := &store.SnapshotQuery{
		Query:  query.Join(input.Query),
		Source: input.Source,
		Limit:  input.Limit,
	}
	if !input.Since.IsZero() {
		since := input.Since
		q.Since = &since
	}

	snapshots, err := h.store.ListSnapshots(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list snapshots: " + err.Error())
	}
	if snapshots == nil {
		snapshots = []domain.Snapshot{}
	}

	return &ListSnapshotsOutput{Body: snapshots}, nil
}

// RegisterSnapshotRoutes registers the snapshot history endpoint.
func RegisterSnapshotRoutes(api huma.API, h *SnapshotsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-snapshots",
		Method:      http.MethodGet,
		Path:        "/api/v1/snapshots",
		Summary:     "List result snapshots",
		Description: "Returns persisted comparables results, newest first.",
		Tags:        []string{"history"},
		Errors:      []int{http.StatusServiceUnavailable},
	}, h.ListSnapshots)
}
