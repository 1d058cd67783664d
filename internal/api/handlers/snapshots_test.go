package handlers_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/fliplens-comps/internal/api/handlers"
	"github.com/donaldgifford/fliplens-comps/internal/store"
	storeMocks "github.com/donaldgifford/fliplens-comps/internal/store/mocks"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

func TestListSnapshots_Success(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().ListSnapshots(mock.Anything, &store.SnapshotQuery{
		Query:  "nike hoodie",
		Source: "api",
		Limit:  10,
	}).Return([]domain.Snapshot{
		{ID: "s1", Query: "nike hoodie", Source: domain.SourceAPI, Count: 7, MedianGBP: ptr(12.0)},
	}, nil).Once()

	_, api := humatest.New(t, handlers.NewAPIConfig("test"))
	handlers.RegisterSnapshotRoutes(api, handlers.NewSnapshotsHandler(ms))

	resp := api.Get("/api/v1/snapshots?query=%20nike%20%20hoodie&source=api&limit=10")
	require.Equal(t, http.StatusOK, resp.Code)

	var body []domain.Snapshot
	decodeJSON(t, resp.Body.Bytes(), &body)
	require.Len(t, body, 1)
	assert.Equal(t, "s1", body[0].ID)
}

func TestListSnapshots_DefaultLimitAndSince(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().ListSnapshots(mock.Anything, mock.MatchedBy(func(q *store.SnapshotQuery) bool {
		return q.Limit == 50 && q.Since != nil && q.Since.Year() == 2026
	})).Return(nil, nil).Once()

	_, api := humatest.New(t, handlers.NewAPIConfig("test"))
	handlers.RegisterSnapshotRoutes(api, handlers.NewSnapshotsHandler(ms))

	resp := api.Get("/api/v1/snapshots?since=2026-01-02T00:00:00Z")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `[]`, resp.Body.String())
}

func TestListSnapshots_StoreError(t *testing.T) {
	t.Parallel()

	ms := storeMocks.NewMockStore(t)
	ms.EXPECT().ListSnapshots(mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

	_, api := humatest.New(t, handlers.NewAPIConfig("test"))
	handlers.RegisterSnapshotRoutes(api, handlers.NewSnapshotsHandler(ms))

	resp := api.Get("/api/v1/snapshots")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestListSnapshots_NoStore(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t, handlers.NewAPIConfig("test"))
	handlers.RegisterSnapshotRoutes(api, handlers.NewSnapshotsHandler(nil))

	resp := api.Get("/api/v1/snapshots")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
