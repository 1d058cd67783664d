package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/labstack/echo/v4"
)

// Pinger is the slice of the store readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	pinger  Pinger
	baseURL string
}

// NewHealthHandler creates a new HealthHandler. p may be nil when the
// service runs without a database.
func NewHealthHandler(p Pinger, baseURL string) *HealthHandler {
	return &HealthHandler{pinger: p, baseURL: baseURL}
}

// HealthOutput is the body of /health.
type HealthOutput struct {
	Body struct {
		OK         bool   `json:"ok"          example:"true"                     doc:"Always true while the process serves requests"`
		VintedBase string `json:"vinted_base" example:"https://www.vinted.co.uk" doc:"Configured marketplace origin"`
	}
}

// Health reports liveness together with the configured marketplace origin.
func (h *HealthHandler) Health(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.OK = true
	out.Body.VintedBase = h.baseURL
	return out, nil
}

// Healthz returns 200 if the process is running.
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz returns 200 if the database is reachable or not configured, 503
// otherwise.
func (h *HealthHandler) Readyz(c echo.Context) error {
	if h.pinger != nil {
		if err := h.pinger.Ping(c.Request().Context()); err != nil {
			return c.JSON(
				http.StatusServiceUnavailable,
				map[string]string{"status": "unavailable"},
			)
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

// RegisterHealthRoutes registers /health with the Huma API.
func RegisterHealthRoutes(api huma.API, h *HealthHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Service health",
		Tags:        []string{"health"},
	}, h.Health)
}
