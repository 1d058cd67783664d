package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/fliplens-comps/internal/marketplace"
)

// QuotaHandler provides the marketplace request budget endpoint.
type QuotaHandler struct {
	rl *marketplace.RateLimiter
}

// NewQuotaHandler creates a new QuotaHandler.
func NewQuotaHandler(rl *marketplace.RateLimiter) *QuotaHandler {
	return &QuotaHandler{rl: rl}
}

// QuotaOutput is the response body for the quota endpoint.
type QuotaOutput struct {
	Body struct {
		DailyLimit int64     `json:"daily_limit" example:"5000"                 doc:"Configured daily request budget, 0 when unlimited"`
		DailyUsed  int64     `json:"daily_used"  example:"142"                  doc:"Requests made in the current 24-hour window"`
		Remaining  int64     `json:"remaining"   example:"4858"                 doc:"Requests remaining in the current window"`
		ResetAt    time.Time `json:"reset_at"    example:"2026-06-16T14:30:00Z" doc:"When the current 24-hour window expires"`
	}
}

// GetQuota returns the current marketplace request budget.
func (h *QuotaHandler) GetQuota(_ context.Context, _ *struct{}) (*QuotaOutput, error) {
	resp := &QuotaOutput{}
	if h.rl == nil {
		return resp, nil
	}

	u := h.rl.Usage()
	resp.Body.DailyLimit = u.Limit
	resp.Body.DailyUsed = u.Used
	resp.Body.Remaining = u.Remaining
	resp.Body.ResetAt = u.ResetAt

	return resp, nil
}

// RegisterQuotaRoutes registers the quota endpoint with the Huma API.
func RegisterQuotaRoutes(api huma.API, h *QuotaHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-quota",
		Method:      http.MethodGet,
		Path:        "/api/v1/quota",
		Summary:     "Get marketplace request budget",
		Description: "Returns the daily request usage, remaining budget, and window reset time.",
		Tags:        []string{"marketplace"},
	}, h.GetQuota)
}
