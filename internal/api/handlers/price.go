package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/fliplens-comps/internal/comps"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

// PriceHandler serves comparables estimates.
type PriceHandler struct {
	comparer comps.Comparer
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(c comps.Comparer) *PriceHandler {
	return &PriceHandler{comparer: c}
}

// PriceInput is the query string accepted by the price endpoints. Every
// field is optional.
type PriceInput struct {
	Brand    string `query:"brand"     doc:"Brand name"          example:"Nike"`
	ItemType string `query:"item_type" doc:"Item type"           example:"hoodie"`
	Size     string `query:"size"      doc:"Size label"          example:"M"`
	Colour   string `query:"colour"    doc:"Colour"              example:"grey"`
}

// PriceOutput is the comparables estimate. Status is 404 when no listings
// were found; the body keeps the same shape either way.
type PriceOutput struct {
	Status int
	Body   domain.Result
}

// GetPrice aggregates comparables for the requested attributes.
func (h *PriceHandler) GetPrice(ctx context.Context, input *PriceInput) (*PriceOutput, error) {
	res := h.comparer.GetComparables(ctx, domain.Attributes{
		Brand:    input.Brand,
		ItemType: input.ItemType,
		Size:     input.Size,
		Colour:   input.Colour,
	})

	status := http.StatusOK
	if !res.Found() {
		status = http.StatusNotFound
	}
	return &PriceOutput{Status: status, Body: res}, nil
}

// RegisterPriceRoutes registers /api/price and its /price alias.
func RegisterPriceRoutes(api huma.API, h *PriceHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-price",
		Method:      http.MethodGet,
		Path:        "/api/price",
		Summary:     "Get price comparables",
		Description: "Returns the median and interquartile prices of comparable listings. " +
			"Responds 404 with the same body shape when nothing was found.",
		Tags: []string{"price"},
	}, h.GetPrice)

	huma.Register(api, huma.Operation{
		OperationID: "get-price-alias",
		Method:      http.MethodGet,
		Path:        "/price",
		Summary:     "Get price comparables (alias)",
		Description: "Alias of /api/price kept for older clients.",
		Tags:        []string{"price"},
	}, h.GetPrice)
}
