// Package handlers implements the HTTP surface of the comps service.
package handlers

import "github.com/danielgtaylor/huma/v2"

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

// StatusResponse is a generic status response body.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// NewAPIConfig returns the huma configuration shared by the server and the
// handler tests. Response bodies carry no "$schema" link so the price
// payload stays exactly what callers already parse.
func NewAPIConfig(version string) huma.Config {
	cfg := huma.DefaultConfig("Comps API", version)
	cfg.Info.Description = "Second-hand price comparables aggregated from marketplace listings."
	cfg.CreateHooks = nil
	return cfg
}
