package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/fliplens-comps/internal/pricing"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

func TestPence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   *int64
		want string
	}{
		{name: "nil", in: nil, want: "-"},
		{name: "whole pounds", in: ptr(int64(1200)), want: "£12.00"},
		{name: "pads pence", in: ptr(int64(1205)), want: "£12.05"},
		{name: "below a pound", in: ptr(int64(50)), want: "£0.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, pence(tt.in))
		})
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ééééééé...", truncate("éééééééééééé", 10))
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := printResult(&buf, &domain.Result{
		Query:     "nike hoodie",
		Count:     6,
		MedianGBP: ptr(12.0),
		Examples: []domain.Example{
			{Title: "Nike hoodie", PriceGBP: 12, URL: "https://market.test/items/1"},
		},
		Source: domain.SourceAPI,
		Clamp:  domain.Clamp{Min: 2, Max: 500},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "nike hoodie")
	assert.Contains(t, out, "£12.00")
	assert.Contains(t, out, "P25:")
	assert.Contains(t, out, "https://market.test/items/1")
}

func TestPrintEstimate_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, printEstimate(&buf, &pricing.Estimate{}))
	assert.Contains(t, buf.String(), "Suggested:")
	assert.NotContains(t, buf.String(), "TITLE")
}

func ptr[T any](v T) *T {
	return &v
}
