package comps

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

func TestDedup(t *testing.T) {
	t.Parallel()

	a := domain.Listing{Title: "A", PriceGBP: 10, URL: "https://m.test/items/1"}
	b := domain.Listing{Title: "B", PriceGBP: 12, URL: "https://m.test/items/2"}
	c := domain.Listing{Title: "C", PriceGBP: 14, URL: "https://m.test/items/3"}

	tests := []struct {
		name string
		in   []domain.Listing
		want []domain.Listing
	}{
		{name: "keeps first seen order", in: []domain.Listing{a, b, a, c}, want: []domain.Listing{a, b, c}},
		{name: "no duplicates", in: []domain.Listing{c, b, a}, want: []domain.Listing{c, b, a}},
		{
			name: "same url different price is distinct",
			in:   []domain.Listing{a, {Title: "A", PriceGBP: 11, URL: a.URL}},
			want: []domain.Listing{a, {Title: "A", PriceGBP: 11, URL: a.URL}},
		},
		{
			name: "same url different title is distinct",
			in:   []domain.Listing{a, {Title: "A2", PriceGBP: 10, URL: a.URL}},
			want: []domain.Listing{a, {Title: "A2", PriceGBP: 10, URL: a.URL}},
		},
		{name: "all duplicates", in: []domain.Listing{b, b, b}, want: []domain.Listing{b}},
		{name: "empty", in: nil, want: []domain.Listing{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Dedup(tt.in))
		})
	}
}
