package comps

import domain "github.com/donaldgifford/fliplens-comps/pkg/types"

// Dedup removes listings that repeat exactly on (url, title, price),
// keeping the first occurrence and the relative order of survivors.
func Dedup(listings []domain.Listing) []domain.Listing {
	seen := make(map[domain.Listing]struct{}, len(listings))
	out := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
