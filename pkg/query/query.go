// Package query builds the canonical query string used both as the upstream
// search text and as the cache key.
package query

import (
	"strings"

	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

// Normalize joins the non-empty, trimmed attribute values with single spaces
// and collapses any remaining whitespace runs. All-empty input yields "".
func Normalize(a domain.Attributes) string {
	return Join(a.Brand, a.ItemType, a.Size, a.Colour)
}

// Join normalizes an arbitrary list of parts the same way Normalize does.
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(strings.Fields(strings.Join(kept, " ")), " ")
}
