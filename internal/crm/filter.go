package crm

import (
	"strings"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
)

// Filter narrows a computed customer list by segment and a free-text query
// over email, names and phone. Empty criteria match everything. Order is kept.
func Filter(customers []CustomerProfile, segment enums.CustomerSegment, query string) []CustomerProfile {
	query = strings.ToLower(strings.TrimSpace(query))
	if segment == "" && query == "" {
		return customers
	}
	out := make([]CustomerProfile, 0, len(customers))
	for _, c := range customers {
		if segment != "" && c.Segment != segment {
			continue
		}
		if query != "" && !matchesQuery(c, query) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesQuery(c CustomerProfile, query string) bool {
	for _, field := range []string{c.Email, c.DisplayName, c.FirstName, c.LastName, c.Phone} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}
