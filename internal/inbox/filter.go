package inbox

import (
	"sort"
	"strings"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
)

// ThreadFilter narrows a listing. Zero fields match everything.
type ThreadFilter struct {
	Status enums.ThreadStatus
	Agent  string
	Query  string
}

// Filter returns matching threads, most recently updated first.
func Filter(s Snapshot, f ThreadFilter) []Thread {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Thread, 0, len(s.Threads))
	for _, t := range s.Threads {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Agent != "" && !strings.EqualFold(t.Agent, f.Agent) {
			continue
		}
		if query != "" && !threadMatches(t, query) {
			continue
		}
		out = append(out, t.clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func threadMatches(t Thread, query string) bool {
	if strings.Contains(strings.ToLower(t.Title), query) {
		return true
	}
	for _, a := range t.Artifacts {
		if strings.Contains(strings.ToLower(a.Title), query) || strings.Contains(strings.ToLower(a.Body), query) {
			return true
		}
	}
	return false
}
