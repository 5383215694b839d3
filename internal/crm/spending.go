package crm

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpendingSummary is a precomputed per-customer spend aggregate, typically from
// the warehouse, that may cover orders the live order store no longer holds.
type SpendingSummary struct {
	Email        string
	TotalSpent   decimal.Decimal
	OrderCount   int
	FirstOrderAt *time.Time
	LastOrderAt  *time.Time
}

// ApplySpending overrides order aggregates with summaries that account for more
// orders than the profile saw. Summaries for unknown emails are ignored. The
// input slice is not modified.
func ApplySpending(profiles []CustomerProfile, summaries []SpendingSummary) []CustomerProfile {
	byEmail := make(map[string]SpendingSummary, len(summaries))
	for _, s := range summaries {
		if email := NormalizeEmail(s.Email); email != "" {
			byEmail[email] = s
		}
	}

	out := make([]CustomerProfile, len(profiles))
	copy(out, profiles)
	for i := range out {
		summary, ok := byEmail[out[i].Email]
		if !ok || summary.OrderCount <= out[i].OrderCount {
			continue
		}
		out[i].OrderCount = summary.OrderCount
		out[i].TotalSpent = summary.TotalSpent.InexactFloat64()
		if summary.FirstOrderAt != nil && (out[i].FirstOrderDate == nil || summary.FirstOrderAt.Before(*out[i].FirstOrderDate)) {
			first := *summary.FirstOrderAt
			out[i].FirstOrderDate = &first
		}
		if summary.LastOrderAt != nil && (out[i].LastOrderDate == nil || summary.LastOrderAt.After(*out[i].LastOrderDate)) {
			last := *summary.LastOrderAt
			out[i].LastOrderDate = &last
		}
	}
	return out
}
