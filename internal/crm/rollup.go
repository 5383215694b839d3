package crm

import (
	"sort"
	"time"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/shopspring/decimal"
)

const (
	weekWindow  = 7 * day
	monthWindow = 30 * day
)

// EmptyBreakdown returns a breakdown with every segment present at zero.
func EmptyBreakdown() map[enums.CustomerSegment]int {
	breakdown := make(map[enums.CustomerSegment]int, len(enums.AllCustomerSegments()))
	for _, segment := range enums.AllCustomerSegments() {
		breakdown[segment] = 0
	}
	return breakdown
}

// Rollup aggregates classified profiles into org stats in a single pass.
func Rollup(customers []CustomerProfile, now time.Time) Stats {
	stats := Stats{
		TotalCustomers:   len(customers),
		SegmentBreakdown: EmptyBreakdown(),
	}
	weekStart := now.Add(-weekWindow)
	monthStart := now.Add(-monthWindow)

	ltv := decimal.Zero
	for _, c := range customers {
		stats.SegmentBreakdown[c.Segment]++
		if !c.CreatedAt.Before(weekStart) {
			stats.NewThisWeek++
		}
		if !c.CreatedAt.Before(monthStart) {
			stats.NewThisMonth++
		}
		switch c.Segment {
		case enums.SegmentAtRisk, enums.SegmentSlipping:
			stats.AtRiskCount++
		case enums.SegmentVIP:
			stats.VIPCount++
		}
		ltv = ltv.Add(decimal.NewFromFloat(c.LifetimeValue))
	}

	if len(customers) > 0 {
		stats.AvgLifetimeValue = ltv.Div(decimal.NewFromInt(int64(len(customers)))).InexactFloat64()
	}
	return stats
}

// SortByLastOrder orders profiles most recent first, then by email. Profiles
// without orders sort as if their last order was at the epoch.
func SortByLastOrder(customers []CustomerProfile) {
	sort.SliceStable(customers, func(i, j int) bool {
		a, b := lastOrderOrEpoch(customers[i]), lastOrderOrEpoch(customers[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return customers[i].Email < customers[j].Email
	})
}

func lastOrderOrEpoch(p CustomerProfile) time.Time {
	if p.LastOrderDate == nil {
		return time.Unix(0, 0).UTC()
	}
	return *p.LastOrderDate
}
