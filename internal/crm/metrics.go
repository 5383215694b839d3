package crm

import (
	"math"
	"time"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/shopspring/decimal"
)

var (
	goldThreshold   = decimal.NewFromInt(2000)
	silverThreshold = decimal.NewFromInt(500)
)

const day = 24 * time.Hour

// TierFor maps lifetime spend to a loyalty tier. Both thresholds are strict.
func TierFor(totalSpent float64) enums.LoyaltyTier {
	spent := decimal.NewFromFloat(totalSpent)
	switch {
	case spent.GreaterThan(goldThreshold):
		return enums.TierGold
	case spent.GreaterThan(silverThreshold):
		return enums.TierSilver
	default:
		return enums.TierBronze
	}
}

// PointsFor floors spend to whole loyalty points.
func PointsFor(totalSpent float64) int64 {
	return decimal.NewFromFloat(totalSpent).Floor().IntPart()
}

// DaysBetween returns the whole days elapsed from since to now.
func DaysBetween(since, now time.Time) int {
	return int(math.Floor(float64(now.Sub(since)) / float64(day)))
}

// DeriveMetrics fills the per-profile derived fields. It reads only the
// profile itself, so profiles can be derived in any order.
func DeriveMetrics(p CustomerProfile, now time.Time) CustomerProfile {
	p.AvgOrderValue = 0
	if p.OrderCount > 0 {
		p.AvgOrderValue = p.TotalSpent / float64(p.OrderCount)
	}

	p.DaysSinceLastOrder = nil
	if p.LastOrderDate != nil {
		days := DaysBetween(*p.LastOrderDate, now)
		p.DaysSinceLastOrder = &days
	}
	p.DaysSinceFirstOrder = nil
	if p.FirstOrderDate != nil {
		days := DaysBetween(*p.FirstOrderDate, now)
		p.DaysSinceFirstOrder = &days
	}

	p.Tier = TierFor(p.TotalSpent)
	p.Points = PointsFor(p.TotalSpent)
	p.LifetimeValue = p.TotalSpent
	return p
}
