package crm

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/stretchr/testify/require"
)

func TestTierForThresholdsAreStrict(t *testing.T) {
	cases := []struct {
		spent float64
		want  enums.LoyaltyTier
	}{
		{0, enums.TierBronze},
		{500, enums.TierBronze},
		{500.01, enums.TierSilver},
		{2000, enums.TierSilver},
		{2000.01, enums.TierGold},
		{10000, enums.TierGold},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, TierFor(tc.spent), "spent=%v", tc.spent)
	}
}

func TestTierIsMonotonicInSpend(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	spends := make([]float64, 500)
	for i := range spends {
		spends[i] = rng.Float64() * 5000
	}
	spends = append(spends, 500, 2000)
	sort.Float64s(spends)

	prev := -1
	for _, s := range spends {
		rank := TierFor(s).Rank()
		require.GreaterOrEqual(t, rank, prev, "tier decreased at spend %v", s)
		prev = rank
	}
}

func TestDeriveMetricsZeroOrders(t *testing.T) {
	p := DeriveMetrics(CustomerProfile{Email: "a@b.c"}, fixedNow)
	require.Zero(t, p.AvgOrderValue)
	require.Nil(t, p.DaysSinceLastOrder)
	require.Nil(t, p.DaysSinceFirstOrder)
	require.Equal(t, enums.TierBronze, p.Tier)
	require.Zero(t, p.Points)
}

func TestDeriveMetricsFloorsDaysAndPoints(t *testing.T) {
	last := fixedNow.Add(-(3*24*time.Hour + 23*time.Hour))
	first := fixedNow.Add(-400 * 24 * time.Hour)
	p := DeriveMetrics(CustomerProfile{
		OrderCount:     3,
		TotalSpent:     750.99,
		FirstOrderDate: &first,
		LastOrderDate:  &last,
	}, fixedNow)

	require.InDelta(t, 250.33, p.AvgOrderValue, 1e-9)
	require.Equal(t, 3, *p.DaysSinceLastOrder)
	require.Equal(t, 400, *p.DaysSinceFirstOrder)
	require.Equal(t, enums.TierSilver, p.Tier)
	require.Equal(t, int64(750), p.Points)
	require.Equal(t, 750.99, p.LifetimeValue)
}
