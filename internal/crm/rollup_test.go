package crm

import (
	"testing"
	"time"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/stretchr/testify/require"
)

func TestRollupEmptyInput(t *testing.T) {
	stats := Rollup(nil, fixedNow)
	require.Zero(t, stats.TotalCustomers)
	require.Zero(t, stats.AvgLifetimeValue)
	require.Len(t, stats.SegmentBreakdown, 8)
	for _, segment := range enums.AllCustomerSegments() {
		count, ok := stats.SegmentBreakdown[segment]
		require.True(t, ok, "missing %s", segment)
		require.Zero(t, count)
	}
}

func TestRollupCountsWindowsInclusively(t *testing.T) {
	weekEdge := fixedNow.Add(-7 * 24 * time.Hour)
	monthEdge := fixedNow.Add(-30 * 24 * time.Hour)
	customers := []CustomerProfile{
		{Segment: enums.SegmentNew, CreatedAt: fixedNow, LifetimeValue: 100},
		{Segment: enums.SegmentAtRisk, CreatedAt: weekEdge, LifetimeValue: 200},
		{Segment: enums.SegmentSlipping, CreatedAt: weekEdge.Add(-time.Second), LifetimeValue: 300},
		{Segment: enums.SegmentVIP, CreatedAt: monthEdge, LifetimeValue: 400},
		{Segment: enums.SegmentVIP, CreatedAt: monthEdge.Add(-time.Second), LifetimeValue: 0},
	}

	stats := Rollup(customers, fixedNow)
	require.Equal(t, 5, stats.TotalCustomers)
	require.Equal(t, 2, stats.NewThisWeek)
	require.Equal(t, 4, stats.NewThisMonth)
	require.Equal(t, 2, stats.AtRiskCount)
	require.Equal(t, 2, stats.VIPCount)
	require.InDelta(t, 200.0, stats.AvgLifetimeValue, 1e-9)

	sum := 0
	for _, count := range stats.SegmentBreakdown {
		sum += count
	}
	require.Equal(t, stats.TotalCustomers, sum)
	require.Equal(t, 0, stats.SegmentBreakdown[enums.SegmentChurned])
}

func TestSortByLastOrderSinksMissingDates(t *testing.T) {
	customers := []CustomerProfile{
		{Email: "none-1"},
		{Email: "old", LastOrderDate: daysAgo(50)},
		{Email: "none-2"},
		{Email: "recent", LastOrderDate: daysAgo(1)},
	}
	SortByLastOrder(customers)

	got := []string{}
	for _, c := range customers {
		got = append(got, c.Email)
	}
	require.Equal(t, []string{"recent", "old", "none-1", "none-2"}, got)
}

func TestSortByLastOrderBreaksTiesByEmail(t *testing.T) {
	sameDay := daysAgo(3)
	customers := []CustomerProfile{
		{Email: "b@x.com"},
		{Email: "a@x.com"},
		{Email: "z@x.com", LastOrderDate: sameDay},
		{Email: "c@x.com", LastOrderDate: sameDay},
	}
	SortByLastOrder(customers)

	got := []string{}
	for _, c := range customers {
		got = append(got, c.Email)
	}
	require.Equal(t, []string{"c@x.com", "z@x.com", "a@x.com", "b@x.com"}, got)
}
