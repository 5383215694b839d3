package crm

import (
	"testing"
	"time"

	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) *time.Time {
	t := fixedNow.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func fixtureOrders() []OrderRecord {
	return []OrderRecord{
		{ID: "o1", CustomerEmail: "Jane@Example.com ", CustomerName: "Jane Q Public", TotalAmount: amount("120.50"), CreatedAt: daysAgo(10)},
		{ID: "o2", CustomerEmail: "jane@example.com", CustomerName: "Jane Public", TotalAmount: amount("79.50"), CreatedAt: daysAgo(40)},
		{ID: "o3", CustomerEmail: "  ", CustomerName: "Nobody", TotalAmount: amount("999")},
		{ID: "o4", CustomerEmail: "bob@example.com", CustomerName: "Bob", CustomerPhone: "555-0100"},
	}
}

func fixtureRecords() []CustomerRecord {
	return []CustomerRecord{
		{ID: "rec-1", Email: "JANE@example.com", FirstName: "Janet", PriceRange: enums.PriceRangeHigh, CreatedAt: daysAgo(100), CustomTags: []string{"edibles"}},
		{Email: "zoe@example.com", FirstName: "Zoe", Notes: "first"},
		{Email: "Zoe@Example.com", FirstName: "Zoe", LastName: "Lane", Notes: "second"},
	}
}

func TestMergeProfilesJoinsByLowercasedEmail(t *testing.T) {
	profiles := MergeProfiles("org-1", fixtureOrders(), fixtureRecords(), fixedNow)
	require.Len(t, profiles, 3)

	jane := profiles[0]
	require.Equal(t, "rec-1", jane.ID)
	require.Equal(t, "jane@example.com", jane.Email)
	require.Equal(t, "org-1", jane.OrgID)
	require.Equal(t, 2, jane.OrderCount)
	require.InDelta(t, 200.0, jane.TotalSpent, 1e-9)
	require.True(t, jane.FirstOrderDate.Equal(*daysAgo(40)))
	require.True(t, jane.LastOrderDate.Equal(*daysAgo(10)))
	require.Equal(t, enums.PriceRangeHigh, jane.PriceRange, "crm price range wins over the default")
	require.Equal(t, "Janet", jane.FirstName)
	require.Equal(t, "Janet", jane.DisplayName)
	require.Equal(t, []string{"edibles"}, jane.CustomTags)
	require.True(t, jane.CreatedAt.Equal(*daysAgo(100)))
	require.True(t, jane.UpdatedAt.Equal(fixedNow))
}

func TestMergeProfilesSynthesizesOrderOnlyCustomers(t *testing.T) {
	profiles := MergeProfiles("org-1", fixtureOrders(), fixtureRecords(), fixedNow)

	bob := profiles[1]
	require.Equal(t, "bob@example.com", bob.ID)
	require.Equal(t, "Bob", bob.FirstName)
	require.Equal(t, "", bob.LastName)
	require.Equal(t, "555-0100", bob.Phone)
	require.Equal(t, 1, bob.OrderCount)
	require.Zero(t, bob.TotalSpent, "missing total counts as zero")
	require.True(t, bob.LastOrderDate.Equal(fixedNow), "missing order date counts as now")
	require.True(t, bob.CreatedAt.Equal(fixedNow))
	require.Equal(t, enums.PriceRangeMid, bob.PriceRange)
	require.NotNil(t, bob.PreferredCategories)
	require.Empty(t, bob.PreferredCategories)
}

func TestMergeProfilesKeepsZeroOrderRecords(t *testing.T) {
	profiles := MergeProfiles("org-1", fixtureOrders(), fixtureRecords(), fixedNow)

	zoe := profiles[2]
	require.Equal(t, "zoe@example.com", zoe.Email)
	require.Equal(t, 0, zoe.OrderCount)
	require.Nil(t, zoe.FirstOrderDate)
	require.Nil(t, zoe.LastOrderDate)
	require.Equal(t, "second", zoe.Notes, "duplicate crm emails keep the last record")
	require.Equal(t, "Zoe Lane", zoe.DisplayName)
	require.True(t, zoe.CreatedAt.Equal(fixedNow))
}

func TestMergeProfilesDropsOrdersWithoutEmail(t *testing.T) {
	profiles := MergeProfiles("org-1", []OrderRecord{{CustomerEmail: "", TotalAmount: amount("10")}}, nil, fixedNow)
	require.Empty(t, profiles)
}

func TestSplitName(t *testing.T) {
	cases := map[string][2]string{
		"":                 {"", ""},
		"Cher":             {"Cher", ""},
		"  Mary  Ann Lee ": {"Mary", "Ann Lee"},
	}
	for in, want := range cases {
		first, last := SplitName(in)
		require.Equal(t, want[0], first, in)
		require.Equal(t, want[1], last, in)
	}
}
