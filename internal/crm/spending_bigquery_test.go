package crm

import (
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryFromRow(t *testing.T) {
	first := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	summary, err := summaryFromRow(spendingRow{
		Email:        "jane@example.com",
		TotalSpent:   bigquery.NullString{StringVal: "2450.10", Valid: true},
		OrderCount:   bigquery.NullInt64{Int64: 31, Valid: true},
		FirstOrderAt: bigquery.NullTimestamp{Timestamp: first, Valid: true},
		LastOrderAt:  bigquery.NullTimestamp{Timestamp: last, Valid: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "2450.1", summary.TotalSpent.String())
	assert.Equal(t, 31, summary.OrderCount)
	require.NotNil(t, summary.FirstOrderAt)
	assert.True(t, summary.FirstOrderAt.Equal(first))
	require.NotNil(t, summary.LastOrderAt)
	assert.True(t, summary.LastOrderAt.Equal(last))
}

func TestSummaryFromRowNulls(t *testing.T) {
	summary, err := summaryFromRow(spendingRow{Email: "zoe@example.com"})
	require.NoError(t, err)
	assert.True(t, summary.TotalSpent.IsZero())
	assert.Zero(t, summary.OrderCount)
	assert.Nil(t, summary.FirstOrderAt)
	assert.Nil(t, summary.LastOrderAt)
}

func TestSummaryFromRowBadTotal(t *testing.T) {
	_, err := summaryFromRow(spendingRow{
		Email:      "jane@example.com",
		TotalSpent: bigquery.NullString{StringVal: "lots", Valid: true},
	})
	require.Error(t, err)
}

func TestSpendingQueryTargetsTable(t *testing.T) {
	q := spendingQuery("`proj.crm.customer_spending`")
	assert.Contains(t, q, "FROM `proj.crm.customer_spending`")
	assert.Contains(t, q, "@org_id")
}
