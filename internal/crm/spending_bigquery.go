package crm

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
)

// SpendingSource returns warehouse spend summaries for an org.
type SpendingSource interface {
	SpendingSummaries(ctx context.Context, orgID string) ([]SpendingSummary, error)
}

type warehouse interface {
	Query(ctx context.Context, sql string, params []bigquery.QueryParameter) (*bigquery.RowIterator, error)
	TableRef(table string) string
}

type bigQuerySpending struct {
	wh    warehouse
	table string
}

// NewBigQuerySpendingSource reads summaries from the configured spending table.
func NewBigQuerySpendingSource(wh warehouse, table string) SpendingSource {
	return &bigQuerySpending{wh: wh, table: table}
}

// spendingRow is one warehouse row. total_spent is selected as a string so
// NUMERIC values keep their precision.
type spendingRow struct {
	Email        string                 `bigquery:"email"`
	TotalSpent   bigquery.NullString    `bigquery:"total_spent"`
	OrderCount   bigquery.NullInt64     `bigquery:"order_count"`
	FirstOrderAt bigquery.NullTimestamp `bigquery:"first_order_at"`
	LastOrderAt  bigquery.NullTimestamp `bigquery:"last_order_at"`
}

func spendingQuery(tableRef string) string {
	return fmt.Sprintf(`SELECT
  LOWER(email) AS email,
  CAST(SUM(total_spent) AS STRING) AS total_spent,
  SUM(order_count) AS order_count,
  MIN(first_order_at) AS first_order_at,
  MAX(last_order_at) AS last_order_at
FROM %s
WHERE org_id = @org_id AND email IS NOT NULL
GROUP BY 1`, tableRef)
}

func (s *bigQuerySpending) SpendingSummaries(ctx context.Context, orgID string) ([]SpendingSummary, error) {
	it, err := s.wh.Query(ctx, spendingQuery(s.wh.TableRef(s.table)), []bigquery.QueryParameter{
		{Name: "org_id", Value: orgID},
	})
	if err != nil {
		return nil, err
	}

	var out []SpendingSummary
	for {
		var row spendingRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read spending row: %w", err)
		}
		summary, err := summaryFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

func summaryFromRow(row spendingRow) (SpendingSummary, error) {
	summary := SpendingSummary{Email: row.Email}
	if row.TotalSpent.Valid {
		total, err := decimal.NewFromString(row.TotalSpent.StringVal)
		if err != nil {
			return SpendingSummary{}, fmt.Errorf("parse total_spent for %s: %w", row.Email, err)
		}
		summary.TotalSpent = total
	}
	if row.OrderCount.Valid {
		summary.OrderCount = int(row.OrderCount.Int64)
	}
	if row.FirstOrderAt.Valid {
		first := row.FirstOrderAt.Timestamp.UTC()
		summary.FirstOrderAt = &first
	}
	if row.LastOrderAt.Valid {
		last := row.LastOrderAt.Timestamp.UTC()
		summary.LastOrderAt = &last
	}
	return summary, nil
}
