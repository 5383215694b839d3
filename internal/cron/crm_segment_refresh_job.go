package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/dispensary-crm/internal/crm"
	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/angelmondragon/dispensary-crm/pkg/logger"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRefreshOrgLimit   = 500
	defaultRefreshWorkerCap  = 4
	segmentRefreshJobName    = "crm-segment-refresh"
	segmentSnapshotBatchSize = 500
)

type segmentRefresher interface {
	ListOrgIDs(ctx context.Context, limit int) ([]string, error)
	RefreshOrg(ctx context.Context, orgID string) (*crm.Result, error)
}

type snapshotWriter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// SegmentRefreshJobParams wires the segment refresh job. Snapshots and
// SnapshotTable are optional; without them no history rows are written.
type SegmentRefreshJobParams struct {
	Logger        *logger.Logger
	CRM           segmentRefresher
	Snapshots     snapshotWriter
	SnapshotTable string
	OrgLimit      int
	Concurrency   int
}

// SegmentSnapshotRow is one org/segment count captured by a refresh.
type SegmentSnapshotRow struct {
	OrgID            string    `bigquery:"org_id"`
	Segment          string    `bigquery:"segment"`
	Customers        int64     `bigquery:"customers"`
	TotalCustomers   int64     `bigquery:"total_customers"`
	VIPCount         int64     `bigquery:"vip_count"`
	AtRiskCount      int64     `bigquery:"at_risk_count"`
	AvgLifetimeValue float64   `bigquery:"avg_lifetime_value"`
	CapturedAt       time.Time `bigquery:"captured_at"`
}

type segmentRefreshJob struct {
	logg          *logger.Logger
	crm           segmentRefresher
	snapshots     snapshotWriter
	snapshotTable string
	orgLimit      int
	concurrency   int
	now           func() time.Time
}

// NewSegmentRefreshJob recomputes every known org and records segment sizes.
func NewSegmentRefreshJob(params SegmentRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.CRM == nil {
		return nil, fmt.Errorf("crm service required")
	}
	limit := params.OrgLimit
	if limit <= 0 {
		limit = defaultRefreshOrgLimit
	}
	workers := params.Concurrency
	if workers <= 0 {
		workers = defaultRefreshWorkerCap
	}
	return &segmentRefreshJob{
		logg:          params.Logger,
		crm:           params.CRM,
		snapshots:     params.Snapshots,
		snapshotTable: params.SnapshotTable,
		orgLimit:      limit,
		concurrency:   workers,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

func (j *segmentRefreshJob) Name() string { return segmentRefreshJobName }

// Run refreshes orgs concurrently. One org failing does not stop the others;
// all failures are returned together once every org has been tried.
func (j *segmentRefreshJob) Run(ctx context.Context) error {
	orgIDs, err := j.crm.ListOrgIDs(ctx, j.orgLimit)
	if err != nil {
		return fmt.Errorf("list orgs: %w", err)
	}
	capturedAt := j.now()

	var (
		mu       sync.Mutex
		failures error
		rows     []any
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for _, orgID := range orgIDs {
		orgID := orgID
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			result, err := j.crm.RefreshOrg(gctx, orgID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = multierr.Append(failures, fmt.Errorf("org %s: %w", orgID, err))
				return nil
			}
			rows = append(rows, snapshotRows(orgID, result.Stats, capturedAt)...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		failures = multierr.Append(failures, err)
	}

	if err := j.writeSnapshots(ctx, rows); err != nil {
		failures = multierr.Append(failures, err)
	}

	failed := len(multierr.Errors(failures))
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"orgs":          len(orgIDs),
		"failures":      failed,
		"snapshot_rows": len(rows),
	})
	if failures != nil {
		j.logg.Warn(logCtx, "segment refresh finished with failures")
		return failures
	}
	j.logg.Info(logCtx, "segment refresh complete")
	return nil
}

func (j *segmentRefreshJob) writeSnapshots(ctx context.Context, rows []any) error {
	if j.snapshots == nil || j.snapshotTable == "" || len(rows) == 0 {
		return nil
	}
	for start := 0; start < len(rows); start += segmentSnapshotBatchSize {
		end := start + segmentSnapshotBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := j.snapshots.InsertRows(ctx, j.snapshotTable, rows[start:end]); err != nil {
			return fmt.Errorf("insert segment snapshots: %w", err)
		}
	}
	return nil
}

func snapshotRows(orgID string, stats crm.Stats, capturedAt time.Time) []any {
	segments := enums.AllCustomerSegments()
	rows := make([]any, 0, len(segments))
	for _, seg := range segments {
		rows = append(rows, SegmentSnapshotRow{
			OrgID:            orgID,
			Segment:          string(seg),
			Customers:        int64(stats.SegmentBreakdown[seg]),
			TotalCustomers:   int64(stats.TotalCustomers),
			VIPCount:         int64(stats.VIPCount),
			AtRiskCount:      int64(stats.AtRiskCount),
			AvgLifetimeValue: stats.AvgLifetimeValue,
			CapturedAt:       capturedAt,
		})
	}
	return rows
}
