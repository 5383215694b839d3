package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/dispensary-crm/internal/crm"
	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type fakeRefresher struct {
	mu       sync.Mutex
	orgs     []string
	listErr  error
	failOrgs map[string]error
	limit    int
	seen     []string
}

func (f *fakeRefresher) ListOrgIDs(_ context.Context, limit int) ([]string, error) {
	f.limit = limit
	return f.orgs, f.listErr
}

func (f *fakeRefresher) RefreshOrg(_ context.Context, orgID string) (*crm.Result, error) {
	f.mu.Lock()
	f.seen = append(f.seen, orgID)
	f.mu.Unlock()
	if err := f.failOrgs[orgID]; err != nil {
		return nil, err
	}
	breakdown := crm.EmptyBreakdown()
	breakdown[enums.SegmentVIP] = 2
	breakdown[enums.SegmentNew] = 3
	return &crm.Result{Stats: crm.Stats{
		TotalCustomers:   5,
		VIPCount:         2,
		AvgLifetimeValue: 812.5,
		SegmentBreakdown: breakdown,
	}}, nil
}

type fakeSnapshotWriter struct {
	table string
	rows  []any
	calls int
	err   error
}

func (f *fakeSnapshotWriter) InsertRows(_ context.Context, table string, rows []any) error {
	f.calls++
	f.table = table
	f.rows = append(f.rows, rows...)
	return f.err
}

func TestSegmentRefreshJobRefreshesEveryOrg(t *testing.T) {
	refresher := &fakeRefresher{orgs: []string{"org_a", "org_b", "org_c"}}
	writer := &fakeSnapshotWriter{}
	job := newSegmentRefreshJob(t, refresher, writer)
	captured := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return captured }

	require.NoError(t, job.Run(context.Background()))
	assert.ElementsMatch(t, refresher.orgs, refresher.seen)
	assert.Equal(t, 25, refresher.limit)
	assert.Equal(t, "segment_snapshots", writer.table)
	require.Len(t, writer.rows, 3*len(enums.AllCustomerSegments()))

	var vipRows int
	for _, raw := range writer.rows {
		row, ok := raw.(SegmentSnapshotRow)
		require.True(t, ok)
		assert.Equal(t, captured, row.CapturedAt)
		assert.EqualValues(t, 5, row.TotalCustomers)
		if row.Segment == string(enums.SegmentVIP) {
			vipRows++
			assert.EqualValues(t, 2, row.Customers)
		}
	}
	assert.Equal(t, 3, vipRows)
}

func TestSegmentRefreshJobCollectsOrgFailures(t *testing.T) {
	errB := errors.New("orders unavailable")
	errC := errors.New("outbox insert failed")
	refresher := &fakeRefresher{
		orgs:     []string{"org_a", "org_b", "org_c"},
		failOrgs: map[string]error{"org_b": errB, "org_c": errC},
	}
	writer := &fakeSnapshotWriter{}
	job := newSegmentRefreshJob(t, refresher, writer)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, errB)
	assert.ErrorIs(t, err, errC)
	assert.Len(t, refresher.seen, 3)
	assert.Len(t, writer.rows, len(enums.AllCustomerSegments()))
}

func TestSegmentRefreshJobListFailure(t *testing.T) {
	refresher := &fakeRefresher{listErr: errors.New("db down")}
	job := newSegmentRefreshJob(t, refresher, nil)

	assert.Error(t, job.Run(context.Background()))
	assert.Empty(t, refresher.seen)
}

func TestSegmentRefreshJobSnapshotFailure(t *testing.T) {
	refresher := &fakeRefresher{orgs: []string{"org_a"}}
	writer := &fakeSnapshotWriter{err: errors.New("quota")}
	job := newSegmentRefreshJob(t, refresher, writer)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, writer.err)
}

func TestSegmentRefreshJobWithoutSnapshots(t *testing.T) {
	refresher := &fakeRefresher{orgs: []string{"org_a"}}
	job := newSegmentRefreshJob(t, refresher, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []string{"org_a"}, refresher.seen)
}

func TestSegmentRefreshJobBatchesSnapshotInserts(t *testing.T) {
	orgs := make([]string, 0, 70)
	for i := 0; i < 70; i++ {
		orgs = append(orgs, "org_"+string(rune('a'+i%26))+string(rune('a'+i/26)))
	}
	refresher := &fakeRefresher{orgs: orgs}
	writer := &fakeSnapshotWriter{}
	job := newSegmentRefreshJob(t, refresher, writer)

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, writer.rows, 70*len(enums.AllCustomerSegments()))
	assert.Equal(t, 2, writer.calls)
}

func newSegmentRefreshJob(t *testing.T, refresher *fakeRefresher, writer *fakeSnapshotWriter) *segmentRefreshJob {
	t.Helper()
	params := SegmentRefreshJobParams{
		Logger:        testLogger(),
		CRM:           refresher,
		SnapshotTable: "segment_snapshots",
		OrgLimit:      25,
		Concurrency:   2,
	}
	if writer != nil {
		params.Snapshots = writer
	}
	jobIface, err := NewSegmentRefreshJob(params)
	require.NoError(t, err)
	job, ok := jobIface.(*segmentRefreshJob)
	require.True(t, ok)
	return job
}
