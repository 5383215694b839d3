package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsRecordsRunsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.now = func() time.Time { return time.Unix(1772366400, 0) }

	job := "crm-segment-refresh"
	m.ObserveDuration(job, 3*time.Second)
	m.IncSuccess(job)
	m.IncFailure(job)
	m.IncFailure("")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(job, "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", "failure")))
	assert.Equal(t, 1772366400.0, testutil.ToFloat64(m.lastSuccess.WithLabelValues(job)))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	sum, err := fetchHistogramSum(mfs, "crm_cron_job_duration_seconds", "job", job)
	require.NoError(t, err)
	assert.Equal(t, 3.0, sum)

	runs, err := fetchCounterValue(mfs, "crm_cron_job_runs_total", "outcome", "success")
	require.NoError(t, err)
	assert.Equal(t, 1.0, runs)
}

func TestCronJobMetricsWithoutRegisterer(t *testing.T) {
	m := NewCronJobMetrics(nil)
	m.ObserveDuration("job", time.Second)
	m.IncSuccess("job")
	m.IncFailure("job")

	var nilMetrics *CronJobMetrics
	nilMetrics.IncSuccess("job")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
