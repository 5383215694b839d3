package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CRMMetrics records pipeline runs and the resulting segment sizes.
type CRMMetrics struct {
	computeDuration *prometheus.HistogramVec
	customers       *prometheus.HistogramVec
	segmentSize     *prometheus.GaugeVec
	cacheLookups    *prometheus.CounterVec
}

// NewCRMMetrics registers the CRM metrics on the provided registerer.
func NewCRMMetrics(reg prometheus.Registerer) *CRMMetrics {
	if reg == nil {
		return &CRMMetrics{}
	}
	computeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_compute_duration_seconds",
		Help:    "Duration of customer computations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	customers := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crm_customers_computed",
		Help:    "Customers produced per computation.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"operation"})
	segmentSize := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "crm_segment_customers",
		Help: "Customers per segment at the last refresh.",
	}, []string{"org_id", "segment"})
	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crm_stats_cache_lookups_total",
		Help: "Stats cache lookups by result.",
	}, []string{"result"})
	reg.MustRegister(computeDuration, customers, segmentSize, cacheLookups)
	return &CRMMetrics{
		computeDuration: computeDuration,
		customers:       customers,
		segmentSize:     segmentSize,
		cacheLookups:    cacheLookups,
	}
}

// ObserveCompute records one computation.
func (c *CRMMetrics) ObserveCompute(operation string, duration time.Duration, customers int) {
	if c == nil || c.computeDuration == nil {
		return
	}
	op := normalizeLabel(operation)
	c.computeDuration.WithLabelValues(op).Observe(duration.Seconds())
	c.customers.WithLabelValues(op).Observe(float64(customers))
}

// SetSegmentSizes replaces the gauges of one org.
func (c *CRMMetrics) SetSegmentSizes(orgID string, breakdown map[string]int) {
	if c == nil || c.segmentSize == nil {
		return
	}
	for segment, count := range breakdown {
		c.segmentSize.WithLabelValues(normalizeLabel(orgID), segment).Set(float64(count))
	}
}

// CacheHit counts a stats cache hit.
func (c *CRMMetrics) CacheHit() {
	if c == nil || c.cacheLookups == nil {
		return
	}
	c.cacheLookups.WithLabelValues("hit").Inc()
}

// CacheMiss counts a stats cache miss.
func (c *CRMMetrics) CacheMiss() {
	if c == nil || c.cacheLookups == nil {
		return
	}
	c.cacheLookups.WithLabelValues("miss").Inc()
}
