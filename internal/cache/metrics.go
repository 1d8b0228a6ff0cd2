// ABOUTME: Process-wide cache metrics: atomic counters for the stats endpoint plus
// ABOUTME: prometheus collectors for scraping. Reset only on process restart.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics accumulates cache activity across both orchestrators. The atomic
// counters back the stats API; the prometheus collectors back /metrics.
type Metrics struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	bypasses  atomic.Uint64
	evictions atomic.Uint64
	requests  atomic.Uint64
	// latencyMicros accumulates per-request service time for the running
	// average reported by Snapshot.
	latencyMicros atomic.Uint64

	promLookups   *prometheus.CounterVec
	promEvictions *prometheus.CounterVec
	promLatency   prometheus.Histogram
}

// NewMetrics creates the metric set and registers its prometheus collectors
// with reg. Pass prometheus.DefaultRegisterer in production and a fresh
// registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		promLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intervex_cache_lookups_total",
			Help: "Cache lookups by namespace and outcome (hit, miss, bypass).",
		}, []string{"namespace", "outcome"}),
		promEvictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intervex_cache_evictions_total",
			Help: "Entries removed by the size-bound eviction policy.",
		}, []string{"namespace"}),
		promLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "intervex_request_duration_seconds",
			Help:    "End-to-end getOrCompute latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.promLookups, m.promEvictions, m.promLatency)
	return m
}

// RecordHit counts a lookup served from cache.
func (m *Metrics) RecordHit(namespace string, elapsed time.Duration) {
	m.hits.Add(1)
	m.record(namespace, "hit", elapsed)
}

// RecordMiss counts a lookup that computed and stored a fresh value.
func (m *Metrics) RecordMiss(namespace string, elapsed time.Duration) {
	m.misses.Add(1)
	m.record(namespace, "miss", elapsed)
}

// RecordBypass counts a lookup that computed without the cache because the
// backend was unreachable. Bypasses also count as misses in the hit/miss
// ratio: the caller paid the computation.
func (m *Metrics) RecordBypass(namespace string, elapsed time.Duration) {
	m.misses.Add(1)
	m.bypasses.Add(1)
	m.record(namespace, "bypass", elapsed)
}

// AddEvictions adds n to the cumulative eviction counter.
func (m *Metrics) AddEvictions(namespace string, n int) {
	if n <= 0 {
		return
	}
	m.evictions.Add(uint64(n))
	m.promEvictions.WithLabelValues(namespace).Add(float64(n))
}

func (m *Metrics) record(namespace, outcome string, elapsed time.Duration) {
	m.requests.Add(1)
	m.latencyMicros.Add(uint64(elapsed.Microseconds()))
	m.promLookups.WithLabelValues(namespace, outcome).Inc()
	m.promLatency.Observe(elapsed.Seconds())
}

// Snapshot is the point-in-time view returned by the stats API.
type Snapshot struct {
	Hits              uint64  `json:"hits"`
	Misses            uint64  `json:"misses"`
	Bypasses          uint64  `json:"bypasses"`
	Evictions         uint64  `json:"evictions"`
	TotalRequests     uint64  `json:"total_requests"`
	HitRate           float64 `json:"hit_rate"`
	AvgResponseMillis float64 `json:"avg_response_ms"`
	ApproxEntries     int64   `json:"approx_entries"`
}

// Snapshot returns the accumulated counters plus the caller-supplied
// approximate live-entry count.
func (m *Metrics) Snapshot(approxEntries int64) Snapshot {
	hits := m.hits.Load()
	misses := m.misses.Load()
	requests := m.requests.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	var avgMillis float64
	if requests > 0 {
		avgMillis = float64(m.latencyMicros.Load()) / float64(requests) / 1000.0
	}

	return Snapshot{
		Hits:              hits,
		Misses:            misses,
		Bypasses:          m.bypasses.Load(),
		Evictions:         m.evictions.Load(),
		TotalRequests:     requests,
		HitRate:           hitRate,
		AvgResponseMillis: avgMillis,
		ApproxEntries:     approxEntries,
	}
}
