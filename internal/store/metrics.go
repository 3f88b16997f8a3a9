package store

// metrics.go mirrors the pack's no-op/Prometheus dual metrics sink
// pattern (see Voskan-arena-cache/pkg/metrics.go): by default a table
// pays nothing for metrics; passing WithMetrics(reg) to Open swaps in
// labeled counters/gauges. All metrics are per-shard; aggregation
// across shards is left to PromQL sum()/rate() on the consumer side.

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsSink is the internal interface Table and SlotFile callers use;
// it is never exposed outside the package.
type metricsSink interface {
	incGet(shard int, hit bool)
	incSet(shard int)
	incError(shard int, op string)
	observeProbeLen(shard int, n int)
}

// noopMetrics is the zero-cost default sink.
type noopMetrics struct{}

func (noopMetrics) incGet(int, bool)         {}
func (noopMetrics) incSet(int)               {}
func (noopMetrics) incError(int, string)     {}
func (noopMetrics) observeProbeLen(int, int) {}

// promMetrics backs metricsSink with real Prometheus collectors,
// registered once against the caller-supplied registry. Hit/miss is
// carried as the "result" label on gets rather than a separate counter.
type promMetrics struct {
	gets     *prometheus.CounterVec
	sets     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	probeLen *prometheus.HistogramVec
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	m := &promMetrics{
		gets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kek_store_gets_total",
			Help: "Number of Get operations per shard, by hit/miss.",
		}, []string{"shard", "result"}),
		sets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kek_store_sets_total",
			Help: "Number of Set operations per shard.",
		}, []string{"shard"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kek_store_errors_total",
			Help: "Number of request-fatal storage errors per shard and operation.",
		}, []string{"shard", "op"}),
		probeLen: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kek_store_probe_length",
			Help:    "Number of slots examined to resolve a probe, per shard.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"shard"}),
	}
	reg.MustRegister(m.gets, m.sets, m.errors, m.probeLen)
	return m
}

func (m *promMetrics) incGet(shard int, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.gets.WithLabelValues(strconv.Itoa(shard), result).Inc()
}

func (m *promMetrics) incSet(shard int) {
	m.sets.WithLabelValues(strconv.Itoa(shard)).Inc()
}

func (m *promMetrics) incError(shard int, op string) {
	m.errors.WithLabelValues(strconv.Itoa(shard), op).Inc()
}

func (m *promMetrics) observeProbeLen(shard int, n int) {
	m.probeLen.WithLabelValues(strconv.Itoa(shard)).Observe(float64(n))
}
