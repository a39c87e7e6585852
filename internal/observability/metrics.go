// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcomes used as the "outcome" label.
const (
	OutcomeSuccess        = "success"
	OutcomeFetchError     = "fetch_error"
	OutcomeTransformError = "transform_error"
	OutcomePersistError   = "persist_error"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Scheduler metrics
	TicksScheduled *prometheus.CounterVec

	// Cycle metrics
	CyclesTotal    *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	InFlightCycles prometheus.Gauge

	// Pool metrics
	PoolTotalLamports   prometheus.Gauge
	PoolTokenSupply     prometheus.Gauge
	LastObservedSlot    prometheus.Gauge
	LastSuccessfulCycle prometheus.Gauge

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCFailures    *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "stakepool_monitor"
	}
	factory := promauto.With(reg)

	return &Metrics{
		TicksScheduled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total number of ticks fired by kind (aligned or relative)",
		}, []string{"kind"}),

		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "cycles_total",
			Help:      "Total number of snapshot cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "cycle_duration_seconds",
			Help:      "Snapshot cycle duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}),
		InFlightCycles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "in_flight_cycles",
			Help:      "Number of snapshot cycles currently running",
		}),

		PoolTotalLamports: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "total_lamports",
			Help:      "Total lamports under management in the last stored snapshot",
		}),
		PoolTokenSupply: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "token_supply",
			Help:      "Pool token supply in the last stored snapshot",
		}),
		LastObservedSlot: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "last_observed_slot",
			Help:      "Context slot of the last fetched account",
		}),
		LastSuccessfulCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last stored snapshot",
		}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_failures_total",
			Help:      "Failed Solana RPC attempts by method and reason",
		}, []string{"method", "reason"}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", prometheus.DefaultRegisterer)

// RecordTick counts a scheduler tick.
func RecordTick(aligned bool) {
	kind := "relative"
	if aligned {
		kind = "aligned"
	}
	DefaultMetrics.TicksScheduled.WithLabelValues(kind).Inc()
}

// CycleStarted marks a cycle as in flight. The returned func records its outcome.
func CycleStarted() func(outcome string) {
	start := time.Now()
	DefaultMetrics.InFlightCycles.Inc()
	return func(outcome string) {
		DefaultMetrics.InFlightCycles.Dec()
		DefaultMetrics.CyclesTotal.WithLabelValues(outcome).Inc()
		DefaultMetrics.CycleDuration.Observe(time.Since(start).Seconds())
	}
}

// RecordSnapshot updates pool gauges after a snapshot is stored.
// Values above 2^53 lose precision in the gauge; the stored row is exact.
func RecordSnapshot(collected time.Time, totalLamports, poolTokenSupply uint64) {
	DefaultMetrics.PoolTotalLamports.Set(float64(totalLamports))
	DefaultMetrics.PoolTokenSupply.Set(float64(poolTokenSupply))
	DefaultMetrics.LastSuccessfulCycle.Set(float64(collected.Unix()))
}

// UpdateObservedSlot updates the last observed slot gauge.
func UpdateObservedSlot(slot uint64) {
	DefaultMetrics.LastObservedSlot.Set(float64(slot))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordRPCFailure counts a failed RPC attempt.
func RecordRPCFailure(method, reason string) {
	DefaultMetrics.RPCFailures.WithLabelValues(method, reason).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
