package exec

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors instrumenting the operator tree
// (§4.C's add_row/add_exec_time counters, exported), grounded on
// cuemby-warren/pkg/metrics.go's GaugeVec/CounterVec-per-label-set
// shape. Registered against a dedicated registry rather than the
// global default so an embedding process can mount Handler() alongside
// its own metrics without name collisions.
var (
	registry = prometheus.NewRegistry()

	rowsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nordgraph_exec_rows_total",
			Help: "Rows produced by an operator, labeled by operator name.",
		},
		[]string{"operator"},
	)

	execDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nordgraph_exec_duration_seconds",
			Help:    "Per-operator Execute() wall time, labeled by operator name.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operator"},
	)
)

func init() {
	registry.MustRegister(rowsProcessed, execDuration)
}

// Registry exposes the registry exec's operators report into, so a
// host process can merge it into its own /metrics endpoint.
func Registry() *prometheus.Registry { return registry }

// Handler returns an http.Handler serving this package's metrics in
// the Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// observeRows and observeExecTime report n rows and d wall time against operator name's
// series. Called from Stats.AddRow/AddExecTime so every operator's
// bookkeeping is automatically exported without each concrete operator
// having to instrument itself.
func observeRows(operator string, n int64) {
	if n > 0 {
		rowsProcessed.WithLabelValues(operator).Add(float64(n))
	}
}

func observeExecTime(operator string, d time.Duration) {
	execDuration.WithLabelValues(operator).Observe(d.Seconds())
}
