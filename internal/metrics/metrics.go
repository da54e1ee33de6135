// Package metrics counts level file operations of the dw2l tool and exports
// them in the Prometheus text format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	namespace = "dw2l"

	LabelOp     = "op"
	LabelResult = "result"
	LabelKind   = "kind"
)

// Operation results.
const (
	ResultOK      = "ok"
	ResultWarning = "warning"
	ResultError   = "error"
)

// Metrics holds the collectors of one tool run.
type Metrics struct {
	Registry *prometheus.Registry

	OperationCounterVec *prometheus.CounterVec
	ChunkCounterVec     *prometheus.CounterVec
	BytesCounterVec     *prometheus.CounterVec
	OperationSeconds    *prometheus.HistogramVec
}

// New creates the collectors and registers them, with the process
// collectors, on a new registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		OperationCounterVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Decode and encode operations by result.",
		}, []string{LabelOp, LabelResult}),
		ChunkCounterVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Chunks processed by kind.",
		}, []string{LabelOp, LabelKind}),
		BytesCounterVec: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Bytes of level data read or written.",
		}, []string{LabelOp}),
		OperationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_seconds",
			Help:      "Duration of decode and encode operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{LabelOp}),
	}
	m.Registry.MustRegister(
		m.OperationCounterVec,
		m.ChunkCounterVec,
		m.BytesCounterVec,
		m.OperationSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// WriteFile writes every metric gathered from the registry to path in the
// text format read by the node exporter textfile collector.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
