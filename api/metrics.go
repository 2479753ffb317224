package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts transactions per operation and outcome. Outcome is either
// "ok" or the failing error code.
type Metrics struct {
	txTotal   *prometheus.CounterVec
	txSeconds *prometheus.HistogramVec
}

// NewMetrics builds and registers the counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		txTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dappsuite",
			Name:      "tx_total",
			Help:      "Processed transactions by operation and outcome.",
		}, []string{"op", "outcome"}),
		txSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dappsuite",
			Name:      "tx_duration_seconds",
			Help:      "Transaction processing time by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.txTotal, m.txSeconds)
	return m
}

func (m *Metrics) observe(op, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.txTotal.WithLabelValues(op, outcome).Inc()
	m.txSeconds.WithLabelValues(op).Observe(seconds)
}
