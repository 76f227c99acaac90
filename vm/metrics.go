package vm

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts executed messages and queries by type and outcome kind.
type Metrics struct {
	txTotal    *prometheus.CounterVec
	queryTotal *prometheus.CounterVec
	txSeconds  *prometheus.HistogramVec
}

// NewMetrics creates the executor collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		txTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rpschain",
			Name:      "tx_total",
			Help:      "Executed contract messages by type and result.",
		}, []string{"type", "result"}),
		queryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rpschain",
			Name:      "query_total",
			Help:      "Contract queries by name and result.",
		}, []string{"query", "result"}),
		txSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rpschain",
			Name:      "tx_duration_seconds",
			Help:      "Time spent executing a contract message, including commit.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"type"}),
	}
	reg.MustRegister(m.txTotal, m.queryTotal, m.txSeconds)
	return m
}

func (m *Metrics) observeTx(typ, result string, seconds float64) {
	if m == nil {
		return
	}
	m.txTotal.WithLabelValues(typ, result).Inc()
	m.txSeconds.WithLabelValues(typ).Observe(seconds)
}

func (m *Metrics) observeQuery(name, result string) {
	if m == nil {
		return
	}
	m.queryTotal.WithLabelValues(name, result).Inc()
}
