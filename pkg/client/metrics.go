package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the client side counters. A nil *Metrics records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	Retransmissions *prometheus.CounterVec
	Duration        *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radcli",
			Name:      "requests_total",
			Help:      "RADIUS exchanges by request code and result.",
		}, []string{"code", "result"}),
		Retransmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "radcli",
			Name:      "retransmissions_total",
			Help:      "Requests sent again after a timeout.",
		}, []string{"code"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "radcli",
			Name:      "exchange_duration_seconds",
			Help:      "Time from first transmission to completion.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"code"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Requests, m.Retransmissions, m.Duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(code string, result Result, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(code, result.String()).Inc()
	m.Duration.WithLabelValues(code).Observe(elapsed.Seconds())
}

func (m *Metrics) retransmit(code string) {
	if m == nil {
		return
	}
	m.Retransmissions.WithLabelValues(code).Inc()
}
