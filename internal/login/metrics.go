package login

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess        = "success"
	outcomeStatusError    = "status_error"
	outcomeParseError     = "parse_error"
	outcomeTransportError = "transport_error"
)

// Metrics counts submissions by outcome. A nil *Metrics records nothing.
type Metrics struct {
	submissions *prometheus.CounterVec
	inflight    prometheus.Gauge
}

// NewMetrics registers the submission collectors on reg, or on the default
// registerer when reg is nil. Collectors already registered are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tokenlogin",
			Subsystem: "client",
			Name:      "submissions_total",
			Help:      "Login form submissions by outcome",
		}, []string{"outcome"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tokenlogin",
			Subsystem: "client",
			Name:      "submissions_in_flight",
			Help:      "Login submissions awaiting a response",
		}),
	}
	collectors := []prometheus.Collector{m.submissions, m.inflight}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch v := are.ExistingCollector.(type) {
				case *prometheus.CounterVec:
					m.submissions = v
				case prometheus.Gauge:
					m.inflight = v
				}
			}
		}
	}
	return m
}

func (m *Metrics) started() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) finished(outcome string) {
	if m == nil {
		return
	}
	m.inflight.Dec()
	m.submissions.With(prometheus.Labels{"outcome": outcome}).Inc()
}
