package pipe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports the stage counters to prometheus. Every series is labelled by stage name. A nil *Metrics
// records nothing.
type Metrics struct {
	accepts  *prometheus.CounterVec
	forwards *prometheus.CounterVec
	errors   *prometheus.CounterVec
	pauses   *prometheus.CounterVec
	inflight *prometheus.GaugeVec
	buffer   *prometheus.GaugeVec
}

// NewMetrics registers the stage collectors to reg. A nil reg leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	labels := []string{"stage"}
	return &Metrics{
		accepts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accepted_total",
			Help:      "Units admitted into a stage.",
		}, labels),
		forwards: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forwarded_total",
			Help:      "Units forwarded downstream.",
		}, labels),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors reported by a stage.",
		}, labels),
		pauses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pauses_total",
			Help:      "Times a stage was paused by its downstream.",
		}, labels),
		inflight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending",
			Help:      "Units accepted but not settled yet.",
		}, labels),
		buffer: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "buffered",
			Help:      "Units held in the buffer of a batch or split stage.",
		}, labels),
	}
}

func (m *Metrics) accepted(stage string) {
	if m != nil {
		m.accepts.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) forwarded(stage string) {
	if m != nil {
		m.forwards.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) failed(stage string) {
	if m != nil {
		m.errors.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) paused(stage string) {
	if m != nil {
		m.pauses.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) pending(stage string, n int) {
	if m != nil {
		m.inflight.WithLabelValues(stage).Set(float64(n))
	}
}

func (m *Metrics) buffered(stage string, n int) {
	if m != nil {
		m.buffer.WithLabelValues(stage).Set(float64(n))
	}
}
