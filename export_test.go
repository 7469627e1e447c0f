package pipe

import "github.com/prometheus/client_golang/prometheus"

// DrainThreshold is the number of pending units under which a limited stage drains again.
var DrainThreshold = drainThreshold

// Series returns the collectors of a stage, in the order: accepted, forwarded, errors, pauses, pending,
// buffered.
func (m *Metrics) Series(stage string) []prometheus.Collector {
	return []prometheus.Collector{
		m.accepts.WithLabelValues(stage),
		m.forwards.WithLabelValues(stage),
		m.errors.WithLabelValues(stage),
		m.pauses.WithLabelValues(stage),
		m.inflight.WithLabelValues(stage),
		m.buffer.WithLabelValues(stage),
	}
}
