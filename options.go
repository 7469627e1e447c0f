package pipe

import (
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Option tunes a stage at construction.
type Option func(*options)

type options struct {
	limit    int
	capacity int
	logger   *zap.Logger
	metrics  *Metrics
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	lo.ForEach(opts, func(opt Option, _ int) {
		if opt != nil {
			opt(&o)
		}
	})
	return o
}

// WithLimit sets the number of pending units at which a stage asks its upstream to pause. 0 means unlimited.
func WithLimit(limit int) Option {
	return func(o *options) {
		o.limit = max(limit, 0)
	}
}

// WithBufferCapacity bounds the buffer of batch and split stages: once reached, Accept asks the upstream to
// pause. Units are still buffered, never rejected. 0 means unbounded.
func WithBufferCapacity(capacity int) Option {
	return func(o *options) {
		o.capacity = max(capacity, 0)
	}
}

// WithLogger sets the logger used for lifecycle traces. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = zap.NewNop()
		}
		o.logger = logger
	}
}

// WithMetrics reports the stage counters to m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
