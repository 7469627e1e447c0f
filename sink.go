package pipe

import (
	"errors"
)

// Sink is a write only stage: it runs a middleware on the units it accepts and reports drain when idle.
type Sink[T any] struct {
	base[T]
	countUpstream  int
	countPending   int
	limit          int
	paused         bool
	destroyOnDrain bool
	middleware     Middleware[T, T]
	consumed       []func(T)
	destroy        func()
}

// NewSink creates a sink stage.
func NewSink[T any](loop *Loop, name string, opts ...Option) *Sink[T] {
	return newSink[T](loop, name, newOptions(opts))
}

func newSink[T any](loop *Loop, name string, o options) *Sink[T] {
	s := &Sink[T]{
		base:  newBase[T](loop, name, o),
		limit: o.limit,
	}
	s.destroy = s.Destroy
	return s
}

// UpstreamCount returns the number of units accepted.
func (s *Sink[T]) UpstreamCount() int { return s.countUpstream }

// Pending returns the number of units accepted but not processed yet.
func (s *Sink[T]) Pending() int { return s.countPending }

// Use sets the middleware.
func (s *Sink[T]) Use(m Middleware[T, T]) *Sink[T] {
	s.middleware = m
	return s
}

// SetMiddleware sets an asynchronous middleware.
func (s *Sink[T]) SetMiddleware(fn AsyncFunc[T, T]) *Sink[T] {
	return s.Use(Async(fn))
}

// SetMiddlewareSync sets a synchronous middleware.
func (s *Sink[T]) SetMiddlewareSync(fn SyncFunc[T, T]) *Sink[T] {
	return s.Use(Sync(fn))
}

// OnConsumed registers fn to be called with the result of each processed unit.
func (s *Sink[T]) OnConsumed(fn func(T)) {
	s.consumed = append(s.consumed, fn)
}

// Accept submits a unit and returns false when the caller should pause.
func (s *Sink[T]) Accept(data T) bool {
	if s.closed {
		s.fail(closedError(s.name))
		return false
	}
	s.countUpstream++
	s.countPending++
	s.metrics.accepted(s.name)
	s.metrics.pending(s.name, s.countPending)

	s.middleware.call(data, once(s.complete, func(error) {
		s.log.Warn("unit completed more than once")
	}), s.fail)

	if s.paused {
		return false
	}
	return s.limit == 0 || s.countPending < s.limit
}

func (s *Sink[T]) complete(result T, err error) {
	if s.closed {
		return
	}
	s.countPending--
	s.metrics.pending(s.name, s.countPending)

	switch {
	case errors.Is(err, ErrSkip):
	case err != nil:
		s.fail(err)
	default:
		for _, fn := range s.consumed {
			fn(result)
		}
	}

	if s.countPending == 0 {
		s.events.emit(SignalDrain)
		if s.destroyOnDrain {
			s.destroyOnDrain = false
			s.destroy()
		}
	}
}

// End signals that no more unit is coming.
func (s *Sink[T]) End() {
	s.DestroySoon()
}

// DestroySoon destroys the stage now when idle, or on its next drain.
func (s *Sink[T]) DestroySoon() {
	if s.countPending == 0 {
		s.destroy()
		return
	}
	s.destroyOnDrain = true
}
