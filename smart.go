package pipe

import (
	"errors"

	"go.uber.org/zap"
)

// core is the flow control engine shared by Smart, Batch and Split.
//
// It tracks the units in flight, applies backpressure with hysteresis and defers its own destruction until
// every pending unit is settled.
type core[T any] struct {
	base[T]
	countUpstream   int
	countDownstream int
	countPending    int
	limit           int
	paused          bool
	ending          bool
	destroying      bool
	destroyOnEmpty  bool
	middleware      Middleware[T, T]
	preload         Preload
	// pump forwards buffered units, for the stages holding some.
	pump func()
}

func newCore[T any](loop *Loop, name string, o options) core[T] {
	return core[T]{
		base:  newBase[T](loop, name, o),
		limit: o.limit,
	}
}

// UpstreamCount returns the number of units accepted.
func (c *core[T]) UpstreamCount() int { return c.countUpstream }

// DownstreamCount returns the number of units forwarded.
func (c *core[T]) DownstreamCount() int { return c.countDownstream }

// Pending returns the number of units accepted but not settled yet.
func (c *core[T]) Pending() int { return c.countPending }

// Limit returns the pending limit, 0 when unlimited.
func (c *core[T]) Limit() int { return c.limit }

// IsPaused reports whether the downstream asked this stage to stop forwarding.
func (c *core[T]) IsPaused() bool { return c.paused }

// IsOverflow reports whether the stage reached its pending limit. An unlimited stage never overflows.
func (c *core[T]) IsOverflow() bool {
	return c.limit > 0 && c.countPending >= c.limit
}

// IsDrained reports whether the stage is ready for more work. A limited stage is ready again once its pending
// units fall to a third of the limit, which keeps it from flapping around the limit.
func (c *core[T]) IsDrained() bool {
	if c.limit > 0 {
		return c.countPending <= drainThreshold(c.limit)
	}
	return c.countPending == 0
}

// IsDrainedFully reports whether no unit is pending.
func (c *core[T]) IsDrainedFully() bool {
	return c.countPending == 0
}

func drainThreshold(limit int) int {
	return (limit + 2) / 3
}

// admit is the common admission of a unit. It reports false when the stage is closed.
func (c *core[T]) admit() bool {
	if c.closed {
		c.fail(closedError(c.name))
		return false
	}
	c.countUpstream++
	c.metrics.accepted(c.name)
	c.hold()
	return true
}

// hold marks one more unit as pending.
func (c *core[T]) hold() {
	c.countPending++
	c.metrics.pending(c.name, c.countPending)
}

// ready is the value Accept returns once a unit was admitted.
func (c *core[T]) ready() bool {
	if c.paused {
		return false
	}
	return !c.IsOverflow()
}

// process runs an admitted unit through the preload and the middleware.
func (c *core[T]) process(data T) {
	run := func() { c.middleware.call(data, c.completion(), c.fail) }
	if c.preload == nil {
		run()
		return
	}

	started := false
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if started {
				panic(r)
			}
			started = true
			c.complete(data, panicError(r))
		}()
		c.preload(func() {
			if started {
				c.log.Warn("preload continued more than once", zap.Error(ErrDoubleCompletion))
				return
			}
			started = true
			run()
		})
	}()
}

func (c *core[T]) completion() Done[T] {
	return once(c.complete, func(err error) {
		c.log.Warn("unit completed more than once", zap.Error(ErrDoubleCompletion), zap.NamedError("late", err))
	})
}

// complete settles one unit. Completions reaching a closed stage are discarded.
func (c *core[T]) complete(result T, err error) {
	if c.closed {
		return
	}
	c.countPending--

	switch {
	case errors.Is(err, ErrSkip):
	case err != nil:
		c.fail(err)
	default:
		c.countDownstream++
		c.forward(result)
	}
	c.settle()
}

// settle emits drain and empty according to the pending units, and fires a deferred destruction.
func (c *core[T]) settle() {
	c.metrics.pending(c.name, c.countPending)
	if c.closed {
		return
	}
	if c.IsDrained() && !c.paused {
		c.drain()
	}
	if !c.closed && c.IsDrainedFully() {
		c.events.emit(SignalEmpty)
		if c.destroyOnEmpty {
			c.destroyOnEmpty = false
			c.Destroy()
		}
	}
}

// Pause stops forwarding and propagates the pause to the upstream stage.
func (c *core[T]) Pause() {
	if c.paused || c.closed {
		return
	}
	c.paused = true
	c.metrics.paused(c.name)
	c.log.Debug("stage paused", zap.Int("pending", c.countPending))
	c.events.emit(SignalPause)
}

// Resume restarts forwarding, and emits drain so that the upstream stage resumes as well.
func (c *core[T]) Resume() {
	if !c.paused || c.closed {
		return
	}
	c.paused = false
	c.log.Debug("stage resumed", zap.Int("pending", c.countPending))
	c.drain()
}

// drain pumps the buffered units first, then emits drain unless pumping paused or closed the stage again. The
// order matters: emitting first would resume the upstream of a stage paused right after.
func (c *core[T]) drain() {
	if c.pump != nil {
		c.pump()
	}
	if c.paused || c.closed {
		return
	}
	c.events.emit(SignalDrain)
}

func (c *core[T]) end() {
	if c.ending {
		return
	}
	c.ending = true
	c.log.Debug("stage ending", zap.Int("pending", c.countPending))
	c.events.emit(SignalEnding)
}

// DestroySoon destroys the stage once no unit is pending anymore.
func (c *core[T]) DestroySoon() {
	if c.destroying {
		return
	}
	c.destroying = true
	if c.IsDrainedFully() {
		c.loop.Defer(c.Destroy)
		return
	}
	c.destroyOnEmpty = true
}

// Destroy closes the stage immediately. Pending completions are discarded. The stage emits end, and close only
// when nothing is wired downstream: closing the pipeline is the job of its last stage.
func (c *core[T]) Destroy() {
	if c.closed {
		return
	}
	c.closed = true
	c.log.Debug("stage closed", zap.Int("pending", c.countPending))
	c.events.emit(SignalEnd)
	if c.downstream == nil {
		c.events.emit(SignalClose)
	}
}

// Smart is the full featured stage: a middleware applied to each unit, with backpressure and a graceful
// shutdown.
type Smart[T any] struct {
	core[T]
}

// NewSmart creates a stage. Without middleware, units are forwarded unchanged.
func NewSmart[T any](loop *Loop, name string, opts ...Option) *Smart[T] {
	return &Smart[T]{core: newCore[T](loop, name, newOptions(opts))}
}

// Use sets the middleware.
func (s *Smart[T]) Use(m Middleware[T, T]) *Smart[T] {
	s.middleware = m
	return s
}

// SetMiddleware sets an asynchronous middleware.
func (s *Smart[T]) SetMiddleware(fn AsyncFunc[T, T]) *Smart[T] {
	return s.Use(Async(fn))
}

// SetMiddlewareSync sets a synchronous middleware.
func (s *Smart[T]) SetMiddlewareSync(fn SyncFunc[T, T]) *Smart[T] {
	return s.Use(Sync(fn))
}

// SetPreloadMiddleware sets a hook run before the middleware of each unit.
func (s *Smart[T]) SetPreloadMiddleware(fn Preload) *Smart[T] {
	s.preload = fn
	return s
}

// Accept submits a unit. It returns false when the upstream should pause: the stage is paused or reached its
// limit. Writing to a closed stage reports ErrClosed as an error event.
func (s *Smart[T]) Accept(data T) bool {
	if !s.admit() {
		return false
	}
	s.process(data)
	return s.ready()
}

// Feed is Accept with an end of input marker, in the manner of a channel receive: when ok is false, data is
// ignored and the stage ends.
func (s *Smart[T]) Feed(data T, ok bool) bool {
	if !ok {
		s.End()
		return true
	}
	return s.Accept(data)
}

// End signals that no more unit is coming. The stage is destroyed once every pending unit is settled.
func (s *Smart[T]) End() {
	s.end()
	s.DestroySoon()
}
