package pipe

// Passthrough is a sink that forwards each processed unit downstream, so that it can itself be piped.
type Passthrough[T any] struct {
	*Sink[T]
	countDownstream int
}

// NewPassthrough creates a passthrough stage.
func NewPassthrough[T any](loop *Loop, name string, opts ...Option) *Passthrough[T] {
	p := &Passthrough[T]{Sink: newSink[T](loop, name, newOptions(opts))}
	p.destroy = p.Destroy
	p.OnConsumed(func(result T) {
		p.countDownstream++
		p.forward(result)
	})
	return p
}

// DownstreamCount returns the number of units forwarded.
func (p *Passthrough[T]) DownstreamCount() int { return p.countDownstream }

// IsPaused reports whether the downstream asked this stage to stop forwarding.
func (p *Passthrough[T]) IsPaused() bool { return p.paused }

// Pause marks the stage paused and emits pause.
func (p *Passthrough[T]) Pause() {
	if p.paused || p.closed {
		return
	}
	p.paused = true
	p.metrics.paused(p.name)
	p.events.emit(SignalPause)
}

// Resume clears the pause and emits drain.
func (p *Passthrough[T]) Resume() {
	if !p.paused || p.closed {
		return
	}
	p.paused = false
	p.events.emit(SignalDrain)
}

// Destroy closes the stage. End is emitted on the next loop turn, and close as well when nothing is wired
// downstream.
func (p *Passthrough[T]) Destroy() {
	if p.closed {
		return
	}
	p.closed = true
	p.log.Debug("stage closed")
	p.loop.Defer(func() { p.events.emit(SignalEnd) })
	if p.downstream == nil {
		p.loop.Defer(func() { p.events.emit(SignalClose) })
	}
}
