package pipe

import (
	"go.uber.org/zap"
)

// Observable is implemented by every stage. It allows to watch the signals of stages of different unit types.
type Observable interface {
	Name() string
	On(sig Signal, fn func())
}

// Consumer is the downstream half of a wiring: it receives the units of its upstream.
type Consumer[T any] interface {
	Observable
	// Accept submits one unit. It returns false when the caller should stop sending.
	Accept(data T) bool
	// End signals that no more unit will be sent.
	End()
	OnDrain(fn func())
	OnPause(fn func())
}

// Producer is the upstream half of a wiring: it forwards units to a single downstream.
type Producer[T any] interface {
	Observable
	OnData(fn func(T))
	OnEnd(fn func())
	Pause()
	Resume()
	link(downstream any)
}

// Pipe wires src to dst and returns dst, which allows to chain wirings: Pipe(Pipe(a, b), c).
//
// Every unit src forwards is accepted by dst, and src pauses whenever dst refuses more work. A drain of dst
// resumes src, a pause of dst pauses src (so a pause travels backward through the whole chain) and the end of
// src ends dst.
func Pipe[T any, C Consumer[T]](src Producer[T], dst C) C {
	src.link(dst)
	src.OnData(func(data T) {
		if !dst.Accept(data) {
			src.Pause()
		}
	})
	dst.OnDrain(src.Resume)
	dst.OnPause(src.Pause)
	src.OnEnd(dst.End)
	return dst
}

// base holds what every stage shares: identity, terminal state, the downstream link and listeners.
type base[T any] struct {
	name       string
	loop       *Loop
	log        *zap.Logger
	metrics    *Metrics
	closed     bool
	downstream any
	events     events[T]
}

func newBase[T any](loop *Loop, name string, o options) base[T] {
	return base[T]{
		name:    name,
		loop:    loop,
		log:     o.logger.With(zap.String("stage", name)),
		metrics: o.metrics,
	}
}

// Name returns the name of the stage, used for diagnostic only.
func (b *base[T]) Name() string { return b.name }

// IsClosed reports whether the stage is closed. A closed stage never opens again.
func (b *base[T]) IsClosed() bool { return b.closed }

func (b *base[T]) link(downstream any) { b.downstream = downstream }

// On registers fn to be called each time sig is emitted.
func (b *base[T]) On(sig Signal, fn func()) { b.events.on(sig, fn) }

// OnData registers fn to be called with each unit the stage forwards.
func (b *base[T]) OnData(fn func(T)) { b.events.data = append(b.events.data, fn) }

// OnError registers fn to be called with each error the stage reports.
func (b *base[T]) OnError(fn func(error)) { b.events.errs = append(b.events.errs, fn) }

// OnDrain registers fn to be called when the stage can accept units again.
func (b *base[T]) OnDrain(fn func()) { b.On(SignalDrain, fn) }

// OnEmpty registers fn to be called when no unit is pending anymore.
func (b *base[T]) OnEmpty(fn func()) { b.On(SignalEmpty, fn) }

// OnPause registers fn to be called when the stage is paused.
func (b *base[T]) OnPause(fn func()) { b.On(SignalPause, fn) }

// OnEnding registers fn to be called when the stage is told no more input is coming.
func (b *base[T]) OnEnding(fn func()) { b.On(SignalEnding, fn) }

// OnEnd registers fn to be called when the stage has forwarded its last unit.
func (b *base[T]) OnEnd(fn func()) { b.On(SignalEnd, fn) }

// OnClose registers fn to be called once the stage is closed.
func (b *base[T]) OnClose(fn func()) { b.On(SignalClose, fn) }

// Destroy closes the stage. The close signal is emitted on the next loop turn, so that the current turn still
// observes the stage as it was. Subsequent calls do nothing.
func (b *base[T]) Destroy() {
	if b.closed {
		return
	}
	b.closed = true
	b.log.Debug("stage closed")
	b.loop.Defer(func() { b.events.emit(SignalClose) })
}

func (b *base[T]) fail(err error) {
	b.metrics.failed(b.name)
	b.events.emitError(err)
}

func (b *base[T]) forward(data T) {
	b.metrics.forwarded(b.name)
	b.events.emitData(data)
}
