package pipe

import (
	"fmt"
)

// Batch groups consecutive inputs into one combined unit.
//
// Inputs are buffered until size of them are available, then combined and processed as a single unit. While
// the downstream is saturated, inputs keep piling up in the buffer instead of being refused. On end, the
// remaining inputs are flushed as a last, possibly smaller, batch before the stage closes.
type Batch[In, Out any] struct {
	core[Out]
	size     int
	capacity int
	combine  func([]In) Out
	buffer   []In
	accepted int
	flushing bool
}

// NewBatch creates a batch stage forwarding slices of size inputs.
func NewBatch[T any](loop *Loop, name string, size int, opts ...Option) (*Batch[T, []T], error) {
	return NewBatchFunc(loop, name, size, func(units []T) []T { return units }, opts...)
}

// NewBatchFunc creates a batch stage combining size inputs with combine. combine receives a slice it owns.
func NewBatchFunc[In, Out any](loop *Loop, name string, size int, combine func([]In) Out, opts ...Option) (*Batch[In, Out], error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d for stage %q", ErrInvalidBatchSize, size, name)
	}
	o := newOptions(opts)
	b := &Batch[In, Out]{
		core:     newCore[Out](loop, name, o),
		size:     size,
		capacity: o.capacity,
		combine:  combine,
	}
	b.pump = b.flush
	return b, nil
}

// Use sets the middleware applied to combined units.
func (b *Batch[In, Out]) Use(m Middleware[Out, Out]) *Batch[In, Out] {
	b.middleware = m
	return b
}

// SetMiddleware sets an asynchronous middleware applied to combined units.
func (b *Batch[In, Out]) SetMiddleware(fn AsyncFunc[Out, Out]) *Batch[In, Out] {
	return b.Use(Async(fn))
}

// SetMiddlewareSync sets a synchronous middleware applied to combined units.
func (b *Batch[In, Out]) SetMiddlewareSync(fn SyncFunc[Out, Out]) *Batch[In, Out] {
	return b.Use(Sync(fn))
}

// SetPreloadMiddleware sets a hook run before the middleware of each combined unit.
func (b *Batch[In, Out]) SetPreloadMiddleware(fn Preload) *Batch[In, Out] {
	b.preload = fn
	return b
}

// Size returns the number of inputs per batch.
func (b *Batch[In, Out]) Size() int { return b.size }

// UpstreamCount returns the number of inputs accepted.
func (b *Batch[In, Out]) UpstreamCount() int { return b.accepted }

// Buffered returns the number of inputs not combined yet.
func (b *Batch[In, Out]) Buffered() int { return len(b.buffer) }

// Accept buffers an input, and forwards a batch when one is complete.
func (b *Batch[In, Out]) Accept(data In) bool {
	if b.closed {
		b.fail(closedError(b.name))
		return false
	}
	b.accepted++
	b.metrics.accepted(b.name)
	b.buffer = append(b.buffer, data)
	b.metrics.buffered(b.name, len(b.buffer))
	b.flush()

	if !b.ready() {
		return false
	}
	return b.capacity == 0 || len(b.buffer) < b.capacity
}

// Feed is Accept with an end of input marker, see Smart.Feed.
func (b *Batch[In, Out]) Feed(data In, ok bool) bool {
	if !ok {
		b.End()
		return true
	}
	return b.Accept(data)
}

// End signals that no more input is coming. Buffered inputs are still forwarded, the last batch possibly
// incomplete, and the stage closes once its buffer is empty and nothing is pending.
func (b *Batch[In, Out]) End() {
	if b.ending {
		return
	}
	b.end()
	b.flush()
}

func (b *Batch[In, Out]) flush() {
	if b.flushing {
		return
	}
	b.flushing = true
	defer func() { b.flushing = false }()

	for !b.closed && !b.paused && !b.IsOverflow() {
		n := len(b.buffer)
		if n == 0 || (n < b.size && !b.ending) {
			break
		}
		units := make([]In, min(n, b.size))
		copy(units, b.buffer)
		clear(b.buffer[:len(units)])
		b.buffer = b.buffer[len(units):]
		b.metrics.buffered(b.name, len(b.buffer))

		b.hold()
		b.process(b.combine(units))
	}

	if b.ending && len(b.buffer) == 0 {
		b.DestroySoon()
	}
}
