package pipe

import (
	"errors"
	"fmt"
)

type fragment[T any] struct {
	data T
	last bool
}

// Split breaks each input into fragments forwarded one by one.
//
// An input stays pending until its last fragment has been forwarded, so the stage only reports empty, and only
// closes after an end, once its buffer is flushed.
type Split[In, Out any] struct {
	core[Out]
	splitter Middleware[In, []Out]
	capacity int
	buffer   []fragment[Out]
	flushing bool
}

// SplitSync wraps a synchronous splitter.
func SplitSync[In, Out any](fn func(In) ([]Out, error)) Middleware[In, []Out] {
	return Sync(SyncFunc[In, []Out](fn))
}

// SplitAsync wraps an asynchronous splitter.
func SplitAsync[In, Out any](fn func(data In, done Done[[]Out])) Middleware[In, []Out] {
	return Async(AsyncFunc[In, []Out](fn))
}

// NewSplit creates a fan-out stage.
func NewSplit[In, Out any](loop *Loop, name string, splitter Middleware[In, []Out], opts ...Option) (*Split[In, Out], error) {
	if splitter.IsZero() {
		var in In
		var out Out
		return nil, fmt.Errorf("%w from %T to %T for stage %q", ErrInvalidSplitter, in, out, name)
	}
	o := newOptions(opts)
	s := &Split[In, Out]{
		core:     newCore[Out](loop, name, o),
		splitter: splitter,
		capacity: o.capacity,
	}
	s.pump = s.flush
	return s, nil
}

// Buffered returns the number of fragments not forwarded yet.
func (s *Split[In, Out]) Buffered() int { return len(s.buffer) }

// Accept splits an input and forwards its fragments while the downstream allows it.
func (s *Split[In, Out]) Accept(data In) bool {
	if !s.admit() {
		return false
	}
	s.splitter.call(data, once(s.enqueue, func(err error) {
		s.log.Warn("split completed more than once")
	}), s.fail)

	if !s.ready() {
		return false
	}
	return s.capacity == 0 || len(s.buffer) < s.capacity
}

// Feed is Accept with an end of input marker, see Smart.Feed.
func (s *Split[In, Out]) Feed(data In, ok bool) bool {
	if !ok {
		s.End()
		return true
	}
	return s.Accept(data)
}

// End signals that no more input is coming. The stage closes once every buffered fragment is forwarded.
func (s *Split[In, Out]) End() {
	s.end()
	s.DestroySoon()
}

func (s *Split[In, Out]) enqueue(fragments []Out, err error) {
	if s.closed {
		return
	}
	switch {
	case errors.Is(err, ErrSkip):
	case err != nil:
		s.fail(err)
	case len(fragments) > 0:
		for i, data := range fragments {
			s.buffer = append(s.buffer, fragment[Out]{data: data, last: i == len(fragments)-1})
		}
		s.metrics.buffered(s.name, len(s.buffer))
		s.flush()
		return
	}
	s.countPending--
	s.settle()
}

func (s *Split[In, Out]) flush() {
	if s.flushing {
		return
	}
	s.flushing = true
	defer func() { s.flushing = false }()

	for !s.closed && !s.paused && len(s.buffer) > 0 {
		f := s.buffer[0]
		s.buffer[0] = fragment[Out]{}
		s.buffer = s.buffer[1:]
		s.metrics.buffered(s.name, len(s.buffer))

		s.countDownstream++
		s.forward(f.data)
		if f.last {
			s.countPending--
			s.settle()
		}
	}
}
