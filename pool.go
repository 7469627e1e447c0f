package pipe

import (
	"fmt"

	"github.com/panjf2000/ants/v2"
)

// Workers runs middleware work away from the loop goroutine. Results are posted back to the loop, so stages
// never see them before a loop turn.
type Workers struct {
	loop *Loop
	pool *ants.Pool
}

// NewWorkersWithOptions builds workers backed by a pool of size goroutines.
//
// A size of 0 means no pool at all: the work runs inline, in the loop goroutine.
func NewWorkersWithOptions(loop *Loop, size int, opts ...ants.Option) (*Workers, error) {
	w := &Workers{loop: loop}
	if size != 0 {
		pool, err := ants.NewPool(size, opts...)
		if err != nil {
			return nil, err
		}
		w.pool = pool
	}
	return w, nil
}

// NewWorkers builds workers backed by a pool of size goroutines, 0 meaning inline. The pool is blocking: a
// submission waits for a free goroutine, on the loop goroutine.
func NewWorkers(loop *Loop, size int) (*Workers, error) {
	return NewWorkersWithOptions(loop, size)
}

// Release releases the pool. Work already submitted still completes.
func (w *Workers) Release() {
	if w == nil || w.pool == nil {
		return
	}
	w.pool.Release()
}

// Running returns the number of goroutines currently busy.
func (w *Workers) Running() int {
	if w == nil || w.pool == nil {
		return 0
	}
	return w.pool.Running()
}

// Offload turns fn into an asynchronous middleware running on w. A nil w, or workers without pool, run fn
// inline.
//
// The stage using it should be built WithLimit at most the pool size, and fed by a producer honoring the
// value Accept returns. Otherwise a saturated pool blocks the loop on a blocking pool, or fails the units with
// ErrSubmit on a nonblocking one.
func Offload[In, Out any](w *Workers, fn SyncFunc[In, Out]) Middleware[In, Out] {
	if w == nil || w.pool == nil {
		return Sync(fn)
	}
	return Async(func(data In, done Done[Out]) {
		err := w.pool.Submit(func() {
			result, err := protect(fn, data)
			w.loop.Defer(func() { done(result, err) })
		})
		if err != nil {
			var zero Out
			done(zero, fmt.Errorf("%w: %w", ErrSubmit, err))
		}
	})
}

// protect runs fn and turns its panic into an error, since nothing would recover it on a worker goroutine.
func protect[In, Out any](fn SyncFunc[In, Out], data In) (result Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	return fn(data)
}
