package pipe

// Done completes the processing of a unit. It must be called exactly once, from the goroutine driving the loop.
// Completing with ErrSkip drops the unit without forwarding it.
type Done[Out any] func(result Out, err error)

// SyncFunc processes a unit and returns the result.
type SyncFunc[In, Out any] func(In) (Out, error)

// AsyncFunc processes a unit and reports the result later through done.
type AsyncFunc[In, Out any] func(data In, done Done[Out])

// Preload runs before the middleware of each unit. The middleware starts when next is called.
type Preload func(next func())

// Middleware is the processing function of a stage: either synchronous or asynchronous. The zero Middleware
// forwards units unchanged when In and Out are the same type.
type Middleware[In, Out any] struct {
	sync  SyncFunc[In, Out]
	async AsyncFunc[In, Out]
}

// Sync wraps a synchronous processing function.
func Sync[In, Out any](fn SyncFunc[In, Out]) Middleware[In, Out] {
	return Middleware[In, Out]{sync: fn}
}

// Async wraps an asynchronous processing function.
func Async[In, Out any](fn AsyncFunc[In, Out]) Middleware[In, Out] {
	return Middleware[In, Out]{async: fn}
}

// IsZero reports whether no processing function is set.
func (m Middleware[In, Out]) IsZero() bool {
	return m.sync == nil && m.async == nil
}

// call runs the middleware. A panic raised before completion is turned into an ErrPanic completion, a panic
// raised after it is reported to fail. Panics from next itself are not recovered. A zero middleware completes
// with the input itself, or with ErrSkip when the input cannot be used as output.
func (m Middleware[In, Out]) call(data In, next Done[Out], fail func(error)) {
	var zero Out
	completed, inNext := false, false
	done := func(result Out, err error) {
		completed = true
		inNext = true
		next(result, err)
		inNext = false
	}
	defer func() {
		r := recover()
		switch {
		case r == nil:
		case inNext:
			panic(r)
		case completed:
			fail(panicError(r))
		default:
			done(zero, panicError(r))
		}
	}()

	switch {
	case m.sync != nil:
		result, err := m.sync(data)
		done(result, err)
	case m.async != nil:
		m.async(data, done)
	default:
		if any(data) == nil && any(zero) == nil {
			done(zero, nil)
			return
		}
		result, ok := any(data).(Out)
		if !ok {
			done(zero, ErrSkip)
			return
		}
		done(result, nil)
	}
}

// once guards a Done so that only its first call counts. Later calls are handed to late.
func once[Out any](done Done[Out], late func(err error)) Done[Out] {
	called := false
	return func(result Out, err error) {
		if called {
			late(err)
			return
		}
		called = true
		done(result, err)
	}
}
