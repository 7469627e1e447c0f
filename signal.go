package pipe

// Signal identifies an event a stage emits.
type Signal int

const (
	// SignalData follows every unit a stage forwards.
	SignalData Signal = iota
	// SignalError follows every error a stage reports.
	SignalError
	// SignalDrain means the stage is ready to accept more work.
	SignalDrain
	// SignalEmpty means the stage has no outstanding work left. It only drives shutdown.
	SignalEmpty
	// SignalPause asks the upstream stage to stop forwarding.
	SignalPause
	// SignalEnding means no more input is coming, while outstanding work may still complete.
	SignalEnding
	// SignalEnd means the stage stopped producing for good.
	SignalEnd
	// SignalClose is the terminal event, only emitted by stages at the end of a chain.
	SignalClose
)

var signalNames = [...]string{
	SignalData:   "data",
	SignalError:  "error",
	SignalDrain:  "drain",
	SignalEmpty:  "empty",
	SignalPause:  "pause",
	SignalEnding: "ending",
	SignalEnd:    "end",
	SignalClose:  "close",
}

// String returns the name of the signal, "unknown" when out of range.
func (s Signal) String() string {
	if s < 0 || int(s) >= len(signalNames) {
		return "unknown"
	}
	return signalNames[s]
}

// events holds the listeners of a stage. Listeners run synchronously, in registration order.
type events[T any] struct {
	data    []func(T)
	errs    []func(error)
	signals map[Signal][]func()
}

func (e *events[T]) on(sig Signal, fn func()) {
	if e.signals == nil {
		e.signals = make(map[Signal][]func())
	}
	e.signals[sig] = append(e.signals[sig], fn)
}

func (e *events[T]) emit(sig Signal) {
	for _, fn := range e.signals[sig] {
		fn()
	}
}

func (e *events[T]) emitData(data T) {
	for _, fn := range e.data {
		fn(data)
	}
	e.emit(SignalData)
}

func (e *events[T]) emitError(err error) {
	for _, fn := range e.errs {
		fn(err)
	}
	e.emit(SignalError)
}
