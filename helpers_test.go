package pipe_test

import (
	"testing"

	"github.com/fogfactory/pipe/v2"
	"github.com/maxatome/go-testdeep/td"
	"github.com/samber/lo"
)

var allSignals = []pipe.Signal{
	pipe.SignalData,
	pipe.SignalError,
	pipe.SignalDrain,
	pipe.SignalEmpty,
	pipe.SignalPause,
	pipe.SignalEnding,
	pipe.SignalEnd,
	pipe.SignalClose,
}

// recorder keeps track of the signals emitted by a set of stages.
type recorder struct {
	seen map[string][]pipe.Signal
}

func watch(stages ...pipe.Observable) *recorder {
	r := &recorder{seen: map[string][]pipe.Signal{}}
	for _, stage := range stages {
		name := stage.Name()
		for _, sig := range allSignals {
			sig := sig
			stage.On(sig, func() { r.seen[name] = append(r.seen[name], sig) })
		}
	}
	return r
}

func (r *recorder) count(stage pipe.Observable, sig pipe.Signal) int {
	return lo.Count(r.seen[stage.Name()], sig)
}

func (r *recorder) assertSeen(t testing.TB, stage pipe.Observable, sigs ...pipe.Signal) {
	t.Helper()
	for _, sig := range sigs {
		td.CmpNot(t, r.count(stage, sig), 0, "signal %s not seen on stage %s", sig, stage.Name())
	}
}

func (r *recorder) assertNotSeen(t testing.TB, stage pipe.Observable, sigs ...pipe.Signal) {
	t.Helper()
	for _, sig := range sigs {
		td.Cmp(t, r.count(stage, sig), 0, "signal %s not expected on stage %s", sig, stage.Name())
	}
}

// holder is an asynchronous middleware keeping its units until released.
type holder[T any] struct {
	held []func()
}

func (h *holder[T]) hold(data T, done pipe.Done[T]) {
	h.held = append(h.held, func() { done(data, nil) })
}

// release completes the units held so far. Units held meanwhile wait for the next release.
func (h *holder[T]) release() {
	held := h.held
	h.held = nil
	for _, done := range held {
		done()
	}
}

func (h *holder[T]) len() int { return len(h.held) }

type producer[T any] interface {
	OnData(fn func(T))
}

func collect[T any](stage producer[T]) *[]T {
	var out []T
	stage.OnData(func(data T) { out = append(out, data) })
	return &out
}

func collectErrors(stage interface{ OnError(func(error)) }) *[]error {
	var errs []error
	stage.OnError(func(err error) { errs = append(errs, err) })
	return &errs
}
