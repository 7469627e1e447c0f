package pipe

import (
	"github.com/samber/lo"
)

// Process defines a basic function which updates a unit and returns the updated unit.
type Process[T any] func(T) T

// Map decorates a Process, in order to use it as a synchronous middleware.
func Map[T any](proc Process[T]) SyncFunc[T, T] {
	return func(data T) (T, error) { return proc(data), nil }
}

// Maps is an helper function to call Map on lists.
func Maps[T any](procs ...Process[T]) []SyncFunc[T, T] {
	return lo.Map(procs, func(proc Process[T], _ int) SyncFunc[T, T] {
		return Map(proc)
	})
}

// Link chains several synchronous functions into one. The chain stops at the first error, ErrSkip included.
func Link[T any](fns ...SyncFunc[T, T]) SyncFunc[T, T] {
	return func(data T) (T, error) {
		return lo.Reduce(fns, func(acc lo.Tuple2[T, error], fn SyncFunc[T, T], _ int) lo.Tuple2[T, error] {
			if acc.B != nil {
				return acc
			}
			out, err := fn(acc.A)
			return lo.T2(out, err)
		}, lo.T2[T, error](data, nil)).Unpack()
	}
}

// Filter keeps the units matching keep and skips the others.
func Filter[T any](keep func(T) bool) SyncFunc[T, T] {
	return func(data T) (T, error) {
		if !keep(data) {
			var zero T
			return zero, ErrSkip
		}
		return data, nil
	}
}
