package pipe

import (
	"context"
	"sync"
)

// Loop is the cooperative scheduler shared by the stages of a pipeline.
//
// Stages never block: work that must happen "later" (deferred destruction, completions coming back from
// worker goroutines) is queued with Defer and run by whoever drives the loop, through Turn, Drain or Run.
// Only one goroutine may drive a loop at a time, and all stage state is owned by that goroutine.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Defer queues fn for a later turn. Callbacks run in submission order. Defer is safe to call from any goroutine.
func (l *Loop) Defer(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default: // a wake up is already pending
	}
}

// Len returns the number of queued callbacks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Turn runs the callbacks queued before the call and returns how many ran. Callbacks deferred while the turn
// runs are left for the next turn.
func (l *Loop) Turn() int {
	l.mu.Lock()
	tasks := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, task := range tasks {
		task()
	}
	return len(tasks)
}

// Drain runs turns until nothing is queued anymore and returns the number of callbacks run.
func (l *Loop) Drain() int {
	total := 0
	for {
		n := l.Turn()
		if n == 0 {
			return total
		}
		total += n
	}
}

// Run drives the loop on the calling goroutine until ctx is done, waiting for callbacks posted by other
// goroutines in between turns. It always returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Turn()
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}
