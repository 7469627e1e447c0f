package pipe_test

import (
	"errors"
	"testing"

	"github.com/fogfactory/pipe/v2"
	"github.com/maxatome/go-testdeep/td"
)

func TestSmart(t *testing.T) {
	t.Run("success_write", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		p := pipe.NewSmart[string](loop, "p")
		c := pipe.Pipe(p, pipe.NewSmart[string](loop, "c"))
		rec := watch(p, c)

		// Act
		p.Accept("hello world!")
		loop.Drain()

		// Assert
		td.Cmp(t, p.UpstreamCount(), 1)
		td.Cmp(t, p.Pending(), 0)
		td.Cmp(t, p.DownstreamCount(), 1)
		td.Cmp(t, c.UpstreamCount(), 1)
		td.Cmp(t, c.Pending(), 0)
		td.Cmp(t, c.DownstreamCount(), 1)
		rec.assertSeen(t, p, pipe.SignalData, pipe.SignalDrain, pipe.SignalEmpty)
		rec.assertSeen(t, c, pipe.SignalData, pipe.SignalDrain, pipe.SignalEmpty)
	})

	t.Run("success_write_with_preload", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		p := pipe.NewSmart[string](loop, "p")
		c := pipe.Pipe(p, pipe.NewSmart[string](loop, "c").SetPreloadMiddleware(func(next func()) {
			loop.Defer(next)
		}))
		rec := watch(p, c)

		// Act
		p.Accept("hello world!")

		// Assert
		td.Cmp(t, c.Pending(), 1)
		rec.assertNotSeen(t, c, pipe.SignalData)

		loop.Drain()

		td.Cmp(t, p.UpstreamCount(), 1)
		td.Cmp(t, p.Pending(), 0)
		td.Cmp(t, p.DownstreamCount(), 1)
		td.Cmp(t, c.UpstreamCount(), 1)
		td.Cmp(t, c.Pending(), 0)
		td.Cmp(t, c.DownstreamCount(), 1)
		rec.assertSeen(t, p, pipe.SignalData, pipe.SignalDrain, pipe.SignalEmpty)
		rec.assertSeen(t, c, pipe.SignalData, pipe.SignalDrain, pipe.SignalEmpty)
	})

	t.Run("success_middleware", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		p := pipe.NewSmart[string](loop, "p")
		c := pipe.Pipe(p, pipe.NewSmart[string](loop, "c"))
		c.SetMiddleware(func(data string, done pipe.Done[string]) {
			td.Cmp(t, c.Pending(), 1)
			td.Cmp(t, p.Pending(), 0)
			done(data+" goodbye moon.", nil)
		})
		out := collect[string](c)
		rec := watch(p, c)

		// Act
		p.Accept("hello world!")
		loop.Drain()

		// Assert
		td.Cmp(t, *out, []string{"hello world! goodbye moon."})
		td.Cmp(t, c.UpstreamCount(), 1)
		td.Cmp(t, c.Pending(), 0)
		td.Cmp(t, c.DownstreamCount(), 1)
		rec.assertSeen(t, c, pipe.SignalDrain, pipe.SignalEmpty)
	})

	t.Run("success_middleware_with_preload", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		p := pipe.NewSmart[string](loop, "p")
		c := pipe.Pipe(p, pipe.NewSmart[string](loop, "c"))
		var steps []string
		c.SetPreloadMiddleware(func(next func()) {
			steps = append(steps, "preload")
			loop.Defer(next)
		})
		c.SetMiddlewareSync(func(data string) (string, error) {
			steps = append(steps, "middleware")
			return data + " goodbye moon.", nil
		})
		out := collect[string](c)

		// Act
		p.Accept("hello world!")
		loop.Drain()

		// Assert
		td.Cmp(t, steps, []string{"preload", "middleware"})
		td.Cmp(t, *out, []string{"hello world! goodbye moon."})
		td.Cmp(t, c.Pending(), 0)
	})

	t.Run("success_pause", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		p := pipe.NewSmart[string](loop, "p")
		c := pipe.Pipe(p, pipe.NewSmart[string](loop, "c", pipe.WithLimit(1)))
		c.SetMiddleware(func(string, pipe.Done[string]) {
			td.Cmp(t, c.UpstreamCount(), 1)
			td.Cmp(t, c.Pending(), 1)
			td.Cmp(t, c.DownstreamCount(), 0)
		})
		paused := 0
		p.OnPause(func() {
			paused++
			td.CmpTrue(t, p.IsPaused())
			td.CmpFalse(t, c.IsPaused())
			td.Cmp(t, c.Pending(), 1)
		})

		// Act
		p.Accept("hello world!")

		// Assert
		td.Cmp(t, paused, 1)
		td.CmpTrue(t, c.IsOverflow())
	})

	t.Run("success_pause_back_to_back", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		p := pipe.NewSmart[string](loop, "p")
		h := &holder[string]{}
		c := pipe.Pipe(p, pipe.NewSmart[string](loop, "c", pipe.WithLimit(1)).SetMiddleware(h.hold))
		out := collect[string](c)
		rec := watch(p, c)

		// Act
		p.Accept("a")
		pausedFirst := rec.count(p, pipe.SignalPause)
		p.Accept("b")

		// Assert
		td.Cmp(t, pausedFirst, 1)
		td.Cmp(t, c.Pending(), 2)
		td.CmpEmpty(t, *out)

		h.release()

		td.Cmp(t, *out, []string{"a", "b"})
		td.CmpFalse(t, p.IsPaused())
	})

	t.Run("success_resume", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		p := pipe.NewSmart[string](loop, "p")
		m := pipe.NewSmart[string](loop, "m")
		c := pipe.Pipe(pipe.Pipe(p, m), pipe.NewSmart[string](loop, "c", pipe.WithLimit(3)))
		h := &holder[string]{}
		c.SetMiddleware(h.hold)
		for i, data := range []string{"a", "b"} {
			// Act
			p.Accept(data)
			loop.Drain()

			// Assert
			td.Cmp(t, p.Pending(), 0)
			td.Cmp(t, m.Pending(), 0)
			td.Cmp(t, c.Pending(), i+1)
			td.CmpFalse(t, p.IsPaused())
			td.CmpFalse(t, m.IsPaused())
			td.CmpFalse(t, c.IsPaused())
		}

		p.Accept("c")
		loop.Drain()

		td.Cmp(t, c.Pending(), 3)
		td.CmpTrue(t, p.IsPaused())
		td.CmpTrue(t, m.IsPaused())
		td.CmpFalse(t, c.IsPaused())

		h.release()
		td.Cmp(t, c.Pending(), 0)
		loop.Drain()

		td.CmpFalse(t, p.IsPaused())
		td.CmpFalse(t, m.IsPaused())
		td.CmpFalse(t, c.IsPaused())
	})

	t.Run("success_end", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		p := pipe.NewSmart[string](loop, "p")
		m := pipe.NewSmart[string](loop, "m")
		c := pipe.Pipe(pipe.Pipe(p, m), pipe.NewSmart[string](loop, "c", pipe.WithLimit(3)))
		h := &holder[string]{}
		c.SetMiddleware(h.hold)
		rec := watch(p, m, c)

		// Act
		p.Accept("a")
		p.Accept("b")
		p.Accept("c")
		p.End()

		// Assert
		td.CmpFalse(t, p.IsClosed())
		td.CmpFalse(t, m.IsClosed())
		td.CmpFalse(t, c.IsClosed())

		loop.Drain()

		td.CmpTrue(t, p.IsClosed())
		td.CmpTrue(t, m.IsClosed())
		td.CmpFalse(t, c.IsClosed())
		rec.assertSeen(t, p, pipe.SignalData, pipe.SignalEnding, pipe.SignalEnd)
		rec.assertSeen(t, m, pipe.SignalData, pipe.SignalEnding, pipe.SignalEnd)
		rec.assertSeen(t, c, pipe.SignalEnding)
		rec.assertNotSeen(t, c, pipe.SignalData)
		rec.assertNotSeen(t, p, pipe.SignalClose)
		rec.assertNotSeen(t, m, pipe.SignalClose)

		h.release()
		loop.Drain()

		rec.assertSeen(t, c, pipe.SignalData, pipe.SignalEmpty, pipe.SignalEnd, pipe.SignalClose)
		td.Cmp(t, rec.count(c, pipe.SignalClose), 1)
		td.CmpTrue(t, c.IsClosed())
	})

	t.Run("success_feed", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		s := pipe.NewSmart[int](loop, "s")
		out := collect[int](s)
		in := make(chan int, 3)
		in <- 1
		in <- 2
		close(in)

		// Act
		for {
			v, ok := <-in
			s.Feed(v, ok)
			if !ok {
				break
			}
		}
		loop.Drain()

		// Assert
		td.Cmp(t, *out, []int{1, 2})
		td.CmpTrue(t, s.IsClosed())
	})

	t.Run("success_limit_one", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		s := pipe.NewSmart[string](loop, "s", pipe.WithLimit(1))
		h := &holder[string]{}
		s.SetMiddleware(h.hold)
		rec := watch(s)

		// Act
		ok := s.Accept("a")

		// Assert
		td.CmpFalse(t, ok)
		td.CmpTrue(t, s.IsOverflow())
		td.CmpFalse(t, s.IsDrainedFully())
		td.Cmp(t, h.len(), 1)

		h.release()

		td.CmpFalse(t, s.IsOverflow())
		td.CmpTrue(t, s.IsDrainedFully())
		td.Cmp(t, s.DownstreamCount(), 1)
		td.Cmp(t, rec.count(s, pipe.SignalDrain), 1)
		td.Cmp(t, rec.count(s, pipe.SignalEmpty), 1)
	})

	t.Run("success_hysteresis", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		s := pipe.NewSmart[int](loop, "s", pipe.WithLimit(6))
		var dones []pipe.Done[int]
		s.SetMiddleware(func(data int, done pipe.Done[int]) { dones = append(dones, done) })
		rec := watch(s)
		for i := 0; i < 6; i++ {
			s.Accept(i)
		}
		td.Require(t).True(s.IsOverflow())

		// Act & Assert
		for i, expected := range []bool{false, false, false, true, true, true} {
			dones[i](i, nil)
			td.Cmp(t, s.IsDrained(), expected, "after %d completions", i+1)
		}
		td.Cmp(t, rec.count(s, pipe.SignalDrain), 3)
		td.Cmp(t, rec.count(s, pipe.SignalEmpty), 1)
	})

	t.Run("success_three_stage_pause_cascade", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		a := pipe.NewSmart[int](loop, "a")
		b := pipe.NewSmart[int](loop, "b")
		c := pipe.Pipe(pipe.Pipe(a, b), pipe.NewSmart[int](loop, "c"))
		rec := watch(a, b, c)

		// Act
		c.Pause()

		// Assert
		td.CmpTrue(t, a.IsPaused())
		td.CmpTrue(t, b.IsPaused())
		td.Cmp(t, rec.count(a, pipe.SignalPause), 1)
		td.Cmp(t, rec.count(b, pipe.SignalPause), 1)

		c.Resume()

		td.CmpFalse(t, a.IsPaused())
		td.CmpFalse(t, b.IsPaused())
		td.Cmp(t, rec.count(a, pipe.SignalDrain), 1)
		td.Cmp(t, rec.count(b, pipe.SignalDrain), 1)
		td.Cmp(t, rec.count(c, pipe.SignalDrain), 1)
	})

	t.Run("success_late_completion_discarded", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		s := pipe.NewSmart[string](loop, "s")
		h := &holder[string]{}
		s.SetMiddleware(h.hold)
		out := collect[string](s)
		errs := collectErrors(s)
		s.Accept("a")

		// Act
		s.Destroy()
		h.release()

		// Assert
		td.CmpEmpty(t, *out)
		td.CmpEmpty(t, *errs)
		td.Cmp(t, s.Pending(), 1)
	})

	t.Run("error_sync", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		p := pipe.NewSmart[string](loop, "p")
		c := pipe.Pipe(p, pipe.NewSmart[string](loop, "c"))
		c.SetMiddlewareSync(func(string) (string, error) { panic("middleware") })
		errs := collectErrors(c)
		rec := watch(c)

		// Act
		ok := p.Accept("a")

		// Assert
		td.CmpTrue(t, ok)
		td.Require(t).Len(*errs, 1)
		td.CmpErrorIs(t, (*errs)[0], pipe.ErrPanic)
		td.Cmp(t, c.Pending(), 0)
		td.Cmp(t, c.DownstreamCount(), 0)
		rec.assertSeen(t, c, pipe.SignalError, pipe.SignalEmpty)
	})

	t.Run("error_async", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		p := pipe.NewSmart[string](loop, "p")
		c := pipe.Pipe(p, pipe.NewSmart[string](loop, "c"))
		c.SetMiddleware(func(string, pipe.Done[string]) { panic(errors.New("middleware")) })
		errs := collectErrors(c)

		// Act
		p.Accept("a")

		// Assert
		td.Require(t).Len(*errs, 1)
		td.CmpErrorIs(t, (*errs)[0], pipe.ErrPanic)
		td.Cmp(t, (*errs)[0].Error(), "middleware panicked: middleware")
		td.Cmp(t, c.Pending(), 0)
	})

	t.Run("error_async_panic_after_done", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		s := pipe.NewSmart[string](loop, "s")
		s.SetMiddleware(func(data string, done pipe.Done[string]) {
			done(data, nil)
			panic("after done")
		})
		errs := collectErrors(s)
		out := collect[string](s)

		// Act
		ok := s.Accept("a")

		// Assert
		td.CmpTrue(t, ok)
		td.Cmp(t, *out, []string{"a"})
		td.Require(t).Len(*errs, 1)
		td.CmpErrorIs(t, (*errs)[0], pipe.ErrPanic)
		td.Cmp(t, s.Pending(), 0)
		td.Cmp(t, s.DownstreamCount(), 1)
	})

	t.Run("success_nil_unit", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		s := pipe.NewSmart[any](loop, "s")
		out := collect[any](s)
		errs := collectErrors(s)

		// Act
		s.Accept(nil)
		s.Accept(1)

		// Assert
		td.Cmp(t, *out, []any{nil, 1})
		td.CmpEmpty(t, *errs)
		td.Cmp(t, s.UpstreamCount(), 2)
		td.Cmp(t, s.DownstreamCount(), 2)
	})

	t.Run("error_returned", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		errBoom := errors.New("boom")
		s := pipe.NewSmart[int](loop, "s").SetMiddlewareSync(func(int) (int, error) { return 0, errBoom })
		errs := collectErrors(s)
		out := collect[int](s)

		// Act
		s.Accept(1)

		// Assert
		td.Cmp(t, *errs, []error{errBoom})
		td.CmpEmpty(t, *out)
		td.Cmp(t, s.UpstreamCount(), 1)
		td.Cmp(t, s.DownstreamCount(), 0)
		td.Cmp(t, s.Pending(), 0)
	})

	t.Run("error_closed", func(t *testing.T) {
		// Arrange
		loop := pipe.NewLoop()
		s := pipe.NewSmart[int](loop, "s")
		errs := collectErrors(s)
		s.Destroy()

		// Act
		ok := s.Accept(1)

		// Assert
		td.CmpFalse(t, ok)
		td.Require(t).Len(*errs, 1)
		td.CmpErrorIs(t, (*errs)[0], pipe.ErrClosed)
		td.Cmp(t, s.UpstreamCount(), 0)
	})
}

func TestDrainThreshold(t *testing.T) {
	for limit, expected := range map[int]int{1: 1, 2: 1, 3: 1, 4: 2, 6: 2, 7: 3, 9: 3, 10: 4} {
		td.Cmp(t, pipe.DrainThreshold(limit), expected, "limit %d", limit)
	}
}
