package loop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskflow-dev/tugboat/pkg/loop"
)

func TestStart(t *testing.T) {
	t.Run("it loops until Break", func(t *testing.T) {
		ctx := context.Background()
		value, err := loop.Start(ctx, 1, func(_ context.Context, v int) (int, loop.Next) {
			v += 1
			if 10 <= v {
				return v, loop.Break(nil)
			}
			return v, loop.Continue(0)
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != 10 {
			t.Errorf("unexpected value: %d (expected: 10)", value)
		}
	})

	t.Run("it returns error passed to Break", func(t *testing.T) {
		ctx := context.Background()
		expectedErr := errors.New("fake error")
		value, err := loop.Start(ctx, 0, func(_ context.Context, v int) (int, loop.Next) {
			return v + 1, loop.Break(expectedErr)
		})
		if !errors.Is(err, expectedErr) {
			t.Errorf("unexpected error: %v", err)
		}
		if value != 1 {
			t.Errorf("unexpected value: %d (expected: 1)", value)
		}
	})

	t.Run("it stops when context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		count := 0
		_, err := loop.Start(ctx, 0, func(_ context.Context, v int) (int, loop.Next) {
			count += 1
			if 3 <= count {
				cancel()
			}
			return v, loop.Continue(10 * time.Millisecond)
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("it does not start task when context is already canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		called := false
		_, err := loop.Start(ctx, 0, func(_ context.Context, v int) (int, loop.Next) {
			called = true
			return v, loop.Break(nil)
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
		if called {
			t.Error("task is called, unexpectedly")
		}
	})

	t.Run("WithTimeout sets deadline on task context", func(t *testing.T) {
		ctx := context.Background()
		_, err := loop.Start(
			ctx, 0,
			func(c context.Context, v int) (int, loop.Next) {
				if _, ok := c.Deadline(); !ok {
					return v, loop.Break(errors.New("deadline is not set"))
				}
				return v, loop.Break(nil)
			},
			loop.WithTimeout(time.Second),
		)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
