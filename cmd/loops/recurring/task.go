package recurring

import (
	"context"

	"github.com/taskflow-dev/tugboat/pkg/loop"
)

// Task is a loop body which reports whether it found work to do.
//
// Return:
//
// - T : same as return value T of [loop.Task]
//
// - bool : true when this task did something in this cycle, and more
// backlog can be. Otherwise false.
//
// - error : same as err of [loop.Break]
type Task[T any] func(context.Context, T) (T, bool, error)

// Applied binds a Task to a Policy, making it a [loop.Task].
func (rt Task[T]) Applied(p Policy) loop.Task[T] {
	return func(ctx context.Context, t T) (T, loop.Next) {
		new, ok, err := rt(ctx, t)
		return new, p.Next(ok, err)
	}
}
