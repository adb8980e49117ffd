// Package gc destroys cluster objects rollouts and app removals left behind.
package gc

import (
	"context"

	"github.com/taskflow-dev/tugboat/cmd/loops/recurring"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	garbagedb "github.com/taskflow-dev/tugboat/pkg/domain/garbage/db"
	garbagek8s "github.com/taskflow-dev/tugboat/pkg/domain/garbage/k8s"
)

// initial value for task
func Seed() any {
	return nil
}

// return:
//
// - task: pop one garbage record and destroy the object it points at.
func Task(ik8s garbagek8s.Interface, iDb garbagedb.GarbageInterface) recurring.Task[any] {
	return func(ctx context.Context, value any) (any, bool, error) {
		popped, err := iDb.Pop(ctx, func(g domain.Garbage) error {
			return ik8s.DestroyGarbage(ctx, g)
		})
		return value, popped, err
	}
}
