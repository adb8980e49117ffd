// Package orchestration drives rollouts through their status machine,
// one step per pick, strategy by strategy.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/taskflow-dev/tugboat/cmd/loops/hook"
	"github.com/taskflow-dev/tugboat/cmd/loops/recurring"
	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration/manager"
	apirollouts "github.com/taskflow-dev/tugboat/pkg/api/types/rollouts"
	bindrollouts "github.com/taskflow-dev/tugboat/pkg/api-types-binding/rollouts"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	appdb "github.com/taskflow-dev/tugboat/pkg/domain/app/db"
	rolloutdb "github.com/taskflow-dev/tugboat/pkg/domain/rollout/db"
)

// initial cursor for Task
func Seed() domain.RolloutCursor {
	return domain.RolloutCursor{
		Status:   domain.StatusesOrchestrated(),
		Debounce: 3 * time.Second,
	}
}

// Task advances one in-flight rollout per invocation.
//
// The rollout's manager, chosen by release strategy, does the work of the
// current status and names the next one. Failures the manager marks as
// aborts turn the rollout aborting and the loop goes on; anything else
// stops the loop.
//
// Lifecycle hooks frame each status change: a declined before-hook
// suspends the rollout until a later pick, and after-hooks are told
// whenever a pick landed the rollout in a new status.
func Task(
	logger *log.Logger,
	iDbRollout rolloutdb.RolloutInterface,
	iDbApp appdb.AppInterface,
	managers map[domain.Strategy]manager.Manager,
	lifecycle hook.Hook[apirollouts.Detail],
) recurring.Task[domain.RolloutCursor] {
	return func(ctx context.Context, value domain.RolloutCursor) (domain.RolloutCursor, bool, error) {
		var picked *domain.Rollout
		landed := domain.RolloutStatus("")

		nextCursor, err := iDbRollout.PickAndAdvance(
			ctx, value,
			func(r domain.Rollout) (domain.RolloutStatus, error) {
				picked = &r
				landed = r.Status

				if err := lifecycle.Before(bindrollouts.ComposeDetail(r)); err != nil {
					logger.Printf(
						"rollout %s held at %s: before-hook declined: %s",
						r.Id, r.Status, err,
					)
					return r.Status, nil
				}

				apps, err := iDbApp.Get(ctx, []string{r.AppName})
				if err != nil {
					return r.Status, err
				}
				app, ok := apps[r.AppName]
				if !ok {
					return r.Status, manager.Abort("app %s is gone", r.AppName)
				}

				m, ok := managers[r.Release.Strategy]
				if !ok {
					return r.Status, fmt.Errorf("no manager for strategy %s", r.Release.Strategy)
				}

				next, err := m(ctx, app, r)
				landed = next
				return next, err
			},
		)

		// any task error except context cancel/deadline has turned
		// the rollout aborting in the database.
		if err != nil &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded) {
			landed = domain.Aborting
		}

		if picked != nil && landed != picked.Status {
			if rollouts, _ := iDbRollout.Get(ctx, []string{picked.Id}); rollouts != nil {
				if r, ok := rollouts[picked.Id]; ok {
					if herr := lifecycle.After(bindrollouts.ComposeDetail(r)); herr != nil {
						logger.Printf("after-hook for rollout %s: %s", r.Id, herr)
					}
				}
			}
		}

		cursorMoved := !value.Equal(nextCursor)

		// Context cancelled/deadline exceeded are okay. It will be retried.
		// An abort is the rollout's own end, recorded already; the loop goes on.
		if err == nil ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, manager.ErrAbort) {
			return nextCursor, cursorMoved, nil
		}
		return nextCursor, cursorMoved, err
	}
}
