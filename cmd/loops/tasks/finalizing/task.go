// Package finalizing settles aborting rollouts: it restores the previous
// revision and records whether the restoration held.
package finalizing

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/taskflow-dev/tugboat/cmd/loops/hook"
	"github.com/taskflow-dev/tugboat/cmd/loops/recurring"
	apirollouts "github.com/taskflow-dev/tugboat/pkg/api/types/rollouts"
	bindrollouts "github.com/taskflow-dev/tugboat/pkg/api-types-binding/rollouts"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	appdb "github.com/taskflow-dev/tugboat/pkg/domain/app/db"
	garbagedb "github.com/taskflow-dev/tugboat/pkg/domain/garbage/db"
	rolloutdb "github.com/taskflow-dev/tugboat/pkg/domain/rollout/db"
	rolk8s "github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s"
	"github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s/slot"
)

// initial cursor for Task
func Seed() domain.RolloutCursor {
	return domain.RolloutCursor{
		Status:   []domain.RolloutStatus{domain.Aborting},
		Debounce: 3 * time.Second,
	}
}

// Task rolls one aborting rollout back per invocation.
//
// Rolling back never errors the loop: when the cluster refuses the
// restoration, the rollout is recorded failed, the refusal is logged,
// and an operator takes it from there.
func Task(
	logger *log.Logger,
	iDbRollout rolloutdb.RolloutInterface,
	iDbApp appdb.AppInterface,
	iDbGarbage garbagedb.GarbageInterface,
	ik8s rolk8s.Interface,
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

				next := rollBack(ctx, logger, iDbApp, iDbGarbage, ik8s, r)
				landed = next
				return next, nil
			},
		)

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
		if err != nil &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded) {
			return nextCursor, cursorMoved, err
		}
		return nextCursor, cursorMoved, nil
	}
}

// rollBack undoes what the rollout stood up and names the terminal status.
func rollBack(
	ctx context.Context,
	logger *log.Logger,
	iDbApp appdb.AppInterface,
	iDbGarbage garbagedb.GarbageInterface,
	ik8s rolk8s.Interface,
	r domain.Rollout,
) domain.RolloutStatus {
	apps, err := iDbApp.Get(ctx, []string{r.AppName})
	if err != nil {
		logger.Printf("rollout %s: fetching app %s: %s", r.Id, r.AppName, err)
		return domain.Failed
	}
	app, ok := apps[r.AppName]
	if !ok {
		// the app was deleted out from under the rollout;
		// its cluster objects went with it.
		return domain.RolledBack
	}

	if r.Release.Strategy == domain.Rolling {
		// rolling touched the live Deployment only. Undo the revision.
		if err := ik8s.RollBackRevision(ctx, app, r.TargetColor); err != nil {
			logger.Printf("rollout %s: rolling back revision: %s", r.Id, err)
			return domain.Failed
		}
		return domain.RolledBack
	}

	// during a canary ramp the Service may be shared between colors and
	// the previous slot scaled down. Restore it in full before pinning
	// traffic back, then retire the failed slot.
	prev := r.TargetColor.Other()
	if err := ik8s.ScaleSlot(ctx, app, prev, int32(app.Replicas)); err != nil {
		logger.Printf("rollout %s: restoring %s slot: %s", r.Id, prev, err)
		return domain.Failed
	}
	if err := ik8s.SwitchTraffic(ctx, app, prev); err != nil {
		logger.Printf("rollout %s: pinning traffic back to %s: %s", r.Id, prev, err)
		return domain.Failed
	}
	if err := iDbApp.SetActiveColor(ctx, app.Name, prev); err != nil {
		logger.Printf("rollout %s: recording active color: %s", r.Id, err)
		return domain.Failed
	}
	if err := ik8s.DrainSlot(ctx, app, r.TargetColor); err != nil {
		// traffic is safe already. leave the rest to the collector.
		logger.Printf("rollout %s: draining %s slot: %s", r.Id, r.TargetColor, err)
		if err := iDbGarbage.Add(ctx, slot.GarbageOfSlot(app, r.TargetColor)...); err != nil {
			logger.Printf("rollout %s: recording residue: %s", r.Id, err)
			return domain.Failed
		}
	}
	return domain.RolledBack
}
