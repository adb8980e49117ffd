// Package rolling advances rollouts which update the live slot in place,
// letting the Deployment's own surge/unavailability budget pace the swap.
package rolling

import (
	"context"

	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration/manager"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	monk8s "github.com/taskflow-dev/tugboat/pkg/domain/monitoring/k8s"
	rolk8s "github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s"
	"github.com/taskflow-dev/tugboat/pkg/domain/validation"
)

func New(
	ik8s rolk8s.Interface,
	iMonitor monk8s.Interface,
	engine validation.Engine,
) manager.Manager {
	return func(ctx context.Context, app domain.App, r domain.Rollout) (domain.RolloutStatus, error) {
		switch r.Status {
		case domain.Waiting:
			return domain.Provisioning, nil

		case domain.Provisioning:
			// the target IS the active color: rolling never moves the Service.
			if err := ik8s.EnsureSurroundings(ctx, app, r.TargetColor); err != nil {
				return r.Status, manager.Abort("provisioning surroundings: %s", err)
			}
			if app.Monitoring {
				if err := iMonitor.EnsureStack(ctx, app); err != nil {
					return r.Status, manager.Abort("provisioning monitoring: %s", err)
				}
			}
			if err := ik8s.ProvisionSlot(
				ctx, app, r.Release, r.TargetColor, int32(app.Replicas),
			); err != nil {
				return r.Status, manager.Abort("provisioning slot: %s", err)
			}
			return domain.Validating, nil

		case domain.Validating:
			ok, err := engine.Run(
				ctx, r.Id, manager.GatesOf(r.Release),
				validation.Target{
					App:      app,
					Release:  r.Release,
					Color:    r.TargetColor,
					Replicas: int32(app.Replicas),
					// the new revision took over behind the live Service.
					InRotation: true,
				},
			)
			if err != nil {
				return r.Status, err
			}
			if !ok {
				return r.Status, manager.Abort("validation failed")
			}
			return domain.Shifting, nil

		case domain.Shifting:
			// traffic never moved; the shift happened pod by pod.
			return domain.Draining, nil

		case domain.Draining:
			// nothing to drain and the active color is unchanged.
			return domain.Done, nil
		}

		return r.Status, nil
	}
}
