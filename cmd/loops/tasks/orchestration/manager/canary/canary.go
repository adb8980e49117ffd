// Package canary advances rollouts which ramp the idle slot up through
// percent phases, watching metrics between steps.
package canary

import (
	"context"
	"time"

	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration/manager"
	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	appdb "github.com/taskflow-dev/tugboat/pkg/domain/app/db"
	monk8s "github.com/taskflow-dev/tugboat/pkg/domain/monitoring/k8s"
	rolloutdb "github.com/taskflow-dev/tugboat/pkg/domain/rollout/db"
	rolk8s "github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s"
	"github.com/taskflow-dev/tugboat/pkg/domain/validation"
)

func New(
	iDbApp appdb.AppInterface,
	iDbRollout rolloutdb.RolloutInterface,
	ik8s rolk8s.Interface,
	iMonitor monk8s.Interface,
	engine validation.Engine,
	conf *bconf.TugClusterConfig,
) manager.Manager {
	return func(ctx context.Context, app domain.App, r domain.Rollout) (domain.RolloutStatus, error) {
		plan := manager.PlanOf(r.Release)

		switch r.Status {
		case domain.Waiting:
			return domain.Provisioning, nil

		case domain.Provisioning:
			active := r.TargetColor.Other()
			if err := ik8s.EnsureSurroundings(ctx, app, active); err != nil {
				return r.Status, manager.Abort("provisioning surroundings: %s", err)
			}
			if app.Monitoring {
				if err := iMonitor.EnsureStack(ctx, app); err != nil {
					return r.Status, manager.Abort("provisioning monitoring: %s", err)
				}
			}
			// the canary starts at the footprint of its first phase.
			replicas := domain.CanaryReplicas(app.Replicas, plan[0].Percent)
			if err := ik8s.ProvisionSlot(
				ctx, app, r.Release, r.TargetColor, int32(replicas),
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
					Replicas: int32(domain.CanaryReplicas(app.Replicas, plan[0].Percent)),
					// the ramp has not opened the Service to the canary yet.
					InRotation: false,
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
			phase := r.Phase + 1
			if len(plan) <= phase {
				// ramp complete. pin traffic to the target color.
				if err := ik8s.SwitchTraffic(ctx, app, r.TargetColor); err != nil {
					return r.Status, manager.Abort("switching traffic: %s", err)
				}
				return domain.Draining, nil
			}

			if r.Phase < 0 {
				// entering the ramp: both colors serve, replica-weighted.
				if err := ik8s.ShareTraffic(ctx, app); err != nil {
					return r.Status, manager.Abort("opening traffic to the canary: %s", err)
				}
			}

			canary := domain.CanaryReplicas(app.Replicas, plan[phase].Percent)
			if err := ik8s.ScaleSlot(ctx, app, r.TargetColor, int32(canary)); err != nil {
				return r.Status, manager.Abort("scaling canary to phase %d: %s", phase, err)
			}
			// the old color backs off but holds the fort until the ramp is over.
			rest := app.Replicas - canary
			if rest < 1 {
				rest = 1
			}
			if err := ik8s.ScaleSlot(ctx, app, r.TargetColor.Other(), int32(rest)); err != nil {
				return r.Status, manager.Abort("scaling active slot at phase %d: %s", phase, err)
			}
			if err := iDbRollout.SetPhase(ctx, r.Id, phase); err != nil {
				return r.Status, err
			}

			window := plan[phase].Window
			if window <= 0 {
				window = conf.Canary().Observation()
			}
			select {
			case <-ctx.Done():
				return r.Status, ctx.Err()
			case <-time.After(window):
			}

			ok, err := engine.Run(
				ctx, r.Id, []domain.GateKind{domain.GateMetricsDelta},
				validation.Target{
					App:        app,
					Release:    r.Release,
					Color:      r.TargetColor,
					Replicas:   int32(canary),
					InRotation: true,
				},
			)
			if err != nil {
				return r.Status, err
			}
			if !ok {
				return r.Status, manager.Abort("canary phase %d (%d%%) failed", phase, plan[phase].Percent)
			}
			// stay shifting; the next pick ramps the next phase.
			return domain.Shifting, nil

		case domain.Draining:
			select {
			case <-ctx.Done():
				return r.Status, ctx.Err()
			case <-time.After(conf.Rollout().DrainGrace()):
			}
			// the target runs at the last phase's footprint; restore full strength.
			if err := ik8s.ScaleSlot(ctx, app, r.TargetColor, int32(app.Replicas)); err != nil {
				return r.Status, manager.Abort("restoring replicas: %s", err)
			}
			if err := ik8s.DrainSlot(ctx, app, r.TargetColor.Other()); err != nil {
				return r.Status, manager.Abort("draining old slot: %s", err)
			}
			if err := iDbApp.SetActiveColor(ctx, app.Name, r.TargetColor); err != nil {
				return r.Status, err
			}
			return domain.Done, nil
		}

		return r.Status, nil
	}
}
