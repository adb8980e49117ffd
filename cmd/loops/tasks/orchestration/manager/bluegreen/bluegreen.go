// Package bluegreen advances rollouts which stand up the idle slot in
// full, validate it, and then move traffic at once.
package bluegreen

import (
	"context"
	"time"

	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration/manager"
	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	appdb "github.com/taskflow-dev/tugboat/pkg/domain/app/db"
	monk8s "github.com/taskflow-dev/tugboat/pkg/domain/monitoring/k8s"
	rolk8s "github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s"
	"github.com/taskflow-dev/tugboat/pkg/domain/validation"
)

func New(
	iDbApp appdb.AppInterface,
	ik8s rolk8s.Interface,
	iMonitor monk8s.Interface,
	engine validation.Engine,
	conf *bconf.TugClusterConfig,
) manager.Manager {
	return func(ctx context.Context, app domain.App, r domain.Rollout) (domain.RolloutStatus, error) {
		switch r.Status {
		case domain.Waiting:
			return domain.Provisioning, nil

		case domain.Provisioning:
			// target is the complement of the active color at admission.
			active := r.TargetColor.Other()
			if err := ik8s.EnsureSurroundings(ctx, app, active); err != nil {
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
					// the Service still fronts the other color here.
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
			if err := ik8s.SwitchTraffic(ctx, app, r.TargetColor); err != nil {
				return r.Status, manager.Abort("switching traffic: %s", err)
			}
			return domain.Draining, nil

		case domain.Draining:
			// grace keeps the old slot serving in-flight requests,
			// and is the window for instant operator rollback.
			select {
			case <-ctx.Done():
				return r.Status, ctx.Err()
			case <-time.After(conf.Rollout().DrainGrace()):
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
