package rollouts

import (
	"github.com/taskflow-dev/tugboat/pkg/api/types/rollouts"
	bindrelease "github.com/taskflow-dev/tugboat/pkg/api-types-binding/releases"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/utils/rfctime"
	"github.com/taskflow-dev/tugboat/pkg/utils/slices"
)

func ComposeSummary(r domain.RolloutBody) rollouts.Summary {
	return rollouts.Summary{
		RolloutId:   r.Id,
		ReleaseId:   r.ReleaseId,
		App:         r.AppName,
		Env:         string(r.Env),
		Status:      string(r.Status),
		TargetColor: string(r.TargetColor),
		Phase:       r.Phase,
		Cause:       r.Cause,
		UpdatedAt:   rfctime.RFC3339(r.UpdatedAt),
	}
}

func ComposeGateReport(g domain.GateReport) rollouts.GateReport {
	return rollouts.GateReport{
		Kind:       string(g.Kind),
		Outcome:    string(g.Outcome),
		Summary:    g.Summary,
		Samples:    g.Samples,
		Threshold:  g.Threshold,
		ObservedAt: rfctime.RFC3339(g.ObservedAt),
	}
}

func ComposeDetail(r domain.Rollout) rollouts.Detail {
	return rollouts.Detail{
		Summary: ComposeSummary(r.RolloutBody),
		Release: bindrelease.ComposeDetail(r.Release),
		History: slices.Map(
			r.History, func(s domain.StatusChange) rollouts.StatusChange {
				return rollouts.StatusChange{
					Status: string(s.Status),
					At:     rfctime.RFC3339(s.At),
					Note:   s.Note,
				}
			},
		),
		Reports: slices.Map(r.Reports, ComposeGateReport),
	}
}
