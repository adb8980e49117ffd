package releases

import (
	"github.com/taskflow-dev/tugboat/pkg/api/types/misc/duration"
	"github.com/taskflow-dev/tugboat/pkg/api/types/releases"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/utils/rfctime"
	"github.com/taskflow-dev/tugboat/pkg/utils/slices"
)

func ComposeSummary(r domain.Release) releases.Summary {
	return releases.Summary{
		ReleaseId: r.Id,
		App:       r.AppName,
		Env:       string(r.Env),
		Image:     r.Image,
		Strategy:  string(r.Strategy),
		CreatedAt: rfctime.RFC3339(r.CreatedAt),
	}
}

func ComposeDetail(r domain.Release) releases.Detail {
	return releases.Detail{
		Summary: ComposeSummary(r),
		Config:  r.Config,
		CanaryPlan: slices.Map(
			r.CanaryPlan, func(p domain.CanaryPhase) releases.CanaryPhase {
				return releases.CanaryPhase{
					Percent: p.Percent,
					Window:  duration.New(p.Window),
				}
			},
		),
		Gates: slices.Map(
			r.Gates, func(g domain.GateKind) string { return string(g) },
		),
		Timeout: duration.New(r.Timeout),
	}
}
