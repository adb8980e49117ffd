package rollouts

import (
	"github.com/taskflow-dev/tugboat/pkg/api/types/releases"
	"github.com/taskflow-dev/tugboat/pkg/utils/cmp"
	"github.com/taskflow-dev/tugboat/pkg/utils/rfctime"
)

// Spec is what a user declares to start a rollout.
type Spec struct {
	ReleaseId string `json:"releaseId" yaml:"releaseId"`
}

func (s Spec) Equal(o Spec) bool {
	return s == o
}

type Summary struct {
	RolloutId string `json:"rolloutId"`
	ReleaseId string `json:"releaseId"`
	App       string `json:"app"`
	Env       string `json:"env"`
	Status    string `json:"status"`

	// slot this rollout stands up, "blue" or "green".
	TargetColor string `json:"targetColor"`

	// index into the release's canary plan; -1 before the ramp starts.
	Phase int `json:"phase"`

	// why the rollout is aborting/failed, empty otherwise.
	Cause string `json:"cause,omitempty"`

	UpdatedAt rfctime.RFC3339 `json:"updatedAt"`
}

func (s Summary) Equal(o Summary) bool {
	return s.RolloutId == o.RolloutId &&
		s.ReleaseId == o.ReleaseId &&
		s.App == o.App &&
		s.Env == o.Env &&
		s.Status == o.Status &&
		s.TargetColor == o.TargetColor &&
		s.Phase == o.Phase &&
		s.Cause == o.Cause &&
		s.UpdatedAt.Equal(o.UpdatedAt)
}

// StatusChange is one entry of a rollout's status history.
type StatusChange struct {
	Status string          `json:"status"`
	At     rfctime.RFC3339 `json:"at"`
	Note   string          `json:"note,omitempty"`
}

func (s StatusChange) Equal(o StatusChange) bool {
	return s.Status == o.Status &&
		s.At.Equal(o.At) &&
		s.Note == o.Note
}

// GateReport is the recorded result of one validation gate run.
type GateReport struct {
	Kind    string `json:"kind"`
	Outcome string `json:"outcome"`

	// human-readable result, e.g. "avg response time 42ms".
	Summary string `json:"summary,omitempty"`

	// raw numeric observations, meaning depends on Kind.
	Samples []float64 `json:"samples,omitempty"`

	// threshold which applied to Samples, 0 when not applicable.
	Threshold float64 `json:"threshold,omitempty"`

	ObservedAt rfctime.RFC3339 `json:"observedAt"`
}

func (g GateReport) Equal(o GateReport) bool {
	return g.Kind == o.Kind &&
		g.Outcome == o.Outcome &&
		g.Summary == o.Summary &&
		cmp.SliceEq(g.Samples, o.Samples) &&
		g.Threshold == o.Threshold &&
		g.ObservedAt.Equal(o.ObservedAt)
}

type Detail struct {
	Summary
	Release releases.Detail `json:"release"`

	// status changes, oldest first.
	History []StatusChange `json:"history"`

	// gate reports, oldest first.
	Reports []GateReport `json:"reports,omitempty"`
}

func (d Detail) Equal(o Detail) bool {
	return d.Summary.Equal(o.Summary) &&
		d.Release.Equal(o.Release) &&
		cmp.SliceEqWith(
			d.History, o.History,
			func(a, b StatusChange) bool { return a.Equal(b) },
		) &&
		cmp.SliceEqWith(
			d.Reports, o.Reports,
			func(a, b GateReport) bool { return a.Equal(b) },
		)
}
