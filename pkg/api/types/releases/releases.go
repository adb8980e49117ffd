package releases

import (
	"github.com/taskflow-dev/tugboat/pkg/api/types/misc/duration"
	"github.com/taskflow-dev/tugboat/pkg/utils/cmp"
	"github.com/taskflow-dev/tugboat/pkg/utils/rfctime"
)

// CanaryPhase is one step of a canary ramp.
type CanaryPhase struct {
	Percent int               `json:"percent" yaml:"percent"`
	Window  duration.Duration `json:"window" yaml:"window"`
}

func (p CanaryPhase) Equal(o CanaryPhase) bool {
	return p == o
}

// Spec is what a user declares to cut a release.
type Spec struct {
	App string `json:"app" yaml:"app"`
	Env string `json:"env,omitempty" yaml:"env,omitempty"`

	// container image reference, e.g. "registry.example.com/taskflow:1.4.2".
	Image string `json:"image" yaml:"image"`

	// runtime configuration, rendered into the slot's ConfigMap.
	Config map[string]string `json:"config,omitempty" yaml:"config,omitempty"`

	Strategy string `json:"strategy" yaml:"strategy"`

	// used only when Strategy == "canary". Empty means the server default ramp.
	CanaryPlan []CanaryPhase `json:"canaryPlan,omitempty" yaml:"canaryPlan,omitempty"`

	// validation gate names. Empty means the server default set.
	Gates []string `json:"gates,omitempty" yaml:"gates,omitempty"`

	// overall rollout deadline. Zero means the server default applies.
	Timeout duration.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func (s Spec) Equal(o Spec) bool {
	return s.App == o.App &&
		s.Env == o.Env &&
		s.Image == o.Image &&
		cmp.MapEq(s.Config, o.Config) &&
		s.Strategy == o.Strategy &&
		cmp.SliceEq(s.CanaryPlan, o.CanaryPlan) &&
		cmp.SliceContentEq(s.Gates, o.Gates) &&
		s.Timeout == o.Timeout
}

type Summary struct {
	ReleaseId string          `json:"releaseId"`
	App       string          `json:"app"`
	Env       string          `json:"env"`
	Image     string          `json:"image"`
	Strategy  string          `json:"strategy"`
	CreatedAt rfctime.RFC3339 `json:"createdAt"`
}

func (s Summary) Equal(o Summary) bool {
	return s.ReleaseId == o.ReleaseId &&
		s.App == o.App &&
		s.Env == o.Env &&
		s.Image == o.Image &&
		s.Strategy == o.Strategy &&
		s.CreatedAt.Equal(o.CreatedAt)
}

type Detail struct {
	Summary
	Config     map[string]string `json:"config,omitempty"`
	CanaryPlan []CanaryPhase     `json:"canaryPlan,omitempty"`
	Gates      []string          `json:"gates,omitempty"`
	Timeout    duration.Duration `json:"timeout,omitempty"`
}

func (d Detail) Equal(o Detail) bool {
	return d.Summary.Equal(o.Summary) &&
		cmp.MapEq(d.Config, o.Config) &&
		cmp.SliceEq(d.CanaryPlan, o.CanaryPlan) &&
		cmp.SliceContentEq(d.Gates, o.Gates) &&
		d.Timeout == o.Timeout
}
