package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskflow-dev/tugboat/pkg/utils/cmp"
)

// Strategy tells how a rollout moves traffic to a new release.
type Strategy string

const (
	// stand up the idle slot in full, validate, then switch traffic at once.
	BlueGreen Strategy = "blue-green"

	// ramp the idle slot up through percent phases, watching metrics.
	Canary Strategy = "canary"

	// update the live slot's pod template in place (single slot).
	Rolling Strategy = "rolling"
)

func (s Strategy) String() string {
	return string(s)
}

func (s Strategy) IsKnown() bool {
	switch s {
	case BlueGreen, Canary, Rolling:
		return true
	default:
		return false
	}
}

var ErrUnknownStrategy = errors.New("unknown strategy")

func AsStrategy(s string) (Strategy, error) {
	st := Strategy(s)
	if st.IsKnown() {
		return st, nil
	}
	return st, fmt.Errorf(`%w: "%s"`, ErrUnknownStrategy, s)
}

// CanaryPhase is one step of a canary ramp.
type CanaryPhase struct {
	// share of traffic-serving replicas given to the new slot, in percent.
	Percent int

	// how long metrics are observed before moving to the next phase.
	Window time.Duration
}

func DefaultCanaryPlan() []CanaryPhase {
	w := 60 * time.Second
	return []CanaryPhase{
		{Percent: 10, Window: w},
		{Percent: 25, Window: w},
		{Percent: 50, Window: w},
		{Percent: 100, Window: w},
	}
}

var ErrInvalidCanaryPlan = errors.New("invalid canary plan")

// ValidateCanaryPlan checks that percents are strictly increasing,
// within (0, 100], and that the ramp ends at 100.
func ValidateCanaryPlan(plan []CanaryPhase) error {
	if len(plan) == 0 {
		return fmt.Errorf("%w: no phases", ErrInvalidCanaryPlan)
	}
	last := 0
	for i, p := range plan {
		if p.Percent <= last {
			return fmt.Errorf(
				"%w: phase %d (%d%%) does not increase from %d%%",
				ErrInvalidCanaryPlan, i, p.Percent, last,
			)
		}
		if 100 < p.Percent {
			return fmt.Errorf("%w: phase %d exceeds 100%%", ErrInvalidCanaryPlan, i)
		}
		if p.Window < 0 {
			return fmt.Errorf("%w: phase %d has negative window", ErrInvalidCanaryPlan, i)
		}
		last = p.Percent
	}
	if last != 100 {
		return fmt.Errorf("%w: ramp does not end at 100%%", ErrInvalidCanaryPlan)
	}
	return nil
}

// CanaryReplicas is how many replicas of total a phase percent claims.
//
// It rounds up, so any non-zero percent gets at least one replica.
func CanaryReplicas(total, percent int) int {
	if total <= 0 || percent <= 0 {
		return 0
	}
	return (total*percent + 99) / 100
}

// Release is the immutable desired state of one deployable version of an App.
type Release struct {
	Id      string
	AppName string
	Env     Env

	// container image reference, e.g. "registry.example.com/taskflow:1.4.2".
	Image string

	// runtime configuration, rendered into the slot's ConfigMap.
	Config map[string]string

	Strategy Strategy

	// used only when Strategy == Canary. Empty means DefaultCanaryPlan.
	CanaryPlan []CanaryPhase

	// validation gates to run before traffic moves.
	Gates []GateKind

	// overall rollout deadline. Zero means the server default applies.
	Timeout time.Duration

	CreatedAt time.Time
}

func (r Release) Equal(o Release) bool {
	return r.Id == o.Id &&
		r.AppName == o.AppName &&
		r.Env == o.Env &&
		r.Image == o.Image &&
		cmp.MapEq(r.Config, o.Config) &&
		r.Strategy == o.Strategy &&
		cmp.SliceEq(r.CanaryPlan, o.CanaryPlan) &&
		cmp.SliceContentEq(r.Gates, o.Gates) &&
		r.Timeout == o.Timeout
}

// parameter to query releases.
type ReleaseFindQuery struct {
	// match if release's app name is one of these.
	//
	// If it is nil or empty, it means "match any".
	AppName []string

	// match if release's created time is equal or later than this.
	Since *time.Time
}

func (rfq ReleaseFindQuery) Equal(other ReleaseFindQuery) bool {
	return cmp.SliceContentEq(rfq.AppName, other.AppName) &&
		((rfq.Since == nil && other.Since == nil) ||
			(rfq.Since != nil && other.Since != nil && rfq.Since.Equal(*other.Since)))
}
