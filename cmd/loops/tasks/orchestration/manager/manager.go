package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskflow-dev/tugboat/pkg/domain"
)

// Manager advances a rollout by exactly one status step.
//
// It performs the work of the status the rollout is in, and returns the
// status the rollout should move to when that work is complete.
// Returning the current status suspends the rollout until the next pick.
//
// An error wrapping ErrAbort turns the rollout aborting with the error
// message as its cause; any other error does the same AND stops the loop.
type Manager func(
	ctx context.Context,
	app domain.App,
	r domain.Rollout,
) (
	domain.RolloutStatus,
	error,
)

// ErrAbort marks a failure that is the rollout's, not the loop's.
var ErrAbort = errors.New("rollout aborted")

func Abort(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAbort, fmt.Sprintf(format, args...))
}

// GatesOf returns the gate kinds a release asks to run before traffic moves.
func GatesOf(r domain.Release) []domain.GateKind {
	return r.Gates
}

// PlanOf returns the canary plan of a release, defaulted when not declared.
func PlanOf(r domain.Release) []domain.CanaryPhase {
	if len(r.CanaryPlan) == 0 {
		return domain.DefaultCanaryPlan()
	}
	return r.CanaryPlan
}
