// Package validation runs gate sets against a slot before traffic moves to it.
package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/taskflow-dev/tugboat/pkg/domain"
)

// Target is the slot a gate set examines.
type Target struct {
	App     domain.App
	Release domain.Release
	Color   domain.Color

	// replicas the slot is expected to serve with.
	Replicas int32

	// true when the slot's pods are expected behind the app Service
	// already: canary ramps and rolling updates. Blue-green validates
	// before the switch, while the Service still fronts the other color.
	InRotation bool
}

// Gate examines one aspect of a target slot.
//
// Check does not return an error: whatever goes wrong during the check
// is the gate's own verdict (failed, or skipped when it could not apply),
// told by the report. Only the engine can err.
type Gate interface {
	Kind() domain.GateKind
	Check(ctx context.Context, t Target) domain.GateReport
}

// Recorder persists gate reports as they are produced.
//
// rollout/db.RolloutInterface is one.
type Recorder interface {
	AddGateReport(ctx context.Context, rolloutId string, report domain.GateReport) error
}

type Engine interface {
	// Run executes the asked gates, in the given order, against the target,
	// recording each report for the rollout.
	//
	// It stops at nothing: every gate runs even after a failure, so the
	// reports tell the whole story. The verdict is the AND over non-skipped
	// gates; a skipped gate does not block.
	//
	// The error is not a gate failing but the engine itself breaking
	// (unknown gate kind, reports not recordable). Callers should abort
	// the rollout with it as cause.
	Run(ctx context.Context, rolloutId string, kinds []domain.GateKind, t Target) (bool, error)
}

type engine struct {
	recorder Recorder
	gates    map[domain.GateKind]Gate
}

func New(recorder Recorder, gates ...Gate) Engine {
	reg := map[domain.GateKind]Gate{}
	for _, g := range gates {
		reg[g.Kind()] = g
	}
	return &engine{recorder: recorder, gates: reg}
}

func (e *engine) Run(
	ctx context.Context, rolloutId string, kinds []domain.GateKind, t Target,
) (bool, error) {
	verdict := true
	for _, kind := range kinds {
		g, ok := e.gates[kind]
		if !ok {
			return false, fmt.Errorf("no such gate: %s", kind)
		}

		report := g.Check(ctx, t)
		report.Kind = kind
		if report.ObservedAt.IsZero() {
			report.ObservedAt = time.Now()
		}

		if err := e.recorder.AddGateReport(ctx, rolloutId, report); err != nil {
			return false, fmt.Errorf("recording %s report: %w", kind, err)
		}
		verdict = verdict && report.Ok()
	}
	return verdict, nil
}

// report helpers shared by the gates.

func passed(summary string) domain.GateReport {
	return domain.GateReport{
		Outcome: domain.GatePassed, Summary: summary, ObservedAt: time.Now(),
	}
}

func failed(summary string) domain.GateReport {
	return domain.GateReport{
		Outcome: domain.GateFailed, Summary: summary, ObservedAt: time.Now(),
	}
}

func skipped(summary string) domain.GateReport {
	return domain.GateReport{
		Outcome: domain.GateSkipped, Summary: summary, ObservedAt: time.Now(),
	}
}

func failedf(format string, args ...any) domain.GateReport {
	return failed(fmt.Sprintf(format, args...))
}
