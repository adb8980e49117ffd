package db

import (
	"context"

	"github.com/taskflow-dev/tugboat/pkg/domain"
)

type RolloutInterface interface {
	// New accepts a rollout for a release.
	//
	// The new rollout is in status waiting.
	// Its target color is the idle slot of the app,
	// or the active slot when the release strategy is rolling.
	//
	// Return
	//
	// - string: id of the new rollout.
	//
	// - error: Missing when no release has the id.
	// Conflict when the app already has a rollout not finished yet.
	New(ctx context.Context, releaseId string) (string, error)

	// Get returns rollouts by id, release, history and gate reports included.
	//
	// Ids hitting no rollout are simply absent from the result.
	Get(ctx context.Context, rolloutIds []string) (map[string]domain.Rollout, error)

	// Find returns ids of rollouts matching query, oldest update first.
	Find(ctx context.Context, query domain.RolloutFindQuery) ([]string, error)

	// PickAndAdvance picks a rollout which is in cursor's status,
	// next to cursor's head, and advances it with task.
	//
	// The picked rollout is locked until task returns,
	// so that other loops do not touch it meanwhile.
	//
	// When task succeeds, the status it returns is recorded
	// (returning the current status just suspends the rollout
	// for cursor's debounce, without a history entry).
	//
	// When task fails, the rollout is turned aborting and the error
	// message is recorded as its cause, except for context cancel
	// or deadline, which leave the rollout as it was.
	//
	// Return
	//
	// - domain.RolloutCursor: cursor pointing the picked rollout.
	// When no rollout can be picked, the cursor is returned as passed.
	//
	// - error: the error of task, if any.
	PickAndAdvance(
		ctx context.Context,
		cursor domain.RolloutCursor,
		task func(domain.Rollout) (domain.RolloutStatus, error),
	) (domain.RolloutCursor, error)

	// SetStatus changes the status of a rollout.
	//
	// The note is recorded in the status history, and,
	// when the new status is aborting or failed, as the rollout's cause.
	//
	// Return
	//
	// - error: Missing when no rollout has the id.
	// ErrInvalidStatusTransition when the move is not legal.
	SetStatus(ctx context.Context, rolloutId string, newStatus domain.RolloutStatus, note string) error

	// SetPhase records how far a canary ramp has come.
	//
	// Return
	//
	// - error: Missing when no rollout has the id.
	SetPhase(ctx context.Context, rolloutId string, phase int) error

	// AddGateReport appends the result of a gate run to a rollout.
	//
	// Return
	//
	// - error: Missing when no rollout has the id.
	AddGateReport(ctx context.Context, rolloutId string, report domain.GateReport) error
}
