// Package expiry aborts rollouts which outstay their deadline.
package expiry

import (
	"context"
	"errors"
	"time"

	"github.com/taskflow-dev/tugboat/cmd/loops/recurring"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	rolloutdb "github.com/taskflow-dev/tugboat/pkg/domain/rollout/db"
)

// applies when the release declares no deadline of its own.
const DefaultTimeout = 30 * time.Minute

// recorded as the rollout's cause; keep it saying what happened.
var errDeadline = errors.New("deadline exceeded")

// initial cursor for Task
func Seed() domain.RolloutCursor {
	return domain.RolloutCursor{
		Status:   domain.StatusesOrchestrated(),
		Debounce: 30 * time.Second,
	}
}

// Task measures one in-flight rollout against its deadline per invocation.
//
// The clock starts at the rollout's first status entry. A rollout over
// its deadline is turned aborting, with the deadline as its cause;
// the finalizing loop takes it from there.
func Task(iDbRollout rolloutdb.RolloutInterface) recurring.Task[domain.RolloutCursor] {
	return func(ctx context.Context, value domain.RolloutCursor) (domain.RolloutCursor, bool, error) {
		nextCursor, err := iDbRollout.PickAndAdvance(
			ctx, value,
			func(r domain.Rollout) (domain.RolloutStatus, error) {
				anchor := r.UpdatedAt
				if len(r.History) > 0 {
					anchor = r.History[0].At
				}

				timeout := r.Release.Timeout
				if timeout <= 0 {
					timeout = DefaultTimeout
				}

				if time.Since(anchor) > timeout {
					return r.Status, errDeadline
				}
				return r.Status, nil
			},
		)

		cursorMoved := !value.Equal(nextCursor)

		// Context cancelled/deadline exceeded are okay. It will be retried.
		// errDeadline is the point of this loop, recorded already.
		if err == nil ||
			errors.Is(err, errDeadline) ||
			errors.Is(err, context.Canceled) ||
			errors.Is(err, context.DeadlineExceeded) {
			return nextCursor, cursorMoved, nil
		}
		return nextCursor, cursorMoved, err
	}
}
