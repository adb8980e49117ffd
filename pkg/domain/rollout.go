package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskflow-dev/tugboat/pkg/utils/cmp"
)

// RolloutStatus is the position of a rollout in its lifecycle.
type RolloutStatus string

const (
	// accepted, not yet picked by the orchestration loop.
	Waiting RolloutStatus = "waiting"

	// the idle slot is being stood up and awaited to readiness.
	Provisioning RolloutStatus = "provisioning"

	// validation gates are running against the idle slot.
	Validating RolloutStatus = "validating"

	// traffic is moving to the new slot.
	Shifting RolloutStatus = "shifting"

	// the old slot is being scaled down after the switch.
	Draining RolloutStatus = "draining"

	// the rollout finished and the release is live.
	Done RolloutStatus = "done"

	// a failure or an operator abort was recorded; rollback is pending.
	Aborting RolloutStatus = "aborting"

	// traffic was restored to the previous slot and the new slot torn down.
	RolledBack RolloutStatus = "rolledback"

	// rollback itself could not be completed. Operator attention required.
	Failed RolloutStatus = "failed"

	// discarded while still waiting. Nothing was done to the cluster.
	Invalidated RolloutStatus = "invalidated"
)

func (rs RolloutStatus) String() string {
	return string(rs)
}

func AsRolloutStatus(status string) (RolloutStatus, error) {
	switch status {
	case string(Waiting):
		return Waiting, nil
	case string(Provisioning):
		return Provisioning, nil
	case string(Validating):
		return Validating, nil
	case string(Shifting):
		return Shifting, nil
	case string(Draining):
		return Draining, nil
	case string(Done):
		return Done, nil
	case string(Aborting):
		return Aborting, nil
	case string(RolledBack):
		return RolledBack, nil
	case string(Failed):
		return Failed, nil
	case string(Invalidated):
		return Invalidated, nil
	default:
		return "", fmt.Errorf("'%s' is not RolloutStatus", status)
	}
}

// statuses owned by the loops. Rollouts in these statuses may touch the cluster.
func StatusesInProgress() []RolloutStatus {
	return []RolloutStatus{Provisioning, Validating, Shifting, Draining, Aborting}
}

// statuses advanced by the orchestration loop.
func StatusesOrchestrated() []RolloutStatus {
	return []RolloutStatus{Waiting, Provisioning, Validating, Shifting, Draining}
}

func (rs RolloutStatus) IsTerminal() bool {
	switch rs {
	case Done, RolledBack, Failed, Invalidated:
		return true
	default:
		return false
	}
}

func (rs RolloutStatus) InProgress() bool {
	switch rs {
	case Provisioning, Validating, Shifting, Draining, Aborting:
		return true
	default:
		return false
	}
}

var legalTransitions = map[RolloutStatus][]RolloutStatus{
	Waiting:      {Provisioning, Aborting, Invalidated},
	Provisioning: {Validating, Aborting},
	Validating:   {Shifting, Aborting},
	Shifting:     {Draining, Aborting},
	Draining:     {Done, Aborting},
	Aborting:     {RolledBack, Failed},
}

var ErrInvalidStatusTransition = errors.New("cannot change rollout status")

func NewErrInvalidStatusTransition(from, to RolloutStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
}

// ValidateStatusTransition returns nil when from -> to is a legal move.
func ValidateStatusTransition(from, to RolloutStatus) error {
	for _, legal := range legalTransitions[from] {
		if legal == to {
			return nil
		}
	}
	return NewErrInvalidStatusTransition(from, to)
}

// StatusChange is one entry of a rollout's status history.
type StatusChange struct {
	Status RolloutStatus
	At     time.Time

	// free-form context of the change: gate verdict, abort reason, ...
	Note string
}

// Core part of rollout.
type RolloutBody struct {
	Id        string
	ReleaseId string
	AppName   string
	Env       Env

	Status RolloutStatus

	// slot being stood up by this rollout.
	TargetColor Color

	// index into the release's canary plan; -1 before the ramp starts.
	Phase int

	// why the rollout is aborting/failed, empty otherwise.
	Cause string

	// last update timestamp.
	UpdatedAt time.Time
}

func (rb RolloutBody) Equal(o RolloutBody) bool {
	return rb.Id == o.Id &&
		rb.ReleaseId == o.ReleaseId &&
		rb.AppName == o.AppName &&
		rb.Env == o.Env &&
		rb.Status == o.Status &&
		rb.TargetColor == o.TargetColor &&
		rb.Phase == o.Phase &&
		rb.Cause == o.Cause
}

// Rollout is RolloutBody joined with its release, history and gate reports.
type Rollout struct {
	RolloutBody

	Release Release

	// status changes, oldest first.
	History []StatusChange

	// gate reports, oldest first.
	Reports []GateReport
}

func (r Rollout) Equal(o Rollout) bool {
	return r.RolloutBody.Equal(o.RolloutBody) &&
		r.Release.Equal(o.Release) &&
		cmp.SliceEqWith(
			r.History, o.History,
			func(a, b StatusChange) bool { return a.Status == b.Status && a.Note == b.Note },
		) &&
		cmp.SliceEqWith(
			r.Reports, o.Reports,
			func(a, b GateReport) bool { return a.Equal(b) },
		)
}

type RolloutCursor struct {
	// Id of rollout which is picked at last time
	Head string

	// interval to pick same rollout without changing status.
	Debounce time.Duration

	// status of rollout which is picked
	Status []RolloutStatus
}

func (c RolloutCursor) Equal(other RolloutCursor) bool {
	return c.Head == other.Head &&
		cmp.SliceContentEq(c.Status, other.Status)
}

// parameter to query rollouts
//
// When all dimension matches a rollout, this query matches the rollout.
type RolloutFindQuery struct {
	// match if rollout's app name is one of these.
	//
	// If it is nil or empty, it means "match any".
	AppName []string

	// match if rollout's release id is one of these.
	//
	// If it is nil or empty, it means "match any".
	ReleaseId []string

	// match if rollout's status is one of these statuses.
	//
	// If it is nil or empty, it means "match any".
	Status []RolloutStatus

	// match if rollout's updated time is equal or later than this UpdatedSince.
	UpdatedSince *time.Time

	// match if rollout's updated time is earlier than this UpdatedUntil.
	UpdatedUntil *time.Time
}

func (rfq RolloutFindQuery) Equal(other RolloutFindQuery) bool {
	return cmp.SliceContentEq(rfq.AppName, other.AppName) &&
		cmp.SliceContentEq(rfq.ReleaseId, other.ReleaseId) &&
		cmp.SliceContentEq(rfq.Status, other.Status) &&
		((rfq.UpdatedSince == nil && other.UpdatedSince == nil) ||
			(rfq.UpdatedSince != nil && other.UpdatedSince != nil && rfq.UpdatedSince.Equal(*other.UpdatedSince))) &&
		((rfq.UpdatedUntil == nil && other.UpdatedUntil == nil) ||
			(rfq.UpdatedUntil != nil && other.UpdatedUntil != nil && rfq.UpdatedUntil.Equal(*other.UpdatedUntil)))
}
