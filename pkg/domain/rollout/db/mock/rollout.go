// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"

	types "github.com/taskflow-dev/tugboat/pkg/domain"
	kdbmock "github.com/taskflow-dev/tugboat/pkg/domain/internal/db/mock"
	kdb "github.com/taskflow-dev/tugboat/pkg/domain/rollout/db"
)

type SetStatusArgs struct {
	RolloutId string
	NewStatus types.RolloutStatus
	Note      string
}

type SetPhaseArgs struct {
	RolloutId string
	Phase     int
}

type AddGateReportArgs struct {
	RolloutId string
	Report    types.GateReport
}

type RolloutInterface struct {
	Impl struct {
		New            func(context.Context, string) (string, error)
		Get            func(context.Context, []string) (map[string]types.Rollout, error)
		Find           func(context.Context, types.RolloutFindQuery) ([]string, error)
		PickAndAdvance func(context.Context, types.RolloutCursor, func(types.Rollout) (types.RolloutStatus, error)) (types.RolloutCursor, error)
		SetStatus      func(context.Context, string, types.RolloutStatus, string) error
		SetPhase       func(context.Context, string, int) error
		AddGateReport  func(context.Context, string, types.GateReport) error
	}
	Calls struct {
		New            kdbmock.CallLog[string]
		Get            kdbmock.CallLog[[]string]
		Find           kdbmock.CallLog[types.RolloutFindQuery]
		PickAndAdvance kdbmock.CallLog[types.RolloutCursor]
		SetStatus      kdbmock.CallLog[SetStatusArgs]
		SetPhase       kdbmock.CallLog[SetPhaseArgs]
		AddGateReport  kdbmock.CallLog[AddGateReportArgs]
	}
}

var _ kdb.RolloutInterface = &RolloutInterface{}

func NewRolloutInterface() *RolloutInterface {
	return &RolloutInterface{}
}

func (m *RolloutInterface) New(ctx context.Context, releaseId string) (string, error) {
	m.Calls.New = append(m.Calls.New, releaseId)
	if m.Impl.New != nil {
		return m.Impl.New(ctx, releaseId)
	}

	panic(errors.New("should not be called"))
}

func (m *RolloutInterface) Get(ctx context.Context, rolloutIds []string) (map[string]types.Rollout, error) {
	m.Calls.Get = append(m.Calls.Get, rolloutIds)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, rolloutIds)
	}

	panic(errors.New("should not be called"))
}

func (m *RolloutInterface) Find(ctx context.Context, query types.RolloutFindQuery) ([]string, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, query)
	}

	panic(errors.New("should not be called"))
}

func (m *RolloutInterface) PickAndAdvance(
	ctx context.Context,
	cursor types.RolloutCursor,
	task func(types.Rollout) (types.RolloutStatus, error),
) (types.RolloutCursor, error) {
	m.Calls.PickAndAdvance = append(m.Calls.PickAndAdvance, cursor)
	if m.Impl.PickAndAdvance != nil {
		return m.Impl.PickAndAdvance(ctx, cursor, task)
	}

	panic(errors.New("should not be called"))
}

func (m *RolloutInterface) SetStatus(
	ctx context.Context, rolloutId string, newStatus types.RolloutStatus, note string,
) error {
	m.Calls.SetStatus = append(m.Calls.SetStatus, SetStatusArgs{
		RolloutId: rolloutId, NewStatus: newStatus, Note: note,
	})
	if m.Impl.SetStatus != nil {
		return m.Impl.SetStatus(ctx, rolloutId, newStatus, note)
	}

	panic(errors.New("should not be called"))
}

func (m *RolloutInterface) SetPhase(ctx context.Context, rolloutId string, phase int) error {
	m.Calls.SetPhase = append(m.Calls.SetPhase, SetPhaseArgs{
		RolloutId: rolloutId, Phase: phase,
	})
	if m.Impl.SetPhase != nil {
		return m.Impl.SetPhase(ctx, rolloutId, phase)
	}

	panic(errors.New("should not be called"))
}

func (m *RolloutInterface) AddGateReport(ctx context.Context, rolloutId string, report types.GateReport) error {
	m.Calls.AddGateReport = append(m.Calls.AddGateReport, AddGateReportArgs{
		RolloutId: rolloutId, Report: report,
	})
	if m.Impl.AddGateReport != nil {
		return m.Impl.AddGateReport(ctx, rolloutId, report)
	}

	panic(errors.New("should not be called"))
}
