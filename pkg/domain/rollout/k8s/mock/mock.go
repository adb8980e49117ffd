package mock

import (
	"context"
	"testing"

	"github.com/taskflow-dev/tugboat/pkg/domain"
	"github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s/slot"
)

type MockInterface struct {
	t    *testing.T
	Impl struct {
		ActiveColor        func(ctx context.Context, app domain.App) (domain.Color, error)
		ProvisionSlot      func(ctx context.Context, app domain.App, r domain.Release, color domain.Color, replicas int32) error
		EnsureSurroundings func(ctx context.Context, app domain.App, active domain.Color) error
		SwitchTraffic      func(ctx context.Context, app domain.App, to domain.Color) error
		ShareTraffic       func(ctx context.Context, app domain.App) error
		ScaleSlot          func(ctx context.Context, app domain.App, color domain.Color, replicas int32) error
		DrainSlot          func(ctx context.Context, app domain.App, color domain.Color) error
		SlotCondition      func(ctx context.Context, app domain.App, color domain.Color) (slot.Condition, error)
		RollBackRevision   func(ctx context.Context, app domain.App, color domain.Color) error
	}
}

func New(t *testing.T) *MockInterface {
	return &MockInterface{t: t}
}

func (m *MockInterface) ActiveColor(ctx context.Context, app domain.App) (domain.Color, error) {
	if m.Impl.ActiveColor == nil {
		m.t.Fatal("ActiveColor is not implemented")
	}

	return m.Impl.ActiveColor(ctx, app)
}

func (m *MockInterface) ProvisionSlot(
	ctx context.Context, app domain.App, r domain.Release, color domain.Color, replicas int32,
) error {
	if m.Impl.ProvisionSlot == nil {
		m.t.Fatal("ProvisionSlot is not implemented")
	}

	return m.Impl.ProvisionSlot(ctx, app, r, color, replicas)
}

func (m *MockInterface) EnsureSurroundings(
	ctx context.Context, app domain.App, active domain.Color,
) error {
	if m.Impl.EnsureSurroundings == nil {
		m.t.Fatal("EnsureSurroundings is not implemented")
	}

	return m.Impl.EnsureSurroundings(ctx, app, active)
}

func (m *MockInterface) SwitchTraffic(ctx context.Context, app domain.App, to domain.Color) error {
	if m.Impl.SwitchTraffic == nil {
		m.t.Fatal("SwitchTraffic is not implemented")
	}

	return m.Impl.SwitchTraffic(ctx, app, to)
}

func (m *MockInterface) ShareTraffic(ctx context.Context, app domain.App) error {
	if m.Impl.ShareTraffic == nil {
		m.t.Fatal("ShareTraffic is not implemented")
	}

	return m.Impl.ShareTraffic(ctx, app)
}

func (m *MockInterface) ScaleSlot(
	ctx context.Context, app domain.App, color domain.Color, replicas int32,
) error {
	if m.Impl.ScaleSlot == nil {
		m.t.Fatal("ScaleSlot is not implemented")
	}

	return m.Impl.ScaleSlot(ctx, app, color, replicas)
}

func (m *MockInterface) DrainSlot(ctx context.Context, app domain.App, color domain.Color) error {
	if m.Impl.DrainSlot == nil {
		m.t.Fatal("DrainSlot is not implemented")
	}

	return m.Impl.DrainSlot(ctx, app, color)
}

func (m *MockInterface) SlotCondition(
	ctx context.Context, app domain.App, color domain.Color,
) (slot.Condition, error) {
	if m.Impl.SlotCondition == nil {
		m.t.Fatal("SlotCondition is not implemented")
	}

	return m.Impl.SlotCondition(ctx, app, color)
}

func (m *MockInterface) RollBackRevision(
	ctx context.Context, app domain.App, color domain.Color,
) error {
	if m.Impl.RollBackRevision == nil {
		m.t.Fatal("RollBackRevision is not implemented")
	}

	return m.Impl.RollBackRevision(ctx, app, color)
}
