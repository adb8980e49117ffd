// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"

	types "github.com/taskflow-dev/tugboat/pkg/domain"
	kdb "github.com/taskflow-dev/tugboat/pkg/domain/app/db"
	kdbmock "github.com/taskflow-dev/tugboat/pkg/domain/internal/db/mock"
)

type SetActiveColorArgs struct {
	Name  string
	Color types.Color
}

type DeleteArgs struct {
	Name    string
	Garbage []types.Garbage
}

type AppInterface struct {
	Impl struct {
		Register       func(context.Context, types.App) (types.App, error)
		Get            func(context.Context, []string) (map[string]types.App, error)
		Find           func(context.Context, types.AppFindQuery) ([]string, error)
		UpdateSpec     func(context.Context, types.App) (types.App, error)
		SetActiveColor func(context.Context, string, types.Color) error
		Delete         func(context.Context, string, []types.Garbage) error
	}
	Calls struct {
		Register       kdbmock.CallLog[types.App]
		Get            kdbmock.CallLog[[]string]
		Find           kdbmock.CallLog[types.AppFindQuery]
		UpdateSpec     kdbmock.CallLog[types.App]
		SetActiveColor kdbmock.CallLog[SetActiveColorArgs]
		Delete         kdbmock.CallLog[DeleteArgs]
	}
}

var _ kdb.AppInterface = &AppInterface{}

func NewAppInterface() *AppInterface {
	return &AppInterface{}
}

func (m *AppInterface) Register(ctx context.Context, spec types.App) (types.App, error) {
	m.Calls.Register = append(m.Calls.Register, spec)
	if m.Impl.Register != nil {
		return m.Impl.Register(ctx, spec)
	}

	panic(errors.New("should not be called"))
}

func (m *AppInterface) Get(ctx context.Context, names []string) (map[string]types.App, error) {
	m.Calls.Get = append(m.Calls.Get, names)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, names)
	}

	panic(errors.New("should not be called"))
}

func (m *AppInterface) Find(ctx context.Context, query types.AppFindQuery) ([]string, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, query)
	}

	panic(errors.New("should not be called"))
}

func (m *AppInterface) UpdateSpec(ctx context.Context, spec types.App) (types.App, error) {
	m.Calls.UpdateSpec = append(m.Calls.UpdateSpec, spec)
	if m.Impl.UpdateSpec != nil {
		return m.Impl.UpdateSpec(ctx, spec)
	}

	panic(errors.New("should not be called"))
}

func (m *AppInterface) SetActiveColor(ctx context.Context, name string, color types.Color) error {
	m.Calls.SetActiveColor = append(m.Calls.SetActiveColor, SetActiveColorArgs{
		Name: name, Color: color,
	})
	if m.Impl.SetActiveColor != nil {
		return m.Impl.SetActiveColor(ctx, name, color)
	}

	panic(errors.New("should not be called"))
}

func (m *AppInterface) Delete(ctx context.Context, name string, garbage []types.Garbage) error {
	m.Calls.Delete = append(m.Calls.Delete, DeleteArgs{
		Name: name, Garbage: garbage,
	})
	if m.Impl.Delete != nil {
		return m.Impl.Delete(ctx, name, garbage)
	}

	panic(errors.New("should not be called"))
}
