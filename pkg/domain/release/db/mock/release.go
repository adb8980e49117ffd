// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"

	types "github.com/taskflow-dev/tugboat/pkg/domain"
	kdbmock "github.com/taskflow-dev/tugboat/pkg/domain/internal/db/mock"
	kdb "github.com/taskflow-dev/tugboat/pkg/domain/release/db"
)

type ReleaseInterface struct {
	Impl struct {
		New  func(context.Context, types.Release) (string, error)
		Get  func(context.Context, []string) (map[string]types.Release, error)
		Find func(context.Context, types.ReleaseFindQuery) ([]string, error)
	}
	Calls struct {
		New  kdbmock.CallLog[types.Release]
		Get  kdbmock.CallLog[[]string]
		Find kdbmock.CallLog[types.ReleaseFindQuery]
	}
}

var _ kdb.ReleaseInterface = &ReleaseInterface{}

func NewReleaseInterface() *ReleaseInterface {
	return &ReleaseInterface{}
}

func (m *ReleaseInterface) New(ctx context.Context, spec types.Release) (string, error) {
	m.Calls.New = append(m.Calls.New, spec)
	if m.Impl.New != nil {
		return m.Impl.New(ctx, spec)
	}

	panic(errors.New("should not be called"))
}

func (m *ReleaseInterface) Get(ctx context.Context, releaseIds []string) (map[string]types.Release, error) {
	m.Calls.Get = append(m.Calls.Get, releaseIds)
	if m.Impl.Get != nil {
		return m.Impl.Get(ctx, releaseIds)
	}

	panic(errors.New("should not be called"))
}

func (m *ReleaseInterface) Find(ctx context.Context, query types.ReleaseFindQuery) ([]string, error) {
	m.Calls.Find = append(m.Calls.Find, query)
	if m.Impl.Find != nil {
		return m.Impl.Find(ctx, query)
	}

	panic(errors.New("should not be called"))
}
