// this package provide "mock" implementation of database for testing.
package mocks

import (
	"context"
	"errors"

	types "github.com/taskflow-dev/tugboat/pkg/domain"
	kdb "github.com/taskflow-dev/tugboat/pkg/domain/garbage/db"
	kdbmock "github.com/taskflow-dev/tugboat/pkg/domain/internal/db/mock"
)

type GarbageInterface struct {
	Impl struct {
		Add func(context.Context, ...types.Garbage) error
		Pop func(context.Context, func(types.Garbage) error) (bool, error)
	}
	Calls struct {
		Add kdbmock.CallLog[[]types.Garbage]
		Pop kdbmock.CallLog[struct{}]
	}
}

var _ kdb.GarbageInterface = &GarbageInterface{}

func NewGarbageInterface() *GarbageInterface {
	return &GarbageInterface{}
}

func (m *GarbageInterface) Add(ctx context.Context, gs ...types.Garbage) error {
	m.Calls.Add = append(m.Calls.Add, gs)
	if m.Impl.Add != nil {
		return m.Impl.Add(ctx, gs...)
	}

	panic(errors.New("should not be called"))
}

func (m *GarbageInterface) Pop(ctx context.Context, callback func(types.Garbage) error) (bool, error) {
	m.Calls.Pop = append(m.Calls.Pop, struct{}{})
	if m.Impl.Pop != nil {
		return m.Impl.Pop(ctx, callback)
	}

	panic(errors.New("should not be called"))
}
