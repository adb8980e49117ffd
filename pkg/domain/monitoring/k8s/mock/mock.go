package mock

import (
	"context"
	"testing"

	"github.com/taskflow-dev/tugboat/pkg/domain"
)

type MockInterface struct {
	t    *testing.T
	Impl struct {
		EnsureStack func(ctx context.Context, app domain.App) error
	}
}

func New(t *testing.T) *MockInterface {
	return &MockInterface{t: t}
}

func (m *MockInterface) EnsureStack(ctx context.Context, app domain.App) error {
	if m.Impl.EnsureStack == nil {
		m.t.Fatal("EnsureStack is not implemented")
	}

	return m.Impl.EnsureStack(ctx, app)
}
