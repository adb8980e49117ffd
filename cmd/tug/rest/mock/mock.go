package mock

import (
	"context"
	"testing"

	"github.com/taskflow-dev/tugboat/cmd/tug/rest"
	"github.com/taskflow-dev/tugboat/pkg/api/types/apps"
	"github.com/taskflow-dev/tugboat/pkg/api/types/releases"
	"github.com/taskflow-dev/tugboat/pkg/api/types/rollouts"
)

type GetAppArgs struct {
	Name string
	Env  string
}

type UpdateAppArgs struct {
	Name   string
	Change apps.Change
}

func New(t *testing.T) *mockTugClient {
	return &mockTugClient{t: t}
}

type mockTugClient struct {
	t    *testing.T
	Impl struct {
		RegisterApp func(ctx context.Context, spec apps.Spec) (apps.Detail, error)
		GetApp      func(ctx context.Context, name string, env string) (apps.Detail, error)
		FindApps    func(ctx context.Context, query rest.FindAppParameter) ([]apps.Detail, error)
		UpdateApp   func(ctx context.Context, name string, change apps.Change) (apps.Detail, error)
		DeleteApp   func(ctx context.Context, name string) error

		RegisterRelease func(ctx context.Context, spec releases.Spec) (releases.Detail, error)
		GetRelease      func(ctx context.Context, releaseId string) (releases.Detail, error)
		FindReleases    func(ctx context.Context, query rest.FindReleaseParameter) ([]releases.Detail, error)

		StartRollout      func(ctx context.Context, releaseId string) (rollouts.Detail, error)
		GetRollout        func(ctx context.Context, rolloutId string) (rollouts.Detail, error)
		FindRollouts      func(ctx context.Context, query rest.FindRolloutParameter) ([]rollouts.Detail, error)
		AbortRollout      func(ctx context.Context, rolloutId string) (rollouts.Detail, error)
		RetryRollout      func(ctx context.Context, rolloutId string) (rollouts.Detail, error)
		InvalidateRollout func(ctx context.Context, rolloutId string) (rollouts.Detail, error)
		GetGateReports    func(ctx context.Context, rolloutId string) ([]rollouts.GateReport, error)
	}
	Calls struct {
		RegisterApp []apps.Spec
		GetApp      []GetAppArgs
		FindApps    []rest.FindAppParameter
		UpdateApp   []UpdateAppArgs
		DeleteApp   []string

		RegisterRelease []releases.Spec
		GetRelease      []string
		FindReleases    []rest.FindReleaseParameter

		StartRollout      []string
		GetRollout        []string
		FindRollouts      []rest.FindRolloutParameter
		AbortRollout      []string
		RetryRollout      []string
		InvalidateRollout []string
		GetGateReports    []string
	}
}

var _ rest.TugClient = &mockTugClient{}

func (m *mockTugClient) RegisterApp(ctx context.Context, spec apps.Spec) (apps.Detail, error) {
	m.t.Helper()
	m.Calls.RegisterApp = append(m.Calls.RegisterApp, spec)
	if m.Impl.RegisterApp == nil {
		m.t.Fatal("RegisterApp is not ready to be called")
	}
	return m.Impl.RegisterApp(ctx, spec)
}

func (m *mockTugClient) GetApp(ctx context.Context, name string, env string) (apps.Detail, error) {
	m.t.Helper()
	m.Calls.GetApp = append(m.Calls.GetApp, GetAppArgs{Name: name, Env: env})
	if m.Impl.GetApp == nil {
		m.t.Fatal("GetApp is not ready to be called")
	}
	return m.Impl.GetApp(ctx, name, env)
}

func (m *mockTugClient) FindApps(ctx context.Context, query rest.FindAppParameter) ([]apps.Detail, error) {
	m.t.Helper()
	m.Calls.FindApps = append(m.Calls.FindApps, query)
	if m.Impl.FindApps == nil {
		m.t.Fatal("FindApps is not ready to be called")
	}
	return m.Impl.FindApps(ctx, query)
}

func (m *mockTugClient) UpdateApp(ctx context.Context, name string, change apps.Change) (apps.Detail, error) {
	m.t.Helper()
	m.Calls.UpdateApp = append(m.Calls.UpdateApp, UpdateAppArgs{Name: name, Change: change})
	if m.Impl.UpdateApp == nil {
		m.t.Fatal("UpdateApp is not ready to be called")
	}
	return m.Impl.UpdateApp(ctx, name, change)
}

func (m *mockTugClient) DeleteApp(ctx context.Context, name string) error {
	m.t.Helper()
	m.Calls.DeleteApp = append(m.Calls.DeleteApp, name)
	if m.Impl.DeleteApp == nil {
		m.t.Fatal("DeleteApp is not ready to be called")
	}
	return m.Impl.DeleteApp(ctx, name)
}

func (m *mockTugClient) RegisterRelease(ctx context.Context, spec releases.Spec) (releases.Detail, error) {
	m.t.Helper()
	m.Calls.RegisterRelease = append(m.Calls.RegisterRelease, spec)
	if m.Impl.RegisterRelease == nil {
		m.t.Fatal("RegisterRelease is not ready to be called")
	}
	return m.Impl.RegisterRelease(ctx, spec)
}

func (m *mockTugClient) GetRelease(ctx context.Context, releaseId string) (releases.Detail, error) {
	m.t.Helper()
	m.Calls.GetRelease = append(m.Calls.GetRelease, releaseId)
	if m.Impl.GetRelease == nil {
		m.t.Fatal("GetRelease is not ready to be called")
	}
	return m.Impl.GetRelease(ctx, releaseId)
}

func (m *mockTugClient) FindReleases(ctx context.Context, query rest.FindReleaseParameter) ([]releases.Detail, error) {
	m.t.Helper()
	m.Calls.FindReleases = append(m.Calls.FindReleases, query)
	if m.Impl.FindReleases == nil {
		m.t.Fatal("FindReleases is not ready to be called")
	}
	return m.Impl.FindReleases(ctx, query)
}

func (m *mockTugClient) StartRollout(ctx context.Context, releaseId string) (rollouts.Detail, error) {
	m.t.Helper()
	m.Calls.StartRollout = append(m.Calls.StartRollout, releaseId)
	if m.Impl.StartRollout == nil {
		m.t.Fatal("StartRollout is not ready to be called")
	}
	return m.Impl.StartRollout(ctx, releaseId)
}

func (m *mockTugClient) GetRollout(ctx context.Context, rolloutId string) (rollouts.Detail, error) {
	m.t.Helper()
	m.Calls.GetRollout = append(m.Calls.GetRollout, rolloutId)
	if m.Impl.GetRollout == nil {
		m.t.Fatal("GetRollout is not ready to be called")
	}
	return m.Impl.GetRollout(ctx, rolloutId)
}

func (m *mockTugClient) FindRollouts(ctx context.Context, query rest.FindRolloutParameter) ([]rollouts.Detail, error) {
	m.t.Helper()
	m.Calls.FindRollouts = append(m.Calls.FindRollouts, query)
	if m.Impl.FindRollouts == nil {
		m.t.Fatal("FindRollouts is not ready to be called")
	}
	return m.Impl.FindRollouts(ctx, query)
}

func (m *mockTugClient) AbortRollout(ctx context.Context, rolloutId string) (rollouts.Detail, error) {
	m.t.Helper()
	m.Calls.AbortRollout = append(m.Calls.AbortRollout, rolloutId)
	if m.Impl.AbortRollout == nil {
		m.t.Fatal("AbortRollout is not ready to be called")
	}
	return m.Impl.AbortRollout(ctx, rolloutId)
}

func (m *mockTugClient) RetryRollout(ctx context.Context, rolloutId string) (rollouts.Detail, error) {
	m.t.Helper()
	m.Calls.RetryRollout = append(m.Calls.RetryRollout, rolloutId)
	if m.Impl.RetryRollout == nil {
		m.t.Fatal("RetryRollout is not ready to be called")
	}
	return m.Impl.RetryRollout(ctx, rolloutId)
}

func (m *mockTugClient) InvalidateRollout(ctx context.Context, rolloutId string) (rollouts.Detail, error) {
	m.t.Helper()
	m.Calls.InvalidateRollout = append(m.Calls.InvalidateRollout, rolloutId)
	if m.Impl.InvalidateRollout == nil {
		m.t.Fatal("InvalidateRollout is not ready to be called")
	}
	return m.Impl.InvalidateRollout(ctx, rolloutId)
}

func (m *mockTugClient) GetGateReports(ctx context.Context, rolloutId string) ([]rollouts.GateReport, error) {
	m.t.Helper()
	m.Calls.GetGateReports = append(m.Calls.GetGateReports, rolloutId)
	if m.Impl.GetGateReports == nil {
		m.t.Fatal("GetGateReports is not ready to be called")
	}
	return m.Impl.GetGateReports(ctx, rolloutId)
}
