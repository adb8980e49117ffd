package bluegreen_test

import (
	"context"
	"errors"
	"testing"

	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration/manager"
	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration/manager/bluegreen"
	bconf "github.com/taskflow-dev/tugboat/pkg/configs/backend"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	appmocks "github.com/taskflow-dev/tugboat/pkg/domain/app/db/mock"
	monmock "github.com/taskflow-dev/tugboat/pkg/domain/monitoring/k8s/mock"
	k8smock "github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s/mock"
	"github.com/taskflow-dev/tugboat/pkg/domain/validation"
)

type engineRun struct {
	RolloutId string
	Kinds     []domain.GateKind
	Target    validation.Target
}

// fakeEngine stands in for the gate engine; managers only see its verdict.
type fakeEngine struct {
	verdict bool
	err     error
	Calls   []engineRun
}

func (e *fakeEngine) Run(
	ctx context.Context, rolloutId string, kinds []domain.GateKind, t validation.Target,
) (bool, error) {
	e.Calls = append(e.Calls, engineRun{RolloutId: rolloutId, Kinds: kinds, Target: t})
	return e.verdict, e.err
}

func testConf(t *testing.T) *bconf.TugClusterConfig {
	t.Helper()
	m := bconf.TugClusterConfigMarshall{
		Namespace: "apps",
		Database:  "postgres://tugboat:secret@db/tugboat",
		Rollout:   &bconf.RolloutConfigMarshall{DrainGrace: "1ms"},
		Keychains: &bconf.KeychainsConfigMarshall{
			SignKeyForHooks: &bconf.HS256KeyChainMarshall{Name: "signer"},
		},
	}
	return m.TrySeal()
}

func testApp(monitoring bool) domain.App {
	return domain.App{
		Name: "ping-api", Env: domain.Production, Namespace: "ping-api",
		Replicas: 4, Monitoring: monitoring, ActiveColor: domain.Blue,
	}
}

func testRollout(status domain.RolloutStatus) domain.Rollout {
	return domain.Rollout{
		RolloutBody: domain.RolloutBody{
			Id: "rol-1", ReleaseId: "rel-1", AppName: "ping-api",
			Env: domain.Production, Status: status,
			TargetColor: domain.Green, Phase: -1,
		},
		Release: domain.Release{
			Id: "rel-1", AppName: "ping-api", Env: domain.Production,
			Image:    "registry.invalid/ping-api:2.0.0",
			Strategy: domain.BlueGreen,
			Gates:    []domain.GateKind{domain.GateAppReadiness, domain.GateEndpoints},
		},
	}
}

func TestBlueGreen_Waiting(t *testing.T) {
	testee := bluegreen.New(
		appmocks.NewAppInterface(), k8smock.New(t), monmock.New(t),
		&fakeEngine{}, testConf(t),
	)

	got, err := testee(context.Background(), testApp(false), testRollout(domain.Waiting))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != domain.Provisioning {
		t.Errorf("next status is %s (want %s)", got, domain.Provisioning)
	}
}

func TestBlueGreen_Provisioning(t *testing.T) {
	t.Run("it stands the idle slot up at full strength", func(t *testing.T) {
		app := testApp(true)

		ik8s := k8smock.New(t)
		ik8s.Impl.EnsureSurroundings = func(_ context.Context, a domain.App, active domain.Color) error {
			if active != domain.Blue {
				t.Errorf("surroundings pinned to %s (want %s)", active, domain.Blue)
			}
			return nil
		}
		provisioned := false
		ik8s.Impl.ProvisionSlot = func(_ context.Context, a domain.App, r domain.Release, color domain.Color, replicas int32) error {
			provisioned = true
			if color != domain.Green {
				t.Errorf("provisioned %s (want %s)", color, domain.Green)
			}
			if replicas != 4 {
				t.Errorf("provisioned %d replicas (want 4)", replicas)
			}
			return nil
		}
		stacked := false
		iMon := monmock.New(t)
		iMon.Impl.EnsureStack = func(context.Context, domain.App) error {
			stacked = true
			return nil
		}

		testee := bluegreen.New(
			appmocks.NewAppInterface(), ik8s, iMon, &fakeEngine{}, testConf(t),
		)
		got, err := testee(context.Background(), app, testRollout(domain.Provisioning))
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if got != domain.Validating {
			t.Errorf("next status is %s (want %s)", got, domain.Validating)
		}
		if !provisioned || !stacked {
			t.Errorf("provisioned:%v stacked:%v (want both)", provisioned, stacked)
		}
	})

	t.Run("it skips the monitoring stack when the app opted out", func(t *testing.T) {
		ik8s := k8smock.New(t)
		ik8s.Impl.EnsureSurroundings = func(context.Context, domain.App, domain.Color) error { return nil }
		ik8s.Impl.ProvisionSlot = func(context.Context, domain.App, domain.Release, domain.Color, int32) error { return nil }

		// monmock fails the test if EnsureStack gets called.
		testee := bluegreen.New(
			appmocks.NewAppInterface(), ik8s, monmock.New(t), &fakeEngine{}, testConf(t),
		)
		if _, err := testee(context.Background(), testApp(false), testRollout(domain.Provisioning)); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	})

	t.Run("a cluster failure aborts the rollout", func(t *testing.T) {
		ik8s := k8smock.New(t)
		ik8s.Impl.EnsureSurroundings = func(context.Context, domain.App, domain.Color) error {
			return errors.New("fake error")
		}

		testee := bluegreen.New(
			appmocks.NewAppInterface(), ik8s, monmock.New(t), &fakeEngine{}, testConf(t),
		)
		got, err := testee(context.Background(), testApp(false), testRollout(domain.Provisioning))
		if !errors.Is(err, manager.ErrAbort) {
			t.Errorf("error does not mark an abort: %s", err)
		}
		if got != domain.Provisioning {
			t.Errorf("status moved to %s on failure", got)
		}
	})
}

func TestBlueGreen_Validating(t *testing.T) {
	t.Run("it runs the release's gates against the out-of-rotation slot", func(t *testing.T) {
		engine := &fakeEngine{verdict: true}
		testee := bluegreen.New(
			appmocks.NewAppInterface(), k8smock.New(t), monmock.New(t), engine, testConf(t),
		)

		got, err := testee(context.Background(), testApp(false), testRollout(domain.Validating))
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if got != domain.Shifting {
			t.Errorf("next status is %s (want %s)", got, domain.Shifting)
		}

		if len(engine.Calls) != 1 {
			t.Fatalf("engine ran %d times (want 1)", len(engine.Calls))
		}
		run := engine.Calls[0]
		if run.RolloutId != "rol-1" {
			t.Errorf("gates ran for rollout %s (want rol-1)", run.RolloutId)
		}
		if len(run.Kinds) != 2 || run.Kinds[0] != domain.GateAppReadiness {
			t.Errorf("unexpected gate kinds: %v", run.Kinds)
		}
		if run.Target.InRotation {
			t.Error("blue-green validates before the switch; the slot must be out of rotation")
		}
		if run.Target.Color != domain.Green || run.Target.Replicas != 4 {
			t.Errorf("unexpected target: %+v", run.Target)
		}
	})

	t.Run("a failed verdict aborts the rollout", func(t *testing.T) {
		testee := bluegreen.New(
			appmocks.NewAppInterface(), k8smock.New(t), monmock.New(t),
			&fakeEngine{verdict: false}, testConf(t),
		)
		got, err := testee(context.Background(), testApp(false), testRollout(domain.Validating))
		if !errors.Is(err, manager.ErrAbort) {
			t.Errorf("error does not mark an abort: %s", err)
		}
		if got != domain.Validating {
			t.Errorf("status moved to %s on failure", got)
		}
	})

	t.Run("an engine breakage is the loop's error, not the rollout's", func(t *testing.T) {
		fakeErr := errors.New("fake error")
		testee := bluegreen.New(
			appmocks.NewAppInterface(), k8smock.New(t), monmock.New(t),
			&fakeEngine{err: fakeErr}, testConf(t),
		)
		_, err := testee(context.Background(), testApp(false), testRollout(domain.Validating))
		if !errors.Is(err, fakeErr) {
			t.Errorf("engine error not passed through: %s", err)
		}
		if errors.Is(err, manager.ErrAbort) {
			t.Error("engine error should not mark an abort")
		}
	})
}

func TestBlueGreen_Shifting(t *testing.T) {
	switched := false
	ik8s := k8smock.New(t)
	ik8s.Impl.SwitchTraffic = func(_ context.Context, a domain.App, to domain.Color) error {
		switched = true
		if to != domain.Green {
			t.Errorf("traffic switched to %s (want %s)", to, domain.Green)
		}
		return nil
	}

	testee := bluegreen.New(
		appmocks.NewAppInterface(), ik8s, monmock.New(t), &fakeEngine{}, testConf(t),
	)
	got, err := testee(context.Background(), testApp(false), testRollout(domain.Shifting))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != domain.Draining {
		t.Errorf("next status is %s (want %s)", got, domain.Draining)
	}
	if !switched {
		t.Error("traffic not switched")
	}
}

func TestBlueGreen_Draining(t *testing.T) {
	drained := false
	ik8s := k8smock.New(t)
	ik8s.Impl.DrainSlot = func(_ context.Context, a domain.App, color domain.Color) error {
		drained = true
		if color != domain.Blue {
			t.Errorf("drained %s (want the old color %s)", color, domain.Blue)
		}
		return nil
	}
	iDbApp := appmocks.NewAppInterface()
	iDbApp.Impl.SetActiveColor = func(context.Context, string, domain.Color) error { return nil }

	testee := bluegreen.New(iDbApp, ik8s, monmock.New(t), &fakeEngine{}, testConf(t))
	got, err := testee(context.Background(), testApp(false), testRollout(domain.Draining))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != domain.Done {
		t.Errorf("next status is %s (want %s)", got, domain.Done)
	}
	if !drained {
		t.Error("old slot not drained")
	}

	if len(iDbApp.Calls.SetActiveColor) != 1 {
		t.Fatalf("SetActiveColor called %d times (want 1)", len(iDbApp.Calls.SetActiveColor))
	}
	if call := iDbApp.Calls.SetActiveColor[0]; call.Name != "ping-api" || call.Color != domain.Green {
		t.Errorf("active color set to %s/%s (want ping-api/%s)", call.Name, call.Color, domain.Green)
	}
}
