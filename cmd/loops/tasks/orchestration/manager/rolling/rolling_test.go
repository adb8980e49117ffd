package rolling_test

import (
	"context"
	"errors"
	"testing"

	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration/manager"
	"github.com/taskflow-dev/tugboat/cmd/loops/tasks/orchestration/manager/rolling"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	monmock "github.com/taskflow-dev/tugboat/pkg/domain/monitoring/k8s/mock"
	k8smock "github.com/taskflow-dev/tugboat/pkg/domain/rollout/k8s/mock"
	"github.com/taskflow-dev/tugboat/pkg/domain/validation"
)

type fakeEngine struct {
	verdict bool
	err     error
	Targets []validation.Target
}

func (e *fakeEngine) Run(
	ctx context.Context, rolloutId string, kinds []domain.GateKind, t validation.Target,
) (bool, error) {
	e.Targets = append(e.Targets, t)
	return e.verdict, e.err
}

func testApp() domain.App {
	return domain.App{
		Name: "ping-api", Env: domain.Production, Namespace: "ping-api",
		Replicas: 3, ActiveColor: domain.Blue,
	}
}

// rolling updates the live slot: target == active color.
func testRollout(status domain.RolloutStatus) domain.Rollout {
	return domain.Rollout{
		RolloutBody: domain.RolloutBody{
			Id: "rol-1", ReleaseId: "rel-1", AppName: "ping-api",
			Env: domain.Production, Status: status,
			TargetColor: domain.Blue, Phase: -1,
		},
		Release: domain.Release{
			Id: "rel-1", AppName: "ping-api", Env: domain.Production,
			Image:    "registry.invalid/ping-api:2.0.0",
			Strategy: domain.Rolling,
			Gates:    []domain.GateKind{domain.GateAppReadiness},
		},
	}
}

func TestRolling_Provisioning(t *testing.T) {
	ik8s := k8smock.New(t)
	ik8s.Impl.EnsureSurroundings = func(_ context.Context, _ domain.App, active domain.Color) error {
		if active != domain.Blue {
			t.Errorf("surroundings pinned to %s (want the live color %s)", active, domain.Blue)
		}
		return nil
	}
	ik8s.Impl.ProvisionSlot = func(_ context.Context, _ domain.App, _ domain.Release, color domain.Color, replicas int32) error {
		if color != domain.Blue {
			t.Errorf("provisioned %s (want the live color %s)", color, domain.Blue)
		}
		if replicas != 3 {
			t.Errorf("provisioned %d replicas (want 3)", replicas)
		}
		return nil
	}

	testee := rolling.New(ik8s, monmock.New(t), &fakeEngine{})
	got, err := testee(context.Background(), testApp(), testRollout(domain.Provisioning))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != domain.Validating {
		t.Errorf("next status is %s (want %s)", got, domain.Validating)
	}
}

func TestRolling_Validating(t *testing.T) {
	t.Run("it validates the slot in rotation", func(t *testing.T) {
		engine := &fakeEngine{verdict: true}
		testee := rolling.New(k8smock.New(t), monmock.New(t), engine)

		got, err := testee(context.Background(), testApp(), testRollout(domain.Validating))
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if got != domain.Shifting {
			t.Errorf("next status is %s (want %s)", got, domain.Shifting)
		}
		if len(engine.Targets) != 1 {
			t.Fatalf("engine ran %d times (want 1)", len(engine.Targets))
		}
		if !engine.Targets[0].InRotation {
			t.Error("a rolling update swaps pods behind the live Service; the slot is in rotation")
		}
	})

	t.Run("a failed verdict aborts the rollout", func(t *testing.T) {
		testee := rolling.New(k8smock.New(t), monmock.New(t), &fakeEngine{verdict: false})
		_, err := testee(context.Background(), testApp(), testRollout(domain.Validating))
		if !errors.Is(err, manager.ErrAbort) {
			t.Errorf("error does not mark an abort: %s", err)
		}
	})
}

func TestRolling_TailStatuses(t *testing.T) {
	// no Service move and nothing to drain: both steps are formalities.
	testee := rolling.New(k8smock.New(t), monmock.New(t), &fakeEngine{})

	got, err := testee(context.Background(), testApp(), testRollout(domain.Shifting))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != domain.Draining {
		t.Errorf("next status is %s (want %s)", got, domain.Draining)
	}

	got, err = testee(context.Background(), testApp(), testRollout(domain.Draining))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got != domain.Done {
		t.Errorf("next status is %s (want %s)", got, domain.Done)
	}
}
