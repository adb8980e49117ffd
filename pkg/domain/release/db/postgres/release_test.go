package postgres_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	kpgmock "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool/mock"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	domerrors "github.com/taskflow-dev/tugboat/pkg/domain/errors"
	"github.com/taskflow-dev/tugboat/pkg/domain/release/db/postgres"
)

func findCall(calls []kpgmock.Call, pattern string) (kpgmock.Call, bool) {
	for _, c := range calls {
		if strings.Contains(c.SQL, pattern) {
			return c, true
		}
	}
	return kpgmock.Call{}, false
}

func TestNewRelease(t *testing.T) {
	ctx := context.Background()

	spec := domain.Release{
		AppName:  "ping-api",
		Image:    "registry.example.com/ping-api:1.4.2",
		Strategy: domain.Canary,
		Config:   map[string]string{"LOG_LEVEL": "info", "FEATURE_X": "on"},
		Gates:    []domain.GateKind{domain.GateAppReadiness, domain.GateMetricsDelta},
		CanaryPlan: []domain.CanaryPhase{
			{Percent: 50, Window: 30 * time.Second},
			{Percent: 100, Window: 30 * time.Second},
		},
		Timeout: 10 * time.Minute,
	}

	t.Run("it persists the release with its config, gates and canary plan", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`insert into "release" (`).
			Returns(kpgmock.NewRows("release_id").Add("rel-1"))
		tx.On(`insert into "release_config"`)
		tx.On(`insert into "release_gate"`)
		tx.On(`insert into "canary_phase"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		releaseId, err := testee.New(ctx, spec)
		if err != nil {
			t.Fatalf("new release failed: %v", err)
		}
		if releaseId != "rel-1" {
			t.Errorf("release id unmatch: got %s, want rel-1", releaseId)
		}
		if !tx.Committed {
			t.Error("new release did not commit")
		}

		base, ok := findCall(tx.Calls, `insert into "release" (`)
		if !ok {
			t.Fatal("no release insert was issued")
		}
		if base.Args[0] != "ping-api" || base.Args[2] != "canary" {
			t.Errorf("release insert args unmatch: %v", base.Args)
		}
		if base.Args[3] != (10 * time.Minute).Milliseconds() {
			t.Errorf("timeout unmatch: %v", base.Args[3])
		}

		configKeys := []interface{}{}
		for _, c := range tx.Calls {
			if strings.Contains(c.SQL, `insert into "release_config"`) {
				configKeys = append(configKeys, c.Args[1])
			}
		}
		// keys go in sorted, so concurrent writers lock rows in one order
		if len(configKeys) != 2 || configKeys[0] != "FEATURE_X" || configKeys[1] != "LOG_LEVEL" {
			t.Errorf("config keys unmatch: %v", configKeys)
		}

		phases := [][]interface{}{}
		for _, c := range tx.Calls {
			if strings.Contains(c.SQL, `insert into "canary_phase"`) {
				phases = append(phases, c.Args)
			}
		}
		if len(phases) != 2 {
			t.Fatalf("canary phase inserts: got %d, want 2", len(phases))
		}
		if phases[0][1] != 0 || phases[0][2] != 50 {
			t.Errorf("phase 0 args unmatch: %v", phases[0])
		}
		if phases[1][1] != 1 || phases[1][2] != 100 {
			t.Errorf("phase 1 args unmatch: %v", phases[1])
		}
	})

	t.Run("it reports missing when the app is not registered", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`insert into "release" (`).
			Fails(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		if _, err := testee.New(ctx, spec); !errors.Is(err, domerrors.ErrMissing) {
			t.Fatalf("unexpected error: %v", err)
		}
		if tx.Committed {
			t.Error("failed new release committed")
		}
	})
}

func TestGetRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("it assembles a release from its tables", func(t *testing.T) {
		createdAt := time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC)

		tx := kpgmock.NewTx()
		tx.On(`"timeout_ms"`).Returns(
			kpgmock.NewRows().Add(
				"rel-1", "ping-api", "production",
				"registry.example.com/ping-api:1.4.2",
				"canary", int64(600000), createdAt,
			),
		)
		tx.On(`from "release_config"`).Returns(
			kpgmock.NewRows().
				Add("rel-1", "FEATURE_X", "on").
				Add("rel-1", "LOG_LEVEL", "info"),
		)
		tx.On(`from "release_gate"`).Returns(
			kpgmock.NewRows().
				Add("rel-1", "app-readiness").
				Add("rel-1", "metrics-delta"),
		)
		tx.On(`from "canary_phase"`).Returns(
			kpgmock.NewRows().
				Add("rel-1", 50, int64(30000)).
				Add("rel-1", 100, int64(30000)),
		)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		releases, err := testee.Get(ctx, []string{"rel-1"})
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		release, ok := releases["rel-1"]
		if !ok {
			t.Fatal(`releases["rel-1"] is missing`)
		}

		want := domain.Release{
			Id: "rel-1", AppName: "ping-api", Env: domain.Production,
			Image:    "registry.example.com/ping-api:1.4.2",
			Strategy: domain.Canary,
			Config:   map[string]string{"FEATURE_X": "on", "LOG_LEVEL": "info"},
			Gates:    []domain.GateKind{domain.GateAppReadiness, domain.GateMetricsDelta},
			CanaryPlan: []domain.CanaryPhase{
				{Percent: 50, Window: 30 * time.Second},
				{Percent: 100, Window: 30 * time.Second},
			},
			Timeout: 10 * time.Minute,
		}
		if !release.Equal(want) {
			t.Errorf("release unmatch: got %+v, want %+v", release, want)
		}
		if !release.CreatedAt.Equal(createdAt) {
			t.Errorf("created at unmatch: %s", release.CreatedAt)
		}
	})
}

func TestFindRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("it passes query dimensions and returns ids in order", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`select "release_id" from "release"`).Returns(
			kpgmock.NewRows("release_id").Add("rel-1").Add("rel-2"),
		)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		testee := postgres.New(pool)
		releaseIds, err := testee.Find(ctx, domain.ReleaseFindQuery{
			AppName: []string{"ping-api"},
			Since:   &since,
		})
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if len(releaseIds) != 2 || releaseIds[0] != "rel-1" || releaseIds[1] != "rel-2" {
			t.Errorf("release ids unmatch: %v", releaseIds)
		}

		call, ok := findCall(tx.Calls, `select "release_id" from "release"`)
		if !ok {
			t.Fatal("no query was issued")
		}
		if names := call.Args[0].([]string); len(names) != 1 || names[0] != "ping-api" {
			t.Errorf("app name args unmatch: %v", call.Args[0])
		}
		if got := call.Args[1].(*time.Time); got == nil || !got.Equal(since) {
			t.Errorf("since arg unmatch: %v", call.Args[1])
		}
	})
}
