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
	"github.com/taskflow-dev/tugboat/pkg/domain/rollout/db/postgres"
)

func findCall(calls []kpgmock.Call, pattern string) (kpgmock.Call, bool) {
	for _, c := range calls {
		if strings.Contains(c.SQL, pattern) {
			return c, true
		}
	}
	return kpgmock.Call{}, false
}

// script the queries which assemble a full rollout, as Get and PickAndAdvance issue them.
func scriptRolloutRead(tx *kpgmock.Tx, rolloutId string, status string) {
	at := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	tx.On(`"target_color"`).Returns(
		kpgmock.NewRows().Add(
			rolloutId, "rel-1", "ping-api", "production",
			status, "green", -1, "", at,
		),
	)
	tx.On(`"timeout_ms"`).Returns(
		kpgmock.NewRows().Add(
			"rel-1", "ping-api", "production",
			"registry.example.com/ping-api:1.4.2",
			"blue-green", int64(600000), at,
		),
	)
	tx.On(`from "release_config"`)
	tx.On(`from "release_gate"`)
	tx.On(`from "canary_phase"`)
	tx.On(`from "rollout_status_history"`).Returns(
		kpgmock.NewRows().Add(rolloutId, "waiting", "accepted", at),
	)
	tx.On(`from "gate_report"`)
}

func TestNewRollout(t *testing.T) {
	ctx := context.Background()

	t.Run("it accepts a rollout targeting the idle slot", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`select "app_name", "strategy" from "release"`).
			Returns(kpgmock.NewRows().Add("ping-api", "blue-green"))
		tx.On(`select "active_color" from "app"`).
			Returns(kpgmock.NewRows("active_color").Add("blue"))
		tx.On(`select count(*) from "rollout"`).
			Returns(kpgmock.NewRows("count").Add(0))
		tx.On(`insert into "rollout" (`).
			Returns(kpgmock.NewRows("rollout_id").Add("ro-1"))
		tx.On(`insert into "rollout_status_history"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		rolloutId, err := testee.New(ctx, "rel-1")
		if err != nil {
			t.Fatalf("new rollout failed: %v", err)
		}
		if rolloutId != "ro-1" {
			t.Errorf("rollout id unmatch: got %s, want ro-1", rolloutId)
		}
		if !tx.Committed {
			t.Error("new rollout did not commit")
		}

		ins, ok := findCall(tx.Calls, `insert into "rollout" (`)
		if !ok {
			t.Fatal("no rollout insert was issued")
		}
		if ins.Args[1] != "green" {
			t.Errorf("target color unmatch: got %v, want green", ins.Args[1])
		}
	})

	t.Run("it targets the active slot for a rolling release", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`select "app_name", "strategy" from "release"`).
			Returns(kpgmock.NewRows().Add("ping-api", "rolling"))
		tx.On(`select "active_color" from "app"`).
			Returns(kpgmock.NewRows("active_color").Add("blue"))
		tx.On(`select count(*) from "rollout"`).
			Returns(kpgmock.NewRows("count").Add(0))
		tx.On(`insert into "rollout" (`).
			Returns(kpgmock.NewRows("rollout_id").Add("ro-1"))
		tx.On(`insert into "rollout_status_history"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		if _, err := testee.New(ctx, "rel-1"); err != nil {
			t.Fatalf("new rollout failed: %v", err)
		}

		ins, _ := findCall(tx.Calls, `insert into "rollout" (`)
		if ins.Args[1] != "blue" {
			t.Errorf("target color unmatch: got %v, want blue", ins.Args[1])
		}
	})

	t.Run("it reports missing for an unknown release", func(t *testing.T) {
		tx := kpgmock.NewTx()

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		if _, err := testee.New(ctx, "no-such-release"); !errors.Is(err, domerrors.ErrMissing) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("it refuses when the app already has a rollout on the way", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`select "app_name", "strategy" from "release"`).
			Returns(kpgmock.NewRows().Add("ping-api", "blue-green"))
		tx.On(`select "active_color" from "app"`).
			Returns(kpgmock.NewRows("active_color").Add("blue"))
		tx.On(`select count(*) from "rollout"`).
			Returns(kpgmock.NewRows("count").Add(1))

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		_, err := testee.New(ctx, "rel-1")
		if !errors.Is(err, domerrors.ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
		if tx.Committed {
			t.Error("refused rollout committed")
		}
		if _, ok := findCall(tx.Calls, `insert into "rollout" (`); ok {
			t.Error("a rollout was inserted even though refused")
		}
	})
}

func TestGetRollout(t *testing.T) {
	ctx := context.Background()

	t.Run("it assembles a rollout with release, history and reports", func(t *testing.T) {
		at := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)

		tx := kpgmock.NewTx()
		// registered first: the first matching script answers the query.
		tx.On(`from "gate_report"`).Returns(
			kpgmock.NewRows().Add(
				"ro-1", "performance", "passed", "avg response time 42ms",
				[]float64{41, 42, 43}, float64(500), at,
			),
		)
		scriptRolloutRead(tx, "ro-1", "validating")

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		rollouts, err := testee.Get(ctx, []string{"ro-1"})
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		rollout, ok := rollouts["ro-1"]
		if !ok {
			t.Fatal(`rollouts["ro-1"] is missing`)
		}

		if rollout.Status != domain.Validating || rollout.TargetColor != domain.Green {
			t.Errorf("rollout body unmatch: %+v", rollout.RolloutBody)
		}
		if rollout.Phase != -1 {
			t.Errorf("phase unmatch: %d", rollout.Phase)
		}
		if rollout.Release.Image != "registry.example.com/ping-api:1.4.2" {
			t.Errorf("release unmatch: %+v", rollout.Release)
		}
		if rollout.Release.Timeout != 10*time.Minute {
			t.Errorf("timeout unmatch: %s", rollout.Release.Timeout)
		}
		if len(rollout.History) != 1 || rollout.History[0].Note != "accepted" {
			t.Errorf("history unmatch: %+v", rollout.History)
		}
		if len(rollout.Reports) != 1 {
			t.Fatalf("reports unmatch: %+v", rollout.Reports)
		}
		report := rollout.Reports[0]
		if report.Kind != domain.GatePerformance || report.Outcome != domain.GatePassed {
			t.Errorf("report unmatch: %+v", report)
		}
		if len(report.Samples) != 3 || report.Threshold != 500 {
			t.Errorf("report numbers unmatch: %+v", report)
		}
	})
}

func TestFindRollout(t *testing.T) {
	ctx := context.Background()

	t.Run("it passes query dimensions and returns ids in order", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`select "rollout_id" from "rollout"`).Returns(
			kpgmock.NewRows("rollout_id").Add("ro-1").Add("ro-2"),
		)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		until := time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC)
		testee := postgres.New(pool)
		rolloutIds, err := testee.Find(ctx, domain.RolloutFindQuery{
			AppName:      []string{"ping-api"},
			Status:       []domain.RolloutStatus{domain.Done, domain.RolledBack},
			UpdatedUntil: &until,
		})
		if err != nil {
			t.Fatalf("find failed: %v", err)
		}
		if len(rolloutIds) != 2 || rolloutIds[0] != "ro-1" || rolloutIds[1] != "ro-2" {
			t.Errorf("rollout ids unmatch: %v", rolloutIds)
		}

		call, _ := findCall(tx.Calls, `select "rollout_id" from "rollout"`)
		if statuses := call.Args[2].([]string); len(statuses) != 2 ||
			statuses[0] != "done" || statuses[1] != "rolledback" {
			t.Errorf("status args unmatch: %v", call.Args[2])
		}
		if call.Args[3].(*time.Time) != nil {
			t.Errorf("since arg unmatch: %v", call.Args[3])
		}
		if got := call.Args[4].(*time.Time); got == nil || !got.Equal(until) {
			t.Errorf("until arg unmatch: %v", call.Args[4])
		}
	})
}

func TestPickAndAdvance(t *testing.T) {
	ctx := context.Background()

	cursor := domain.RolloutCursor{
		Head:     "ro-0",
		Status:   domain.StatusesOrchestrated(),
		Debounce: 30 * time.Second,
	}

	t.Run("it returns the cursor as passed when nothing can be picked", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`skip locked`).Returns(kpgmock.NewRows("rollout_id"))

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		moved, err := testee.PickAndAdvance(ctx, cursor, func(domain.Rollout) (domain.RolloutStatus, error) {
			t.Fatal("task should not run")
			return "", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !moved.Equal(cursor) || moved.Head != "ro-0" {
			t.Errorf("cursor moved: %+v", moved)
		}
		if tx.Committed {
			t.Error("empty pick committed")
		}
	})

	t.Run("it picks the next rollout and records the status the task returns", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`skip locked`).Returns(kpgmock.NewRows("rollout_id").Add("ro-1"))
		scriptRolloutRead(tx, "ro-1", "provisioning")
		tx.On(`where "rollout_id" = $1 for update`).
			Returns(kpgmock.NewRows("status").Add("provisioning"))
		tx.On(`"cause" = coalesce`)
		tx.On(`insert into "rollout_status_history"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		var picked domain.Rollout
		testee := postgres.New(pool)
		moved, err := testee.PickAndAdvance(ctx, cursor, func(r domain.Rollout) (domain.RolloutStatus, error) {
			picked = r
			return domain.Validating, nil
		})
		if err != nil {
			t.Fatalf("pick and advance failed: %v", err)
		}
		if !tx.Committed {
			t.Error("pick and advance did not commit")
		}

		if moved.Head != "ro-1" {
			t.Errorf("cursor head unmatch: got %s, want ro-1", moved.Head)
		}
		if picked.Id != "ro-1" || picked.Status != domain.Provisioning {
			t.Errorf("task got wrong rollout: %+v", picked.RolloutBody)
		}
		if picked.Release.Strategy != domain.BlueGreen {
			t.Errorf("task got rollout without release: %+v", picked.Release)
		}
		if len(picked.History) != 1 {
			t.Errorf("task got rollout without history: %+v", picked.History)
		}

		update, ok := findCall(tx.Calls, `"cause" = coalesce`)
		if !ok {
			t.Fatal("no status update was issued")
		}
		if update.Args[0] != "validating" || update.Args[1] != "" {
			t.Errorf("status update args unmatch: %v", update.Args)
		}
	})

	t.Run("it only suspends the rollout when the task keeps the status", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`skip locked`).Returns(kpgmock.NewRows("rollout_id").Add("ro-1"))
		scriptRolloutRead(tx, "ro-1", "provisioning")
		tx.On(`where "rollout_id" = $1 for update`).
			Returns(kpgmock.NewRows("status").Add("provisioning"))
		tx.On(`"lifecycle_suspend_until" = now() + $1`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		if _, err := testee.PickAndAdvance(ctx, cursor, func(domain.Rollout) (domain.RolloutStatus, error) {
			return domain.Provisioning, nil
		}); err != nil {
			t.Fatalf("pick and advance failed: %v", err)
		}
		if !tx.Committed {
			t.Error("pick and advance did not commit")
		}

		debounce, ok := findCall(tx.Calls, `"lifecycle_suspend_until" = now() + $1`)
		if !ok {
			t.Fatal("no suspension was issued")
		}
		if debounce.Args[0] != 30*time.Second {
			t.Errorf("debounce unmatch: %v", debounce.Args[0])
		}
		if _, ok := findCall(tx.Calls, `insert into "rollout_status_history"`); ok {
			t.Error("history was written for a standstill")
		}
	})

	t.Run("it records a task failure as the cause and turns the rollout aborting", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`skip locked`).Returns(kpgmock.NewRows("rollout_id").Add("ro-1"))
		scriptRolloutRead(tx, "ro-1", "provisioning")
		tx.On(`where "rollout_id" = $1 for update`).
			Returns(kpgmock.NewRows("status").Add("provisioning"))
		tx.On(`"cause" = coalesce`)
		tx.On(`insert into "rollout_status_history"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		boom := errors.New("image cannot be pulled")
		testee := postgres.New(pool)
		_, err := testee.PickAndAdvance(ctx, cursor, func(domain.Rollout) (domain.RolloutStatus, error) {
			return "", boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("unexpected error: %v", err)
		}
		if !tx.Committed {
			t.Error("the abort was not committed")
		}

		update, ok := findCall(tx.Calls, `"cause" = coalesce`)
		if !ok {
			t.Fatal("no status update was issued")
		}
		if update.Args[0] != "aborting" || update.Args[1] != "image cannot be pulled" {
			t.Errorf("status update args unmatch: %v", update.Args)
		}
		history, ok := findCall(tx.Calls, `insert into "rollout_status_history"`)
		if !ok {
			t.Fatal("no history was written")
		}
		if history.Args[2] != "image cannot be pulled" {
			t.Errorf("history note unmatch: %v", history.Args)
		}
	})

	t.Run("it leaves the rollout as it was when the task is canceled", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`skip locked`).Returns(kpgmock.NewRows("rollout_id").Add("ro-1"))
		scriptRolloutRead(tx, "ro-1", "provisioning")

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		moved, err := testee.PickAndAdvance(ctx, cursor, func(domain.Rollout) (domain.RolloutStatus, error) {
			return "", context.Canceled
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error: %v", err)
		}
		if moved.Head != "ro-1" {
			t.Errorf("cursor head unmatch: got %s, want ro-1", moved.Head)
		}
		if tx.Committed {
			t.Error("canceled pick committed")
		}
		if !tx.RolledBack {
			t.Error("canceled pick did not roll back")
		}
		if _, ok := findCall(tx.Calls, `"cause" = coalesce`); ok {
			t.Error("status was updated for a canceled task")
		}
	})

	t.Run("it rejects a status the lifecycle does not allow", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`skip locked`).Returns(kpgmock.NewRows("rollout_id").Add("ro-1"))
		scriptRolloutRead(tx, "ro-1", "waiting")
		tx.On(`where "rollout_id" = $1 for update`).
			Returns(kpgmock.NewRows("status").Add("waiting"))

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		_, err := testee.PickAndAdvance(ctx, cursor, func(domain.Rollout) (domain.RolloutStatus, error) {
			return domain.Done, nil
		})
		if !errors.Is(err, domain.ErrInvalidStatusTransition) {
			t.Fatalf("unexpected error: %v", err)
		}
		if tx.Committed {
			t.Error("illegal transition committed")
		}
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("it records the transition, its note and the cause", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`where "rollout_id" = $1 for update`).
			Returns(kpgmock.NewRows("status").Add("shifting"))
		tx.On(`"cause" = coalesce`)
		tx.On(`insert into "rollout_status_history"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		if err := testee.SetStatus(ctx, "ro-1", domain.Aborting, "aborted by operator"); err != nil {
			t.Fatalf("set status failed: %v", err)
		}
		if !tx.Committed {
			t.Error("set status did not commit")
		}

		update, _ := findCall(tx.Calls, `"cause" = coalesce`)
		if update.Args[0] != "aborting" || update.Args[1] != "aborted by operator" {
			t.Errorf("status update args unmatch: %v", update.Args)
		}
		history, _ := findCall(tx.Calls, `insert into "rollout_status_history"`)
		if history.Args[1] != "aborting" || history.Args[2] != "aborted by operator" {
			t.Errorf("history args unmatch: %v", history.Args)
		}
	})

	t.Run("it keeps the cause empty for a regular transition", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`where "rollout_id" = $1 for update`).
			Returns(kpgmock.NewRows("status").Add("waiting"))
		tx.On(`"cause" = coalesce`)
		tx.On(`insert into "rollout_status_history"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		if err := testee.SetStatus(ctx, "ro-1", domain.Invalidated, "expired"); err != nil {
			t.Fatalf("set status failed: %v", err)
		}

		update, _ := findCall(tx.Calls, `"cause" = coalesce`)
		if update.Args[0] != "invalidated" || update.Args[1] != "" {
			t.Errorf("status update args unmatch: %v", update.Args)
		}
		history, _ := findCall(tx.Calls, `insert into "rollout_status_history"`)
		if history.Args[2] != "expired" {
			t.Errorf("history note unmatch: %v", history.Args)
		}
	})

	t.Run("it rejects moves out of a terminal status", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`where "rollout_id" = $1 for update`).
			Returns(kpgmock.NewRows("status").Add("done"))

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		err := testee.SetStatus(ctx, "ro-1", domain.Aborting, "")
		if !errors.Is(err, domain.ErrInvalidStatusTransition) {
			t.Fatalf("unexpected error: %v", err)
		}
		if tx.Committed {
			t.Error("illegal transition committed")
		}
	})

	t.Run("it reports missing for an unknown rollout", func(t *testing.T) {
		tx := kpgmock.NewTx()

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		err := testee.SetStatus(ctx, "no-such-rollout", domain.Aborting, "")
		if !errors.Is(err, domerrors.ErrMissing) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestSetPhase(t *testing.T) {
	ctx := context.Background()

	t.Run("it records the phase", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`"phase" = $1`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		if err := testee.SetPhase(ctx, "ro-1", 2); err != nil {
			t.Fatalf("set phase failed: %v", err)
		}
		if !tx.Committed {
			t.Error("set phase did not commit")
		}

		call, _ := findCall(tx.Calls, `"phase" = $1`)
		if call.Args[0] != 2 || call.Args[1] != "ro-1" {
			t.Errorf("update args unmatch: %v", call.Args)
		}
	})

	t.Run("it reports missing for an unknown rollout", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`"phase" = $1`).Tag("UPDATE 0")

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		if err := testee.SetPhase(ctx, "no-such-rollout", 2); !errors.Is(err, domerrors.ErrMissing) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestAddGateReport(t *testing.T) {
	ctx := context.Background()

	report := domain.GateReport{
		Kind:      domain.GatePerformance,
		Outcome:   domain.GatePassed,
		Summary:   "avg response time 42ms",
		Samples:   []float64{41, 42, 43},
		Threshold: 500,
	}

	t.Run("it appends the report", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`insert into "gate_report"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		if err := testee.AddGateReport(ctx, "ro-1", report); err != nil {
			t.Fatalf("add gate report failed: %v", err)
		}
		if !tx.Committed {
			t.Error("add gate report did not commit")
		}

		ins, _ := findCall(tx.Calls, `insert into "gate_report"`)
		if ins.Args[1] != "performance" || ins.Args[2] != "passed" {
			t.Errorf("insert args unmatch: %v", ins.Args)
		}
		if samples := ins.Args[4].([]float64); len(samples) != 3 {
			t.Errorf("samples unmatch: %v", ins.Args[4])
		}
	})

	t.Run("it stores an empty samples array when the report has none", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`insert into "gate_report"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		bare := report
		bare.Samples = nil

		testee := postgres.New(pool)
		if err := testee.AddGateReport(ctx, "ro-1", bare); err != nil {
			t.Fatalf("add gate report failed: %v", err)
		}

		ins, _ := findCall(tx.Calls, `insert into "gate_report"`)
		if samples := ins.Args[4].([]float64); samples == nil {
			t.Errorf("samples is null: %v", ins.Args[4])
		}
	})

	t.Run("it reports missing for an unknown rollout", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`insert into "gate_report"`).
			Fails(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation})

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.New(pool)
		err := testee.AddGateReport(ctx, "no-such-rollout", report)
		if !errors.Is(err, domerrors.ErrMissing) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
