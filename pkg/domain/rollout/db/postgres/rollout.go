package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	kpool "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	kpgerr "github.com/taskflow-dev/tugboat/pkg/domain/errors/dberrors/postgres"
	kpgintr "github.com/taskflow-dev/tugboat/pkg/domain/internal/db/postgres"
	kdb "github.com/taskflow-dev/tugboat/pkg/domain/rollout/db"
	"github.com/taskflow-dev/tugboat/pkg/utils/slices"
)

type pgRollout struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.RolloutInterface {
	return &pgRollout{pool: pool}
}

func (m *pgRollout) New(ctx context.Context, releaseId string) (string, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var appName string
	var strategy domain.Strategy
	{
		var _strategy string
		if err := tx.QueryRow(
			ctx,
			`select "app_name", "strategy" from "release" where "release_id" = $1`,
			releaseId,
		).Scan(&appName, &_strategy); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", kpgerr.Missing{
					Table:    "release",
					Identity: fmt.Sprintf("release_id = %s", releaseId),
				}
			}
			return "", err
		}
		if strategy, err = domain.AsStrategy(_strategy); err != nil {
			return "", err
		}
	}

	// lock the app row so that rollouts for one app are accepted one by one.
	var activeColor domain.Color
	{
		var _color string
		if err := tx.QueryRow(
			ctx,
			`select "active_color" from "app" where "name" = $1 for update`,
			appName,
		).Scan(&_color); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", kpgerr.Missing{
					Table:    "app",
					Identity: fmt.Sprintf(`name = "%s"`, appName),
				}
			}
			return "", err
		}
		if activeColor, err = domain.AsColor(_color); err != nil {
			return "", err
		}
	}

	{
		active := append([]domain.RolloutStatus{domain.Waiting}, domain.StatusesInProgress()...)
		var count int
		if err := tx.QueryRow(
			ctx,
			`
			select count(*) from "rollout"
			inner join "release" using ("release_id")
			where "app_name" = $1 and "status" = any($2::rolloutStatus[])
			`,
			appName, slices.Map(active, domain.RolloutStatus.String),
		).Scan(&count); err != nil {
			return "", err
		}
		if 0 < count {
			return "", kpgerr.Conflict{
				Table:  "rollout",
				Reason: fmt.Sprintf(`app "%s" has a rollout not finished yet`, appName),
			}
		}
	}

	targetColor := activeColor.Other()
	if strategy == domain.Rolling {
		// rolling updates rewrite the live slot in place.
		targetColor = activeColor
	}

	var rolloutId string
	if err := tx.QueryRow(
		ctx,
		`
		insert into "rollout" ("release_id", "target_color")
		values ($1, $2::color)
		returning "rollout_id"
		`,
		releaseId, targetColor.String(),
	).Scan(&rolloutId); err != nil {
		return "", err
	}

	if _, err := tx.Exec(
		ctx,
		`
		insert into "rollout_status_history" ("rollout_id", "status", "note")
		values ($1, $2::rolloutStatus, 'accepted')
		`,
		rolloutId, domain.Waiting.String(),
	); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return rolloutId, nil
}

func (m *pgRollout) Get(ctx context.Context, rolloutIds []string) (map[string]domain.Rollout, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	return kpgintr.GetRollout(ctx, tx, rolloutIds)
}

func (m *pgRollout) Find(ctx context.Context, query domain.RolloutFindQuery) ([]string, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(
		ctx,
		`
		select "rollout_id" from "rollout"
		inner join "release" using ("release_id")
		where
			(cardinality($1::varchar[]) = 0 or "app_name" = any($1))
			and (cardinality($2::varchar[]) = 0 or "release_id" = any($2))
			and (cardinality($3::rolloutStatus[]) = 0 or "status" = any($3))
			and ($4::timestamp with time zone is null or $4 <= "rollout"."updated_at")
			and ($5::timestamp with time zone is null or "rollout"."updated_at" < $5)
		order by "rollout"."updated_at", "rollout_id"
		`,
		query.AppName,
		query.ReleaseId,
		slices.Map(query.Status, domain.RolloutStatus.String),
		query.UpdatedSince,
		query.UpdatedUntil,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rolloutIds := []string{}
	for rows.Next() {
		var rolloutId string
		if err := rows.Scan(&rolloutId); err != nil {
			return nil, err
		}
		rolloutIds = append(rolloutIds, rolloutId)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rolloutIds, nil
}

// select the rollout which satisfies the specified condition, and advance it with task.
func (m *pgRollout) PickAndAdvance(
	ctx context.Context,
	cursor domain.RolloutCursor,
	task func(r domain.Rollout) (domain.RolloutStatus, error),
) (domain.RolloutCursor, error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return cursor, err
	}
	defer tx.Rollback(ctx)

	var rollout domain.Rollout
	{
		var rolloutId string
		if err := tx.QueryRow(
			ctx,
			`
			select "rollout_id" from "rollout"
			where
				"status" = any($1::rolloutStatus[])
				and "lifecycle_suspend_until" < now()
			order by "rollout_id" <= $2, "rollout_id"
			limit 1
			for no key update skip locked
			`,
			slices.Map(cursor.Status, domain.RolloutStatus.String),
			cursor.Head,
		).Scan(&rolloutId); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return cursor, nil
			}
			return cursor, err
		}

		r, err := kpgintr.GetRollout(ctx, tx, []string{rolloutId})
		if err != nil {
			return cursor, err
		}
		rollout = r[rolloutId]

		// cursor is moved!
		cursor = domain.RolloutCursor{
			Head:     rolloutId,
			Status:   cursor.Status,
			Debounce: cursor.Debounce,
		}
	}

	// exec task() and get its result.
	newStatus, taskErr := task(rollout)
	if taskErr != nil {
		if errors.Is(taskErr, context.Canceled) || errors.Is(taskErr, context.DeadlineExceeded) {
			return cursor, taskErr
		}

		// record the failure as the cause, and leave the rollback to the abort flow.
		if err := m.setStatus(
			ctx, tx, rollout.Id, domain.Aborting, taskErr.Error(), cursor.Debounce,
		); err != nil {
			return cursor, err
		}
		if err := tx.Commit(ctx); err != nil {
			return cursor, err
		}
		return cursor, taskErr
	}

	// according to the result above, reflect the new status to the database.
	if err := m.setStatus(ctx, tx, rollout.Id, newStatus, "", cursor.Debounce); err != nil {
		return cursor, err
	}
	// commit the transaction
	if err := tx.Commit(ctx); err != nil {
		return cursor, err
	}
	return cursor, nil
}

func (m *pgRollout) setStatus(
	ctx context.Context, tx kpool.Tx, rolloutId string,
	newStatus domain.RolloutStatus, note string, debounceIfNotChanged time.Duration,
) error {
	var current domain.RolloutStatus
	{
		var _current string
		if err := tx.QueryRow(
			ctx,
			`select "status" from "rollout" where "rollout_id" = $1 for update`,
			rolloutId,
		).Scan(&_current); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return kpgerr.Missing{
					Table:    "rollout",
					Identity: fmt.Sprintf("rollout_id = %s", rolloutId),
				}
			}
			return err
		}
		var err error
		if current, err = domain.AsRolloutStatus(_current); err != nil {
			return err
		}
	}

	if current.IsTerminal() {
		return domain.NewErrInvalidStatusTransition(current, newStatus)
	}

	if current == newStatus {
		if _, err := tx.Exec(
			ctx,
			`
			update "rollout" set
				"lifecycle_suspend_until" = now() + $1
			where "rollout_id" = $2
			`,
			debounceIfNotChanged, rolloutId,
		); err != nil {
			return err
		}

		return nil
	}

	if err := domain.ValidateStatusTransition(current, newStatus); err != nil {
		return err
	}

	cause := ""
	switch newStatus {
	case domain.Aborting, domain.Failed:
		cause = note
	}

	cmd, err := tx.Exec(
		ctx,
		`
		update "rollout" set
			"status" = $1::rolloutStatus,
			"cause" = coalesce(nullif($2, ''), "cause"),
			"updated_at" = now(),
			"lifecycle_suspend_until" = now()
		where "rollout_id" = $3
		`,
		newStatus.String(), cause, rolloutId,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return kpgerr.Missing{
			Table:    "rollout",
			Identity: fmt.Sprintf("updating rollout_id = %s", rolloutId),
		}
	}

	if _, err := tx.Exec(
		ctx,
		`
		insert into "rollout_status_history" ("rollout_id", "status", "note")
		values ($1, $2::rolloutStatus, $3)
		`,
		rolloutId, newStatus.String(), note,
	); err != nil {
		return err
	}

	return nil
}

func (m *pgRollout) SetStatus(
	ctx context.Context, rolloutId string, newStatus domain.RolloutStatus, note string,
) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := m.setStatus(ctx, tx, rolloutId, newStatus, note, 0); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (m *pgRollout) SetPhase(ctx context.Context, rolloutId string, phase int) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(
		ctx,
		`
		update "rollout" set
			"phase" = $1,
			"updated_at" = now()
		where "rollout_id" = $2
		`,
		phase, rolloutId,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return kpgerr.Missing{
			Table:    "rollout",
			Identity: fmt.Sprintf("rollout_id = %s", rolloutId),
		}
	}

	return tx.Commit(ctx)
}

func (m *pgRollout) AddGateReport(ctx context.Context, rolloutId string, report domain.GateReport) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	samples := report.Samples
	if samples == nil {
		samples = []float64{}
	}

	if _, err := tx.Exec(
		ctx,
		`
		insert into "gate_report"
			("rollout_id", "kind", "outcome", "summary", "samples", "threshold")
		values
			($1, $2::gateKind, $3::gateOutcome, $4, $5, $6)
		`,
		rolloutId, report.Kind.String(), string(report.Outcome),
		report.Summary, samples, report.Threshold,
	); err != nil {
		if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
			if pgerr.Code == pgerrcode.ForeignKeyViolation {
				return kpgerr.Missing{
					Table:    "rollout",
					Identity: fmt.Sprintf("rollout_id = %s", rolloutId),
				}
			}
		}
		return err
	}

	return tx.Commit(ctx)
}

var _ kdb.RolloutInterface = &pgRollout{}
