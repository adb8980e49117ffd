package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	kpool "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	kpgerr "github.com/taskflow-dev/tugboat/pkg/domain/errors/dberrors/postgres"
	kpgintr "github.com/taskflow-dev/tugboat/pkg/domain/internal/db/postgres"
	kdb "github.com/taskflow-dev/tugboat/pkg/domain/release/db"
	"github.com/taskflow-dev/tugboat/pkg/utils/slices"
)

type pgRelease struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.ReleaseInterface {
	return &pgRelease{pool: pool}
}

func (r *pgRelease) New(ctx context.Context, spec domain.Release) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var releaseId string
	if err := tx.QueryRow(
		ctx,
		`
		insert into "release" ("app_name", "image", "strategy", "timeout_ms")
		values ($1, $2, $3::strategy, $4)
		returning "release_id"
		`,
		spec.AppName, spec.Image, string(spec.Strategy), spec.Timeout.Milliseconds(),
	).Scan(&releaseId); err != nil {
		if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
			if pgerr.Code == pgerrcode.ForeignKeyViolation {
				return "", kpgerr.Missing{
					Table:    "app",
					Identity: fmt.Sprintf(`name = "%s"`, spec.AppName),
				}
			}
		}
		return "", err
	}

	// deterministic insert order keeps deadlocks away when releases race.
	keys := slices.Sorted(
		slices.KeysOf(spec.Config),
		func(a, b string) bool { return a < b },
	)
	for _, key := range keys {
		if _, err := tx.Exec(
			ctx,
			`insert into "release_config" ("release_id", "key", "value") values ($1, $2, $3)`,
			releaseId, key, spec.Config[key],
		); err != nil {
			return "", err
		}
	}

	for _, gate := range spec.Gates {
		if _, err := tx.Exec(
			ctx,
			`insert into "release_gate" ("release_id", "kind") values ($1, $2::gateKind)`,
			releaseId, string(gate),
		); err != nil {
			return "", err
		}
	}

	for index, phase := range spec.CanaryPlan {
		if _, err := tx.Exec(
			ctx,
			`
			insert into "canary_phase" ("release_id", "index", "percent", "window_ms")
			values ($1, $2, $3, $4)
			`,
			releaseId, index, phase.Percent, phase.Window.Milliseconds(),
		); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return releaseId, nil
}

func (r *pgRelease) Get(ctx context.Context, releaseIds []string) (map[string]domain.Release, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	return kpgintr.GetRelease(ctx, tx, releaseIds)
}

func (r *pgRelease) Find(ctx context.Context, query domain.ReleaseFindQuery) ([]string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(
		ctx,
		`
		select "release_id" from "release"
		where
			(cardinality($1::varchar[]) = 0 or "app_name" = any($1))
			and ($2::timestamp with time zone is null or $2 <= "created_at")
		order by "created_at", "release_id"
		`,
		query.AppName, query.Since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	releaseIds := []string{}
	for rows.Next() {
		var releaseId string
		if err := rows.Scan(&releaseId); err != nil {
			return nil, err
		}
		releaseIds = append(releaseIds, releaseId)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return releaseIds, nil
}
