package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	kpool "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool"
	"github.com/taskflow-dev/tugboat/pkg/domain"
	kdb "github.com/taskflow-dev/tugboat/pkg/domain/app/db"
	kpgerr "github.com/taskflow-dev/tugboat/pkg/domain/errors/dberrors/postgres"
	kpgintr "github.com/taskflow-dev/tugboat/pkg/domain/internal/db/postgres"
	"github.com/taskflow-dev/tugboat/pkg/utils/slices"
)

type pgApp struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kdb.AppInterface {
	return &pgApp{pool: pool}
}

func (a *pgApp) Register(ctx context.Context, spec domain.App) (domain.App, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return domain.App{}, err
	}
	defer tx.Rollback(ctx)

	var ingressHost *string
	ingressTLS := false
	if spec.Ingress != nil {
		ingressHost = &spec.Ingress.Host
		ingressTLS = spec.Ingress.TLS
	}
	var storageSize *string
	if spec.Storage != nil {
		storageSize = &spec.Storage.Size
	}
	activeColor := spec.ActiveColor
	if !activeColor.IsKnown() {
		activeColor = domain.Blue
	}

	if _, err := tx.Exec(
		ctx,
		`
		insert into "app" (
			"name", "env", "namespace", "replicas",
			"cpu_request", "memory_request", "cpu_limit", "memory_limit",
			"ingress_host", "ingress_tls", "storage_size",
			"monitoring", "active_color"
		)
		values ($1, $2::env, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13::color)
		`,
		spec.Name, string(spec.Env), spec.Namespace, spec.Replicas,
		spec.Resources.CPURequest, spec.Resources.MemoryRequest,
		spec.Resources.CPULimit, spec.Resources.MemoryLimit,
		ingressHost, ingressTLS, storageSize,
		spec.Monitoring, string(activeColor),
	); err != nil {
		if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
			if pgerr.Code == pgerrcode.UniqueViolation {
				return domain.App{}, kpgerr.Conflict{
					Table:  "app",
					Reason: fmt.Sprintf(`app "%s" is registered already`, spec.Name),
				}
			}
		}
		return domain.App{}, err
	}

	stored, err := kpgintr.GetApp(ctx, tx, []string{spec.Name})
	if err != nil {
		return domain.App{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.App{}, err
	}
	return stored[spec.Name], nil
}

func (a *pgApp) Get(ctx context.Context, names []string) (map[string]domain.App, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	return kpgintr.GetApp(ctx, tx, names)
}

func (a *pgApp) Find(ctx context.Context, query domain.AppFindQuery) ([]string, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(
		ctx,
		`
		select "name" from "app"
		where
			(cardinality($1::varchar[]) = 0 or "name" = any($1))
			and (cardinality($2::env[]) = 0 or "env" = any($2))
		order by "name"
		`,
		query.Name,
		slices.Map(query.Env, domain.Env.String),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

func (a *pgApp) UpdateSpec(ctx context.Context, spec domain.App) (domain.App, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return domain.App{}, err
	}
	defer tx.Rollback(ctx)

	var ingressHost *string
	ingressTLS := false
	if spec.Ingress != nil {
		ingressHost = &spec.Ingress.Host
		ingressTLS = spec.Ingress.TLS
	}
	var storageSize *string
	if spec.Storage != nil {
		storageSize = &spec.Storage.Size
	}

	cmd, err := tx.Exec(
		ctx,
		`
		update "app" set
			"env" = $2::env, "namespace" = $3, "replicas" = $4,
			"cpu_request" = $5, "memory_request" = $6,
			"cpu_limit" = $7, "memory_limit" = $8,
			"ingress_host" = $9, "ingress_tls" = $10, "storage_size" = $11,
			"monitoring" = $12,
			"updated_at" = now()
		where "name" = $1
		`,
		spec.Name, string(spec.Env), spec.Namespace, spec.Replicas,
		spec.Resources.CPURequest, spec.Resources.MemoryRequest,
		spec.Resources.CPULimit, spec.Resources.MemoryLimit,
		ingressHost, ingressTLS, storageSize,
		spec.Monitoring,
	)
	if err != nil {
		return domain.App{}, err
	}
	if cmd.RowsAffected() == 0 {
		return domain.App{}, kpgerr.Missing{
			Table: "app", Identity: fmt.Sprintf(`name = "%s"`, spec.Name),
		}
	}

	stored, err := kpgintr.GetApp(ctx, tx, []string{spec.Name})
	if err != nil {
		return domain.App{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.App{}, err
	}
	return stored[spec.Name], nil
}

func (a *pgApp) SetActiveColor(ctx context.Context, name string, color domain.Color) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(
		ctx,
		`
		update "app" set "active_color" = $2::color, "updated_at" = now()
		where "name" = $1
		`,
		name, string(color),
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return kpgerr.Missing{
			Table: "app", Identity: fmt.Sprintf(`name = "%s"`, name),
		}
	}

	return tx.Commit(ctx)
}

func (a *pgApp) Delete(ctx context.Context, name string, garbage []domain.Garbage) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	{
		var locked string
		if err := tx.QueryRow(
			ctx, `select "name" from "app" where "name" = $1 for update`, name,
		).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return kpgerr.Missing{
					Table: "app", Identity: fmt.Sprintf(`name = "%s"`, name),
				}
			}
			return err
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
			name, slices.Map(active, domain.RolloutStatus.String),
		).Scan(&count); err != nil {
			return err
		}
		if 0 < count {
			return kpgerr.Conflict{
				Table:  "rollout",
				Reason: fmt.Sprintf(`app "%s" has a rollout in progress`, name),
			}
		}
	}

	for _, g := range garbage {
		if _, err := tx.Exec(
			ctx,
			`
			insert into "garbage" ("namespace", "kind", "name")
			values ($1, $2::garbageKind, $3)
			on conflict do nothing
			`,
			g.Namespace, string(g.Kind), g.Name,
		); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		ctx, `delete from "app" where "name" = $1`, name,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
