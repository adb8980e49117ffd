package postgres

import (
	"context"

	kpool "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool"
	types "github.com/taskflow-dev/tugboat/pkg/domain"
	kgarbage "github.com/taskflow-dev/tugboat/pkg/domain/garbage/db"
)

type pgGarbage struct {
	pool kpool.Pool
}

func New(pool kpool.Pool) kgarbage.GarbageInterface {
	return &pgGarbage{pool: pool}
}

func (g *pgGarbage) Add(ctx context.Context, gs ...types.Garbage) error {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, item := range gs {
		if _, err := tx.Exec(
			ctx,
			`
			insert into "garbage" ("namespace", "kind", "name")
			values ($1, $2::garbageKind, $3)
			on conflict do nothing
			`,
			item.Namespace, string(item.Kind), item.Name,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (g *pgGarbage) Pop(ctx context.Context, callback func(types.Garbage) error) (bool, error) {
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	// pop a record from garbage table
	rows, err := tx.Query(
		ctx,
		`
		with "picked" as (
			select "namespace", "kind", "name" from "garbage"
			limit 1 for update skip locked
		),
		"del_garbage" as (
			delete from "garbage"
			where ("namespace", "kind", "name") in (
				select "namespace", "kind", "name" from "picked"
			)
		)
		select "namespace", "kind", "name" from "picked"
		`,
	)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var namespace string
	var kind string
	var name string
	pop := false
	for rows.Next() {
		err = rows.Scan(&namespace, &kind, &name)
		if err != nil {
			return false, err
		}
		pop = true
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	if pop && callback != nil {
		garbageKind, err := types.AsGarbageKind(kind)
		if err != nil {
			return false, err
		}
		if err := callback(types.Garbage{
			Namespace: namespace, Kind: garbageKind, Name: name,
		}); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	return pop, nil
}
