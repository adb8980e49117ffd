package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	tpool "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool"
	tapp "github.com/taskflow-dev/tugboat/pkg/domain/app/db"
	tpgapp "github.com/taskflow-dev/tugboat/pkg/domain/app/db/postgres"
	tgarbage "github.com/taskflow-dev/tugboat/pkg/domain/garbage/db"
	tpggbg "github.com/taskflow-dev/tugboat/pkg/domain/garbage/db/postgres"
	tkeychain "github.com/taskflow-dev/tugboat/pkg/domain/keychain/db"
	tpgkeychain "github.com/taskflow-dev/tugboat/pkg/domain/keychain/db/postgres"
	trelease "github.com/taskflow-dev/tugboat/pkg/domain/release/db"
	tpgrelease "github.com/taskflow-dev/tugboat/pkg/domain/release/db/postgres"
	trollout "github.com/taskflow-dev/tugboat/pkg/domain/rollout/db"
	tpgrollout "github.com/taskflow-dev/tugboat/pkg/domain/rollout/db/postgres"
	tschema "github.com/taskflow-dev/tugboat/pkg/domain/schema/db"
	tpgschema "github.com/taskflow-dev/tugboat/pkg/domain/schema/db/postgres"
	dbInterface "github.com/taskflow-dev/tugboat/pkg/domain/tugboat/db"
	xe "github.com/taskflow-dev/tugboat/pkg/errors"
)

type tugDBPostgres struct {
	pool     *pgxpool.Pool
	app      tapp.AppInterface
	release  trelease.ReleaseInterface
	rollout  trollout.RolloutInterface
	garbage  tgarbage.GarbageInterface
	schema   tschema.SchemaInterface
	keychain tkeychain.KeychainInterface
}

func New(ctx context.Context, url string) (dbInterface.TugDatabase, error) {
	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	p := tpool.Wrap(pool)

	return &tugDBPostgres{
		pool:     pool,
		app:      tpgapp.New(p),
		release:  tpgrelease.New(p),
		rollout:  tpgrollout.New(p),
		garbage:  tpggbg.New(p),
		schema:   tpgschema.New(p),
		keychain: tpgkeychain.New(p),
	}, nil
}

func (t *tugDBPostgres) App() tapp.AppInterface {
	return t.app
}

func (t *tugDBPostgres) Release() trelease.ReleaseInterface {
	return t.release
}

func (t *tugDBPostgres) Rollout() trollout.RolloutInterface {
	return t.rollout
}

func (t *tugDBPostgres) Garbage() tgarbage.GarbageInterface {
	return t.garbage
}

func (t *tugDBPostgres) Schema() tschema.SchemaInterface {
	return t.schema
}

func (t *tugDBPostgres) Keychain() tkeychain.KeychainInterface {
	return t.keychain
}

func (t *tugDBPostgres) Close() error {
	t.pool.Close()
	return nil
}
