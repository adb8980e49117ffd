package postgres_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	kpgmock "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool/mock"
	schemadb "github.com/taskflow-dev/tugboat/pkg/domain/schema/db"
	"github.com/taskflow-dev/tugboat/pkg/domain/schema/db/postgres"
)

func repo() fstest.MapFS {
	return fstest.MapFS{
		"1/00_first.sql":  {Data: []byte(`create table "one" ()`)},
		"1/01_second.sql": {Data: []byte(`create table "two" ()`)},
		"2/00_more.sql":   {Data: []byte(`create table "three" ()`)},
	}
}

func undefinedTable() *pgconn.PgError {
	return &pgconn.PgError{Code: pgerrcode.UndefinedTable}
}

func TestUpgrade(t *testing.T) {
	ctx := context.Background()

	t.Run("it applies all versions to an empty database, in order", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`pg_advisory_xact_lock`)
		tx.On(`coalesce(max("version"), 0)`).Fails(undefinedTable())
		tx.On(`create table`)
		tx.On(`DELETE FROM "schema_version"`)
		tx.On(`INSERT INTO "schema_version"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.Over(pool, repo())
		if err := testee.Upgrade(ctx); err != nil {
			t.Fatalf("upgrade failed: %v", err)
		}
		if !tx.Committed {
			t.Error("upgrade did not commit")
		}

		if !strings.Contains(tx.Calls[0].SQL, "pg_advisory_xact_lock") {
			t.Errorf("first statement is not the upgrade lock: %s", tx.Calls[0].SQL)
		}

		applied := []string{}
		versions := []interface{}{}
		for _, c := range tx.Calls {
			if strings.HasPrefix(c.SQL, "create table") {
				applied = append(applied, c.SQL)
			}
			if strings.Contains(c.SQL, "INSERT INTO") {
				versions = append(versions, c.Args[0])
			}
		}
		wantApplied := []string{
			`create table "one" ()`,
			`create table "two" ()`,
			`create table "three" ()`,
		}
		if len(applied) != len(wantApplied) {
			t.Fatalf("applied statements: got %v, want %v", applied, wantApplied)
		}
		for i := range wantApplied {
			if applied[i] != wantApplied[i] {
				t.Errorf("applied[%d]: got %s, want %s", i, applied[i], wantApplied[i])
			}
		}
		if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
			t.Errorf("recorded versions: got %v, want [1 2]", versions)
		}
	})

	t.Run("it skips versions at or below the current one", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`pg_advisory_xact_lock`)
		tx.On(`coalesce(max("version"), 0)`).
			Returns(kpgmock.NewRows("version").Add(1))
		tx.On(`create table "three"`)
		tx.On(`DELETE FROM "schema_version"`)
		tx.On(`INSERT INTO "schema_version"`)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.Over(pool, repo())
		if err := testee.Upgrade(ctx); err != nil {
			t.Fatalf("upgrade failed: %v", err)
		}

		for _, c := range tx.Calls {
			if strings.Contains(c.SQL, `"one"`) || strings.Contains(c.SQL, `"two"`) {
				t.Errorf("version 1 was applied again: %s", c.SQL)
			}
		}
		found := false
		for _, c := range tx.Calls {
			if strings.Contains(c.SQL, `"three"`) {
				found = true
			}
		}
		if !found {
			t.Error("version 2 was not applied")
		}
	})

	t.Run("it does not commit when a migration fails", func(t *testing.T) {
		wantErr := errors.New("fake sql error")

		tx := kpgmock.NewTx()
		tx.On(`pg_advisory_xact_lock`)
		tx.On(`coalesce(max("version"), 0)`).Fails(undefinedTable())
		tx.On(`create table "one"`).Fails(wantErr)

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.Over(pool, repo())
		err := testee.Upgrade(ctx)
		if !errors.Is(err, wantErr) {
			t.Fatalf("unexpected error: %v", err)
		}
		if tx.Committed {
			t.Error("failed upgrade committed")
		}
		if !tx.RolledBack {
			t.Error("failed upgrade did not roll back")
		}
	})
}

func TestVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("it reads 0 from a database without schema", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`coalesce(max("version"), 0)`).Fails(undefinedTable())

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.Over(pool, repo())
		version, err := testee.Version(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if version != 0 {
			t.Errorf("version: got %d, want 0", version)
		}
	})

	t.Run("it reads the recorded version", func(t *testing.T) {
		tx := kpgmock.NewTx()
		tx.On(`coalesce(max("version"), 0)`).
			Returns(kpgmock.NewRows("version").Add(2))

		pool := kpgmock.NewPool()
		pool.NextBegin.Tx = tx

		testee := postgres.Over(pool, repo())
		version, err := testee.Version(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if version != 2 {
			t.Errorf("version: got %d, want 2", version)
		}
	})
}

func TestCheck(t *testing.T) {
	ctx := context.Background()

	for name, testcase := range map[string]struct {
		recorded int
		wantErr  error
	}{
		"when the database is behind, it reports ErrSchemaOutdated": {
			recorded: 1, wantErr: schemadb.ErrSchemaOutdated,
		},
		"when the database is ahead, it reports ErrSchemaAhead": {
			recorded: 3, wantErr: schemadb.ErrSchemaAhead,
		},
		"when versions match, it passes": {
			recorded: 2, wantErr: nil,
		},
	} {
		t.Run(name, func(t *testing.T) {
			tx := kpgmock.NewTx()
			tx.On(`coalesce(max("version"), 0)`).
				Returns(kpgmock.NewRows("version").Add(testcase.recorded))

			pool := kpgmock.NewPool()
			pool.NextBegin.Tx = tx

			testee := postgres.Over(pool, repo())
			err := testee.Check(ctx)
			if testcase.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, testcase.wantErr) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
