package postgres

import (
	"cmp"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	kpool "github.com/taskflow-dev/tugboat/pkg/conn/db/postgres/pool"
	schemadb "github.com/taskflow-dev/tugboat/pkg/domain/schema/db"
)

//go:embed repository
var repository embed.FS

// serializes concurrent Upgrade against the same database. "tug" in ASCII.
const upgradeLockKey = 0x747567

type pgSchema struct {
	pool kpool.Pool
	repo fs.FS
}

var _ schemadb.SchemaInterface = &pgSchema{}

// New creates a Schema over the migrations compiled into this binary.
func New(pool kpool.Pool) *pgSchema {
	sub, err := fs.Sub(repository, "repository")
	if err != nil {
		panic(err)
	}
	return Over(pool, sub)
}

// Over creates a Schema over an arbitrary migration tree.
//
// The tree holds one directory per version, named by the version number,
// each containing the .sql files of that version.
func Over(pool kpool.Pool, repo fs.FS) *pgSchema {
	return &pgSchema{pool: pool, repo: repo}
}

type version struct {
	Version int
	Root    string
}

func (v version) Apply(ctx context.Context, conn kpool.Queryer, repo fs.FS) error {
	return fs.WalkDir(repo, v.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".sql") {
			return nil
		}

		query, err := fs.ReadFile(repo, path)
		if err != nil {
			return err
		}

		if _, err := conn.Exec(ctx, string(query)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", path, err)
		}
		return nil
	})
}

func (s *pgSchema) Version(ctx context.Context) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return -1, err
	}
	defer tx.Rollback(ctx)

	return s.version(ctx, tx)
}

func (s *pgSchema) version(ctx context.Context, conn kpool.Queryer) (int, error) {
	var version int
	if err := conn.QueryRow(
		ctx, `SELECT coalesce(max("version"), 0) FROM "schema_version"`,
	).Scan(&version); err != nil {
		if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
			if pgerr.Code == pgerrcode.UndefinedTable {
				return 0, nil
			}
		}
		return -1, err
	}

	return version, nil
}

func (s *pgSchema) Upgrade(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(
		ctx, `SELECT pg_advisory_xact_lock($1)`, int64(upgradeLockKey),
	); err != nil {
		return err
	}

	schemaVersions, err := s.versions()
	if err != nil {
		return err
	}

	currentVersion, err := s.version(ctx, tx)
	if err != nil {
		return err
	}

	for _, v := range schemaVersions {
		if v.Version <= currentVersion {
			continue
		}
		if err := v.Apply(ctx, tx, s.repo); err != nil {
			return err
		}
		if _, err := tx.Exec(
			ctx, `DELETE FROM "schema_version"`,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(
			ctx,
			`INSERT INTO "schema_version" ("version") VALUES ($1)`,
			v.Version,
		); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	return nil
}

func (s *pgSchema) Check(ctx context.Context) error {
	schemaVersions, err := s.versions()
	if err != nil {
		return err
	}
	latest := 0
	for _, v := range schemaVersions {
		if latest < v.Version {
			latest = v.Version
		}
	}

	currentVersion, err := s.Version(ctx)
	if err != nil {
		return err
	}

	if currentVersion < latest {
		return fmt.Errorf(
			"%w: %d (in database) < %d (in binary)",
			schemadb.ErrSchemaOutdated, currentVersion, latest,
		)
	}
	if latest < currentVersion {
		return fmt.Errorf(
			"%w: %d (in binary) < %d (in database)",
			schemadb.ErrSchemaAhead, latest, currentVersion,
		)
	}
	return nil
}

// versions lookup the schema versions in the migration tree.
//
// # Returns
//
// - []version: The list of schema versions, sorted by version number.
//
// - error: The error if any.
func (s *pgSchema) versions() ([]version, error) {
	dir, err := fs.ReadDir(s.repo, ".")
	if err != nil {
		return nil, err
	}

	schemaVersions := make([]version, 0, len(dir))
	for _, entry := range dir {
		if !entry.IsDir() {
			continue
		}

		v, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		schemaVersions = append(schemaVersions, version{
			Version: v,
			Root:    entry.Name(),
		})
	}
	slices.SortFunc(
		schemaVersions,
		func(i, j version) int { return cmp.Compare(i.Version, j.Version) },
	)

	return schemaVersions, nil
}
