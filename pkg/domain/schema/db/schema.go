package db

import (
	"context"
	"errors"
)

var (
	// the schema in the database is older than the migrations this binary carries.
	ErrSchemaOutdated = errors.New("database schema is outdated")

	// the schema in the database is newer than the migrations this binary carries.
	ErrSchemaAhead = errors.New("database schema is ahead")
)

// SchemaInterface represents a database schema.
type SchemaInterface interface {
	// Upgrade upgrades the schema to the latest version this binary carries.
	Upgrade(ctx context.Context) error

	// Version returns the current version of the schema in the database.
	//
	// Version is 0 when the database has no schema yet.
	Version(ctx context.Context) (int, error)

	// Check verifies that the schema in the database matches
	// the migrations this binary carries.
	//
	// Returns
	//
	// - nil: when they match.
	//
	// - error wrapping ErrSchemaOutdated: when the database is behind.
	// Run Upgrade first.
	//
	// - error wrapping ErrSchemaAhead: when the database is ahead.
	// This binary is too old for the database.
	Check(ctx context.Context) error
}
