package db

import (
	"context"

	"github.com/taskflow-dev/tugboat/pkg/domain"
)

type ReleaseInterface interface {
	// New persists a release spec.
	//
	// The id, empty in the spec, is assigned by the database.
	//
	// Return
	//
	// - string: id of the new release.
	//
	// - error: Missing when the app of the release is not registered.
	New(ctx context.Context, spec domain.Release) (string, error)

	// Get returns releases by id, config, gates and canary plan included.
	//
	// Ids hitting no release are simply absent from the result.
	Get(ctx context.Context, releaseIds []string) (map[string]domain.Release, error)

	// Find returns ids of releases matching query, oldest first.
	Find(ctx context.Context, query domain.ReleaseFindQuery) ([]string, error)
}
