package db

import (
	"context"

	"github.com/taskflow-dev/tugboat/pkg/domain"
)

type AppInterface interface {
	// Register creates a new app.
	//
	// Return
	//
	// - domain.App: the app as stored, timestamps filled.
	//
	// - error: Conflict when the name is taken already.
	Register(ctx context.Context, spec domain.App) (domain.App, error)

	// Get returns apps by name.
	//
	// Names hitting no app are simply absent from the result.
	Get(ctx context.Context, names []string) (map[string]domain.App, error)

	// Find returns names of apps matching query, sorted by name.
	Find(ctx context.Context, query domain.AppFindQuery) ([]string, error)

	// UpdateSpec overwrites the mutable spec of an app.
	//
	// The active color and timestamps are not touched;
	// updated_at is bumped by the store.
	//
	// Return
	//
	// - domain.App: the app as stored after the update.
	//
	// - error: Missing when no app has the name.
	UpdateSpec(ctx context.Context, spec domain.App) (domain.App, error)

	// SetActiveColor records the slot now receiving traffic.
	//
	// Return
	//
	// - error: Missing when no app has the name.
	SetActiveColor(ctx context.Context, name string, color domain.Color) error

	// Delete removes an app, its releases and rollouts,
	// and records the given cluster objects as garbage.
	//
	// Return
	//
	// - error: Missing when no app has the name.
	// Conflict when the app has a rollout in progress.
	Delete(ctx context.Context, name string, garbage []domain.Garbage) error
}
