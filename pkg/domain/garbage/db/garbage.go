package db

import (
	"context"

	"github.com/taskflow-dev/tugboat/pkg/domain"
)

type GarbageInterface interface {
	// Add records cluster objects to be destroyed later.
	//
	// Records which exist already are left as they are,
	// so recording the same residue twice is harmless.
	Add(ctx context.Context, gs ...domain.Garbage) error

	// pop a garbage item.
	//
	// Args
	//
	// - context.Context
	//
	// - func(Garbage) error: handler with the popped item.
	//   If this handler returns error, the popped item will be rolled back.
	//   Otherwise, the popped garbage will be removed from DB.
	//
	// Return
	//
	// - bool: if an item is popped
	//
	// - error
	Pop(context.Context, func(domain.Garbage) error) (bool, error)
}
