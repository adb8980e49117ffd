// Package errors declares error categories shared across storage backends.
package errors

import "errors"

// requested record does not exist.
var ErrMissing = errors.New("missing")

// more records than expected are found.
var ErrTooMuch = errors.New("too much")

// the requested change collides with existing state.
var ErrConflict = errors.New("conflict")
