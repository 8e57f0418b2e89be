package media

import "errors"

// ErrNotFound indicates a requested artifact is absent.
// It is a normal control-flow signal for idempotence checks, not a failure.
var ErrNotFound = errors.New("artifact not found")

// ErrInvalidID indicates an item id that cannot be mapped to a safe path.
var ErrInvalidID = errors.New("invalid item id")
