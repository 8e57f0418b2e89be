package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

var (
	// ErrInvalidFlag indicates a flag value outside its accepted range.
	ErrInvalidFlag = errors.New("invalid flag value")

	// ErrNothingToDelete indicates delete found neither a catalog row nor files.
	ErrNothingToDelete = errors.New("nothing to delete")
)
