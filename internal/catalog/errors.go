package catalog

import "errors"

// ErrNotFound indicates no catalog row for the requested id.
var ErrNotFound = errors.New("item not in catalog")
