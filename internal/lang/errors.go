package lang

import "errors"

// ErrInvalid indicates an invalid language code was specified.
var ErrInvalid = errors.New("invalid language code")
