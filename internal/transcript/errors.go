package transcript

import "errors"

// ErrInvalid indicates a transcript row violates ordering or duration rules.
var ErrInvalid = errors.New("invalid transcript")

// ErrMalformed indicates a transcript file that cannot be parsed.
var ErrMalformed = errors.New("malformed transcript file")
