package config

import "errors"

// Sentinel errors for configuration values.
var (
	// ErrUnknownKey indicates a key outside the supported set.
	ErrUnknownKey = errors.New("unknown config key")

	// ErrInvalidValue indicates a value that fails validation for its key.
	ErrInvalidValue = errors.New("invalid config value")

	// ErrNotDirectory indicates the data dir path exists but is a file.
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotWritable indicates the data dir cannot be written to.
	ErrNotWritable = errors.New("directory is not writable")
)
