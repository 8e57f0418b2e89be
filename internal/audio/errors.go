package audio

import "errors"

// ErrDecode indicates the source audio is unreadable or corrupt.
// It is fatal for the item: retrying the same input will fail again.
var ErrDecode = errors.New("cannot decode audio")

// ErrEncode indicates writing the target codec failed (disk full, killed encoder).
// The source is intact, so the operation can be retried.
var ErrEncode = errors.New("cannot encode audio")

// ErrSplit indicates a chunk or segment export failed.
var ErrSplit = errors.New("audio split failed")

// ErrInvalidFormat indicates an unknown segment output format.
var ErrInvalidFormat = errors.New("invalid audio format")
