package segment

import "errors"

// ErrNoValidSplits indicates that not a single transcript row produced a clip.
var ErrNoValidSplits = errors.New("no valid splits")
