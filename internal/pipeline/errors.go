package pipeline

import (
	"errors"
	"fmt"
)

// ErrItemBusy indicates another run already holds the item.
var ErrItemBusy = errors.New("item already has a run in progress")

// ErrStopped indicates a run ended early because a stop was requested
// between stages. Completed stages keep their outputs.
var ErrStopped = errors.New("stopped before next stage")

// StageError reports which stage of which item failed.
type StageError struct {
	ItemID string
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.ItemID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
