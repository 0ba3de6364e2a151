package review

import (
	"errors"
	"fmt"

	"github.com/joescharf/swipe/internal/models"
)

// ErrNothingToRetry is returned by Retry when the item has no failed decision.
var ErrNothingToRetry = errors.New("no failed decision to retry")

// StaleItemError rejects a decision for an item that is no longer on top of
// the queue, typically a late or repeated UI callback.
type StaleItemError struct {
	ItemID    string
	CurrentID string
}

func (e *StaleItemError) Error() string {
	if e.CurrentID == "" {
		return fmt.Sprintf("stale item %s: queue is exhausted", e.ItemID)
	}
	return fmt.Sprintf("stale item %s: current item is %s", e.ItemID, e.CurrentID)
}

// DuplicateInFlightError rejects a decision while a previous one for the same
// item has not resolved.
type DuplicateInFlightError struct {
	ItemID string
}

func (e *DuplicateInFlightError) Error() string {
	return fmt.Sprintf("decision for %s already in flight", e.ItemID)
}

// MutationFailedError reports a remote status write that did not succeed.
// The queue is not rewound; the item is marked failed.
type MutationFailedError struct {
	Item            *models.Post
	AttemptedStatus models.PostStatus
	Err             error
}

func (e *MutationFailedError) Error() string {
	return fmt.Sprintf("set %s to %s: %v", e.Item.ID, e.AttemptedStatus, e.Err)
}

func (e *MutationFailedError) Unwrap() error { return e.Err }

// UndoCompensationFailedError reports that restoring an item's prior status
// after an undo failed. The local cursor stays where the undo put it.
type UndoCompensationFailedError struct {
	Item *models.Post
	Err  error
}

func (e *UndoCompensationFailedError) Error() string {
	return fmt.Sprintf("restore %s to %s: %v", e.Item.ID, e.Item.Status, e.Err)
}

func (e *UndoCompensationFailedError) Unwrap() error { return e.Err }

// ErrorKind returns a stable machine-readable name for coordinator errors,
// or "" for anything else.
func ErrorKind(err error) string {
	var (
		stale *StaleItemError
		dup   *DuplicateInFlightError
		mut   *MutationFailedError
		undo  *UndoCompensationFailedError
	)
	switch {
	case errors.As(err, &stale):
		return "stale_item"
	case errors.As(err, &dup):
		return "duplicate_in_flight"
	case errors.As(err, &mut):
		return "mutation_failed"
	case errors.As(err, &undo):
		return "undo_compensation_failed"
	case errors.Is(err, ErrNothingToRetry):
		return "nothing_to_retry"
	}
	return ""
}
