package models

import (
	"fmt"
	"time"
)

// Action is what a reviewer does to the post on top of the queue.
type Action string

const (
	ActionApprove  Action = "approve"
	ActionDecline  Action = "decline"
	ActionEdit     Action = "edit"
	ActionEditSave Action = "edit_save"
)

// ParseAction converts user input into an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionApprove, ActionDecline, ActionEdit, ActionEditSave:
		return Action(s), nil
	case "edit-save":
		return ActionEditSave, nil
	}
	return "", fmt.Errorf("unknown action: %q (must be approve, decline, edit, or edit_save)", s)
}

// TargetStatus returns the status a committed action requests. Edit only opens
// the edit surface and has no target of its own.
func (a Action) TargetStatus() (PostStatus, bool) {
	switch a {
	case ActionApprove:
		return PostStatusClientApproved, true
	case ActionDecline:
		return PostStatusClientRejected, true
	case ActionEditSave:
		return PostStatusClientEdited, true
	}
	return "", false
}

// Decision is a committed reviewer action on a single post.
type Decision struct {
	Item        *Post
	Action      Action
	Content     string // replacement content, edit_save only
	CommittedAt time.Time
}

// HistoryEntry is an undoable record of a decision and where the cursor was before it.
type HistoryEntry struct {
	Decision     Decision
	CursorBefore int
}

// ItemState is the coordinator's view of a single post during a session.
type ItemState string

const (
	ItemStatePending   ItemState = "pending"
	ItemStateApproving ItemState = "approving"
	ItemStateDeclining ItemState = "declining"
	ItemStateEditing   ItemState = "editing"
	ItemStateCommitted ItemState = "committed"
	ItemStateFailed    ItemState = "failed"
)

// InFlightState returns the transient state an action puts its item into.
func (a Action) InFlightState() ItemState {
	switch a {
	case ActionApprove:
		return ItemStateApproving
	case ActionDecline:
		return ItemStateDeclining
	default:
		return ItemStateEditing
	}
}
