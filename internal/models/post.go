package models

import "time"

// PostStatus represents the review state of a post as owned by the store.
type PostStatus string

const (
	PostStatusDraft          PostStatus = "draft"
	PostStatusPendingClient  PostStatus = "pending_client"
	PostStatusClientApproved PostStatus = "client_approved"
	PostStatusClientRejected PostStatus = "client_rejected"
	PostStatusClientEdited   PostStatus = "client_edited"
	PostStatusPublished      PostStatus = "published"
)

// Valid reports whether s is one of the known statuses.
func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusDraft, PostStatusPendingClient, PostStatusClientApproved,
		PostStatusClientRejected, PostStatusClientEdited, PostStatusPublished:
		return true
	}
	return false
}

// Post is a ghostwritten LinkedIn post awaiting client review.
// The review engine treats it as immutable and only requests status transitions.
type Post struct {
	ID        string
	ClientID  string
	Title     string
	Content   string
	Status    PostStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StatusTransition is an audit record of a single status change.
type StatusTransition struct {
	ID         string
	PostID     string
	FromStatus PostStatus
	ToStatus   PostStatus
	Note       string
	CreatedAt  time.Time
}

// StatusMeta carries optional data alongside a status transition.
type StatusMeta struct {
	Content string // replacement content for client edits
	Note    string
}
