package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joescharf/swipe/internal/models"
)

// Event topic constants
const (
	TopicSessionLoaded     = "swipe.review.loaded"
	TopicDecisionCommitted = "swipe.review.decision.committed"
	TopicDecisionFailed    = "swipe.review.decision.failed"
	TopicDecisionUndone    = "swipe.review.decision.undone"
	TopicUndoFailed        = "swipe.review.undo.failed"
	TopicPostSubmitted     = "swipe.post.submitted"
)

// Envelope wraps every published payload with an id and timestamp so
// subscribers can dedupe redeliveries.
type Envelope struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEnvelope wraps data for topic.
func NewEnvelope(topic string, data any) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		Topic:     topic,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Event types

type SessionLoaded struct {
	SessionID string `json:"session_id"`
	ClientID  string `json:"client_id"`
	Items     int    `json:"items"`
}

type DecisionCommitted struct {
	SessionID string            `json:"session_id"`
	PostID    string            `json:"post_id"`
	Action    models.Action     `json:"action"`
	Status    models.PostStatus `json:"status"`
}

type DecisionFailed struct {
	SessionID string            `json:"session_id"`
	PostID    string            `json:"post_id"`
	Action    models.Action     `json:"action"`
	Status    models.PostStatus `json:"status"`
	Error     string            `json:"error"`
}

type DecisionUndone struct {
	SessionID string            `json:"session_id"`
	PostID    string            `json:"post_id"`
	Action    models.Action     `json:"action"`
	Restored  models.PostStatus `json:"restored"`
	Error     string            `json:"error,omitempty"`
}

type PostSubmitted struct {
	PostID   string `json:"post_id"`
	ClientID string `json:"client_id"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
