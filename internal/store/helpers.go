package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/joescharf/swipe/internal/models"
)

// ErrInvalidTransition is returned when a post cannot move to the requested status.
var ErrInvalidTransition = errors.New("invalid status transition")

// ResolveClient looks a client up by ID, then by name.
func ResolveClient(ctx context.Context, s Store, ref string) (*models.Client, error) {
	c, err := s.GetClient(ctx, ref)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.GetClientByName(ctx, ref)
}

// SubmitPost sends a draft, or a post the client rejected, to the client for review.
func SubmitPost(ctx context.Context, s Store, postID, note string) (*models.Post, error) {
	p, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case models.PostStatusDraft, models.PostStatusClientRejected:
	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, p.ID, p.Status)
	}

	if err := s.UpdateStatus(ctx, p.ID, models.PostStatusPendingClient, models.StatusMeta{Note: note}); err != nil {
		return nil, err
	}
	return s.GetPost(ctx, p.ID)
}
