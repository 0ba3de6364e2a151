package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/swipe/internal/models"
)

func TestResolveClient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedClient(t, s, "dana")

	byID, err := ResolveClient(ctx, s, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "dana", byID.Name)

	byName, err := ResolveClient(ctx, s, "dana")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byName.ID)

	_, err = ResolveClient(ctx, s, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitPost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedClient(t, s, "dana")
	p := seedPost(t, s, c.ID, "launch", models.PostStatusDraft)

	got, err := SubmitPost(ctx, s, p.ID, "first pass")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPendingClient, got.Status)

	transitions, err := s.ListTransitions(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, transitions, 1)
	assert.Equal(t, "first pass", transitions[0].Note)

	_, err = SubmitPost(ctx, s, p.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmitPost_Resubmit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedClient(t, s, "dana")
	p := seedPost(t, s, c.ID, "launch", models.PostStatusClientRejected)

	got, err := SubmitPost(ctx, s, p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusPendingClient, got.Status)

	_, err = SubmitPost(ctx, s, "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
}
