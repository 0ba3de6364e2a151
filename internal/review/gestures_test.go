package review

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/joescharf/swipe/internal/gesture"
	"github.com/joescharf/swipe/internal/models"
)

var testGestureConfig = gesture.Config{DirectionEpsilon: 50, CommitThreshold: 120}

func TestGestures_BelowThresholdNeverCallsStore(t *testing.T) {
	card := &fakeCard{}
	c, _, _ := newTestCoordinator(t, WithCard(card))
	g := NewGestures(c, testGestureConfig)
	ctx := context.Background()

	require.NoError(t, g.Begin())
	assert.Equal(t, gesture.DirectionRight, g.Move(gesture.Sample{DX: 80, Phase: gesture.PhaseDragging}))

	action, applied, err := g.Release(ctx, gesture.Sample{DX: 119, Phase: gesture.PhaseReleased})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Empty(t, action)
	assert.Equal(t, "A", c.Current().ID)
	assert.Equal(t, "cancel", card.Calls()[len(card.Calls())-1])
}

func TestGestures_DownwardNeverCommits(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	g := NewGestures(c, testGestureConfig)

	_, applied, err := g.Release(context.Background(), gesture.Sample{DX: 10, DY: 600, Phase: gesture.PhaseReleased})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, 0, c.Snapshot().Cursor)
}

func TestGestures_ReleaseAtThresholdDecides(t *testing.T) {
	card := &fakeCard{}
	c, st, _ := newTestCoordinator(t, WithCard(card))
	g := NewGestures(c, testGestureConfig)
	ctx := context.Background()

	st.EXPECT().UpdateStatus(gomock.Any(), "A", models.PostStatusClientApproved, gomock.Any()).Return(nil)
	st.EXPECT().UpdateStatus(gomock.Any(), "B", models.PostStatusClientRejected, gomock.Any()).Return(nil)

	action, applied, err := g.Release(ctx, gesture.Sample{DX: 120, Phase: gesture.PhaseReleased})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.ActionApprove, action)

	action, applied, err = g.Release(ctx, gesture.Sample{DX: -200, DY: 40, Phase: gesture.PhaseReleased})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.ActionDecline, action)

	assert.Equal(t, "C", c.Current().ID)
	assert.Contains(t, card.Calls(), "commit:approve")
	assert.Contains(t, card.Calls(), "commit:decline")
}

func TestGestures_SwipeUpOpensEditor(t *testing.T) {
	editor := &fakeEditor{}
	c, _, _ := newTestCoordinator(t, WithEditSurface(editor))
	g := NewGestures(c, testGestureConfig)

	action, applied, err := g.Release(context.Background(), gesture.Sample{DX: 20, DY: -150, Phase: gesture.PhaseReleased})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.ActionEdit, action)
	require.NotNil(t, editor.item)
	assert.Equal(t, "A", editor.item.ID)
	assert.Equal(t, 0, c.Snapshot().Cursor)
}

func TestGestures_ExhaustedQueueSnapsBack(t *testing.T) {
	card := &fakeCard{}
	c, st, posts := newTestCoordinator(t, WithCard(card))
	st.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)
	for _, p := range posts {
		require.NoError(t, c.Decide(context.Background(), p, models.ActionApprove))
	}

	g := NewGestures(c, testGestureConfig)
	_, applied, err := g.Release(context.Background(), gesture.Sample{DX: 300, Phase: gesture.PhaseReleased})
	require.NoError(t, err)
	assert.False(t, applied)
}
