package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"approve", ActionApprove, false},
		{"decline", ActionDecline, false},
		{"edit", ActionEdit, false},
		{"edit_save", ActionEditSave, false},
		{"edit-save", ActionEditSave, false},
		{"down", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAction_TargetStatus(t *testing.T) {
	s, ok := ActionApprove.TargetStatus()
	assert.True(t, ok)
	assert.Equal(t, PostStatusClientApproved, s)

	s, ok = ActionDecline.TargetStatus()
	assert.True(t, ok)
	assert.Equal(t, PostStatusClientRejected, s)

	s, ok = ActionEditSave.TargetStatus()
	assert.True(t, ok)
	assert.Equal(t, PostStatusClientEdited, s)

	_, ok = ActionEdit.TargetStatus()
	assert.False(t, ok, "edit alone never produces a status")
}

func TestPostStatus_Valid(t *testing.T) {
	assert.True(t, PostStatusPendingClient.Valid())
	assert.True(t, PostStatusPublished.Valid())
	assert.False(t, PostStatus("archived").Valid())
}
