package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFanOutSubjectInvariant(t *testing.T) {
	// 帖子类 kind 只挂 post 主体
	for _, kind := range []FanOutKind{FanOutPost, FanOutPostEdited, FanOutPostDeleted} {
		fo, err := NewFanOut("r1", kind, "p1")
		require.NoError(t, err, kind)
		require.NotNil(t, fo.SubjectPostID)
		assert.Equal(t, "p1", *fo.SubjectPostID)
		assert.Nil(t, fo.SubjectInteractionID)
		assert.Equal(t, FanOutStateNew, fo.State)
	}
	// 互动类 kind 只挂 interaction 主体
	for _, kind := range []FanOutKind{FanOutInteraction, FanOutUndoInteraction} {
		fo, err := NewFanOut("r1", kind, "i1")
		require.NoError(t, err, kind)
		require.NotNil(t, fo.SubjectInteractionID)
		assert.Equal(t, "i1", *fo.SubjectInteractionID)
		assert.Nil(t, fo.SubjectPostID)
	}
}

func TestNewFanOutRejectsBadInput(t *testing.T) {
	_, err := NewFanOut("r1", FanOutKind("boost_everything"), "p1")
	assert.Error(t, err)

	_, err = NewFanOut("", FanOutPost, "p1")
	assert.Error(t, err)

	_, err = NewFanOut("r1", FanOutPost, "")
	assert.Error(t, err)
}

func TestFanOutKindSubjectMapping(t *testing.T) {
	assert.True(t, FanOutPost.IsPostKind())
	assert.True(t, FanOutPostEdited.IsPostKind())
	assert.True(t, FanOutPostDeleted.IsPostKind())
	assert.False(t, FanOutInteraction.IsPostKind())
	assert.False(t, FanOutUndoInteraction.IsPostKind())
}
