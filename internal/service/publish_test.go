package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/fanout-engine/internal/model"
)

func mkFan(t *testing.T, db *gorm.DB, identityID, fanID string) {
	t.Helper()
	require.NoError(t, db.Create(&model.Fan{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		FanID:      fanID,
	}).Error)
}

func jobsFor(t *testing.T, db *gorm.DB, kind model.FanOutKind) map[string]*model.FanOut {
	t.Helper()
	var jobs []*model.FanOut
	require.NoError(t, db.Find(&jobs, "kind = ?", kind).Error)
	byRecipient := make(map[string]*model.FanOut, len(jobs))
	for _, j := range jobs {
		byRecipient[j.IdentityID] = j
	}
	return byRecipient
}

func TestPublishPostFansOutToEchoMentionsAndFans(t *testing.T) {
	db := setupTestDB(t)
	author := mkIdentity(t, db, "author", true)
	fan1 := mkIdentity(t, db, "fan1", true)
	fan2 := mkIdentity(t, db, "fan2", false)
	mentioned := mkIdentity(t, db, "mentioned", false)
	mkIdentity(t, db, "stranger", true)
	mkFan(t, db, author.ID, fan1.ID)
	mkFan(t, db, author.ID, fan2.ID)

	planner := NewPlanner(db, "https://example.com")
	post, err := planner.PublishPost(context.Background(), author.ID, "hello", nil, []string{mentioned.ID})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/posts/"+post.ID, post.ObjectURI)

	jobs := jobsFor(t, db, model.FanOutPost)
	assert.Len(t, jobs, 4) // 回显 + 提及 + 两个粉丝
	for _, id := range []string{author.ID, fan1.ID, fan2.ID, mentioned.ID} {
		job, ok := jobs[id]
		require.True(t, ok, "missing job for %s", id)
		assert.Equal(t, model.FanOutStateNew, job.State)
		require.NotNil(t, job.SubjectPostID)
		assert.Equal(t, post.ID, *job.SubjectPostID)
		assert.Nil(t, job.SubjectInteractionID)
	}
	assert.NotContains(t, jobs, "stranger")
}

func TestPublishPostRejectsUnknownMention(t *testing.T) {
	db := setupTestDB(t)
	author := mkIdentity(t, db, "author", true)

	planner := NewPlanner(db, "https://example.com")
	_, err := planner.PublishPost(context.Background(), author.ID, "hi", nil, []string{"ghost"})
	require.Error(t, err)

	// 事务回滚：既没有帖子也没有任务
	var posts int64
	require.NoError(t, db.Model(&model.Post{}).Count(&posts).Error)
	assert.Zero(t, posts)
	assert.Empty(t, jobsFor(t, db, model.FanOutPost))
}

func TestEditAndDeletePostKinds(t *testing.T) {
	db := setupTestDB(t)
	author := mkIdentity(t, db, "author", true)
	fan1 := mkIdentity(t, db, "fan1", true)
	mkFan(t, db, author.ID, fan1.ID)

	planner := NewPlanner(db, "https://example.com")
	post, err := planner.PublishPost(context.Background(), author.ID, "v1", nil, nil)
	require.NoError(t, err)

	edited, err := planner.EditPost(context.Background(), post.ID, "v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", edited.Content)
	assert.Len(t, jobsFor(t, db, model.FanOutPostEdited), 2)

	require.NoError(t, planner.DeletePost(context.Background(), post.ID))
	assert.Len(t, jobsFor(t, db, model.FanOutPostDeleted), 2)

	// 删帖后行保留，只打标记
	var got model.Post
	require.NoError(t, db.First(&got, "id = ?", post.ID).Error)
	assert.True(t, got.Deleted)

	_, err = planner.EditPost(context.Background(), post.ID, "v3")
	assert.Error(t, err)
}

func TestInteractionFanOutTargetsAuthorAndActorFans(t *testing.T) {
	db := setupTestDB(t)
	author := mkIdentity(t, db, "author", true)
	liker := mkIdentity(t, db, "liker", true)
	likerFan := mkIdentity(t, db, "liker_fan", false)
	mkFan(t, db, liker.ID, likerFan.ID)
	// 行为人自己也在粉丝表里时仍不通知自己
	mkFan(t, db, liker.ID, liker.ID)
	post := mkPost(t, db, "p1", author.ID, nil)

	planner := NewPlanner(db, "https://example.com")
	inter, err := planner.AddInteraction(context.Background(), liker.ID, post.ID, model.InteractionLike)
	require.NoError(t, err)

	jobs := jobsFor(t, db, model.FanOutInteraction)
	assert.Len(t, jobs, 2)
	assert.NotContains(t, jobs, liker.ID)
	for _, id := range []string{author.ID, likerFan.ID} {
		job, ok := jobs[id]
		require.True(t, ok, "missing job for %s", id)
		require.NotNil(t, job.SubjectInteractionID)
		assert.Equal(t, inter.ID, *job.SubjectInteractionID)
		assert.Nil(t, job.SubjectPostID)
	}

	require.NoError(t, planner.UndoInteraction(context.Background(), inter.ID))
	undoJobs := jobsFor(t, db, model.FanOutUndoInteraction)
	assert.Len(t, undoJobs, 2)

	var got model.PostInteraction
	require.NoError(t, db.First(&got, "id = ?", inter.ID).Error)
	assert.True(t, got.Undone)
}
