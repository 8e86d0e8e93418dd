package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/fanout-engine/internal/model"
)

func countTimeline(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var cnt int64
	require.NoError(t, db.Model(&model.TimelineEvent{}).Count(&cnt).Error)
	return cnt
}

func TestTimelineAddIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTimelineRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.AddPost(ctx, "r1", "p1"))
	require.NoError(t, repo.AddPost(ctx, "r1", "p1")) // 重放
	require.NoError(t, repo.AddMentioned(ctx, "r1", "p1"))
	require.NoError(t, repo.AddMentioned(ctx, "r1", "p1"))
	require.NoError(t, repo.AddInteraction(ctx, "r1", "i1"))
	require.NoError(t, repo.AddInteraction(ctx, "r1", "i1"))

	// post 和 mentioned 是不同的可见性原因，各一条
	assert.EqualValues(t, 3, countTimeline(t, db))
}

func TestTimelineDeleteByPostScoped(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTimelineRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.AddPost(ctx, "r1", "p1"))
	require.NoError(t, repo.AddMentioned(ctx, "r1", "p1"))
	require.NoError(t, repo.AddPost(ctx, "r1", "p2"))
	require.NoError(t, repo.AddPost(ctx, "r2", "p1"))

	require.NoError(t, repo.DeleteByPost(ctx, "r1", "p1"))

	// 只清 (r1, p1)，其它收件人/帖子不受影响
	events, err := repo.ListForIdentity(ctx, "r1", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "p2", events[0].SubjectPostID)

	events, err = repo.ListForIdentity(ctx, "r2", 0, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	// 删除不存在的条目是 no-op
	require.NoError(t, repo.DeleteByPost(ctx, "r1", "p1"))
}

func TestTimelineDeleteByInteraction(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTimelineRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.AddInteraction(ctx, "r1", "i1"))
	require.NoError(t, repo.AddInteraction(ctx, "r1", "i2"))
	require.NoError(t, repo.DeleteByInteraction(ctx, "r1", "i1"))

	events, err := repo.ListForIdentity(ctx, "r1", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "i2", events[0].SubjectInteractionID)
}
