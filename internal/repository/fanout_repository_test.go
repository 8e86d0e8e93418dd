package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/fanout-engine/internal/model"
)

func seedResolvable(t *testing.T, db *gorm.DB) *model.FanOut {
	t.Helper()
	author := &model.Identity{ID: "author", Username: "author", Domain: "local.test", Local: true, ActorURI: "https://local.test/@author"}
	recipient := &model.Identity{ID: "rcpt", Username: "rcpt", Domain: "remote.test", Local: false, InboxURI: "https://remote.test/inbox"}
	mention := &model.Identity{ID: "m1", Username: "m1", Domain: "local.test", Local: true}
	require.NoError(t, db.Create([]*model.Identity{author, recipient, mention}).Error)

	post := &model.Post{ID: "p1", AuthorID: "author", Content: "hi", ObjectURI: "https://local.test/posts/p1", Mentions: []*model.Identity{mention}}
	require.NoError(t, db.Create(post).Error)

	fo, err := model.NewFanOut("rcpt", model.FanOutPost, "p1")
	require.NoError(t, err)
	require.NoError(t, db.Create(fo).Error)
	return fo
}

func TestResolveFullMaterializesEverything(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFanOutRepository(db)
	fo := seedResolvable(t, db)

	got, err := repo.ResolveFull(context.Background(), fo.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Identity)
	assert.Equal(t, "https://remote.test/inbox", got.Identity.InboxURI)
	require.NotNil(t, got.SubjectPost)
	require.NotNil(t, got.SubjectPost.Author)
	assert.Equal(t, "author", got.SubjectPost.Author.ID)
	require.Len(t, got.SubjectPost.Mentions, 1)
	assert.Equal(t, "m1", got.SubjectPost.Mentions[0].ID)
}

func TestResolveFullDanglingSubject(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFanOutRepository(db)

	rcpt := &model.Identity{ID: "rcpt", Username: "rcpt", Domain: "d", Local: true}
	require.NoError(t, db.Create(rcpt).Error)
	fo, err := model.NewFanOut("rcpt", model.FanOutPost, "missing-post")
	require.NoError(t, err)
	require.NoError(t, db.Create(fo).Error)

	_, err = repo.ResolveFull(context.Background(), fo.ID)
	assert.Error(t, err)
}

func TestClaimDueRespectsInterval(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFanOutRepository(db)
	ctx := context.Background()
	fo := seedResolvable(t, db)

	now := time.Now()
	interval := 300 * time.Second

	ids, err := repo.ClaimDue(ctx, now, interval, 10, 0)
	require.NoError(t, err)
	require.Equal(t, []string{fo.ID}, ids)

	// 间隔内不能再被认领
	ids, err = repo.ClaimDue(ctx, now.Add(time.Second), interval, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// 过了间隔重新到期
	ids, err = repo.ClaimDue(ctx, now.Add(interval+time.Second), interval, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{fo.ID}, ids)

	var got model.FanOut
	require.NoError(t, db.First(&got, "id = ?", fo.ID).Error)
	assert.Equal(t, 2, got.Attempts)
}

func TestClaimDueSkipsSentAndDead(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFanOutRepository(db)
	ctx := context.Background()
	fo := seedResolvable(t, db)

	require.NoError(t, repo.MarkSent(ctx, fo.ID))
	ids, err := repo.ClaimDue(ctx, time.Now(), time.Second, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// max_attempts 生效：超限任务成为死信，不再被认领
	fo2, err := model.NewFanOut("rcpt", model.FanOutPostEdited, "p1")
	require.NoError(t, err)
	fo2.Attempts = 3
	require.NoError(t, db.Create(fo2).Error)

	ids, err = repo.ClaimDue(ctx, time.Now(), time.Nanosecond, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, ids)

	dead, err := repo.CountDead(ctx, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 1, dead)

	// 人工重试清掉痕迹后恢复可认领
	require.NoError(t, repo.Reschedule(ctx, fo2.ID))
	ids, err = repo.ClaimDue(ctx, time.Now(), time.Second, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{fo2.ID}, ids)
}

func TestMarkSentIsTerminal(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFanOutRepository(db)
	ctx := context.Background()
	fo := seedResolvable(t, db)

	require.NoError(t, repo.MarkSent(ctx, fo.ID))
	var got model.FanOut
	require.NoError(t, db.First(&got, "id = ?", fo.ID).Error)
	assert.Equal(t, model.FanOutStateSent, got.State)

	counts, err := repo.CountByState(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[model.FanOutStateSent])
}

func TestPruneSent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFanOutRepository(db)
	ctx := context.Background()
	fo := seedResolvable(t, db)
	require.NoError(t, repo.MarkSent(ctx, fo.ID))

	n, err := repo.PruneSent(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var cnt int64
	require.NoError(t, db.Model(&model.FanOut{}).Count(&cnt).Error)
	assert.EqualValues(t, 0, cnt)
}
