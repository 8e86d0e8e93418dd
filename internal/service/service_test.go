package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/fanout-engine/internal/model"
	"github.com/d60-Lab/fanout-engine/pkg/database"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库只能走单连接
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

// fakeSender 记录每次出站投递
type sentRequest struct {
	ActingID string
	Method   string
	URI      string
	Body     []byte
}

type fakeSender struct {
	mu    sync.Mutex
	calls []sentRequest
	err   error
}

func (f *fakeSender) SignedRequest(ctx context.Context, acting *model.Identity, method, uri string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, sentRequest{ActingID: acting.ID, Method: method, URI: uri, Body: body})
	return nil
}

func (f *fakeSender) sent() []sentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentRequest(nil), f.calls...)
}

// fakeClock 测试用可拨时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func mkIdentity(t *testing.T, db *gorm.DB, id string, local bool) *model.Identity {
	t.Helper()
	ident := &model.Identity{
		ID:       id,
		Username: id,
		Domain:   "test.local",
		Local:    local,
		ActorURI: "https://test.local/@" + id,
	}
	if !local {
		ident.Domain = "remote.test"
		ident.ActorURI = "https://remote.test/@" + id
		ident.InboxURI = "https://remote.test/inbox/" + id
	}
	require.NoError(t, db.Create(ident).Error)
	return ident
}

func mkPost(t *testing.T, db *gorm.DB, id, authorID string, inReplyTo *string, mentions ...*model.Identity) *model.Post {
	t.Helper()
	post := &model.Post{
		ID:        id,
		AuthorID:  authorID,
		Content:   "content of " + id,
		InReplyTo: inReplyTo,
		ObjectURI: "https://test.local/posts/" + id,
		Mentions:  mentions,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func mkInteraction(t *testing.T, db *gorm.DB, id, actorID, postID string, kind model.InteractionKind) *model.PostInteraction {
	t.Helper()
	inter := &model.PostInteraction{
		ID:          id,
		Kind:        kind,
		IdentityID:  actorID,
		PostID:      postID,
		ActivityURI: "https://test.local/interactions/" + id,
	}
	require.NoError(t, db.Create(inter).Error)
	return inter
}

func mkFanOut(t *testing.T, db *gorm.DB, recipientID string, kind model.FanOutKind, subjectID string) *model.FanOut {
	t.Helper()
	fo, err := model.NewFanOut(recipientID, kind, subjectID)
	require.NoError(t, err)
	require.NoError(t, db.Create(fo).Error)
	return fo
}

func strPtr(s string) *string { return &s }
