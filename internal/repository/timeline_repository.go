package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/fanout-engine/internal/model"
)

// TimelineRepository 每收件人的时间线条目。写入全部幂等：
// 重复插入靠复合唯一键静默吞掉，删除不存在的条目不报错。
type TimelineRepository interface {
	AddPost(ctx context.Context, identityID, postID string) error
	AddMentioned(ctx context.Context, identityID, postID string) error
	AddInteraction(ctx context.Context, identityID, interactionID string) error
	DeleteByPost(ctx context.Context, identityID, postID string) error
	DeleteByInteraction(ctx context.Context, identityID, interactionID string) error
	ListForIdentity(ctx context.Context, identityID string, offset, limit int) ([]*model.TimelineEvent, error)
}

type timelineRepository struct{ db *gorm.DB }

func NewTimelineRepository(db *gorm.DB) TimelineRepository { return &timelineRepository{db: db} }

func (r *timelineRepository) addPostEvent(ctx context.Context, identityID, postID string, typ model.TimelineEventType) error {
	ev := &model.TimelineEvent{
		ID:            uuid.New().String(),
		IdentityID:    identityID,
		Type:          typ,
		SubjectPostID: postID,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ev).Error
}

func (r *timelineRepository) AddPost(ctx context.Context, identityID, postID string) error {
	return r.addPostEvent(ctx, identityID, postID, model.TimelineEventPost)
}

func (r *timelineRepository) AddMentioned(ctx context.Context, identityID, postID string) error {
	return r.addPostEvent(ctx, identityID, postID, model.TimelineEventMentioned)
}

func (r *timelineRepository) AddInteraction(ctx context.Context, identityID, interactionID string) error {
	ev := &model.TimelineEvent{
		ID:                   uuid.New().String(),
		IdentityID:           identityID,
		Type:                 model.TimelineEventInteraction,
		SubjectInteractionID: interactionID,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ev).Error
}

// DeleteByPost 清掉 (identity, post) 的所有条目，post 与 mentioned 都在内
func (r *timelineRepository) DeleteByPost(ctx context.Context, identityID, postID string) error {
	return r.db.WithContext(ctx).
		Where("identity_id = ? AND subject_post_id = ?", identityID, postID).
		Delete(&model.TimelineEvent{}).Error
}

func (r *timelineRepository) DeleteByInteraction(ctx context.Context, identityID, interactionID string) error {
	return r.db.WithContext(ctx).
		Where("identity_id = ? AND subject_interaction_id = ?", identityID, interactionID).
		Delete(&model.TimelineEvent{}).Error
}

func (r *timelineRepository) ListForIdentity(ctx context.Context, identityID string, offset, limit int) ([]*model.TimelineEvent, error) {
	var res []*model.TimelineEvent
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}
