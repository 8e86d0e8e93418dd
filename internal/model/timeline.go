package model

import "time"

// TimelineEventType 进时间线的原因
type TimelineEventType string

const (
	TimelineEventPost        TimelineEventType = "post"
	TimelineEventMentioned   TimelineEventType = "mentioned"
	TimelineEventInteraction TimelineEventType = "interaction"
)

// TimelineEvent 某身份时间线上的一条目
// 主体列用空串而非 NULL，复合唯一键才能对重复插入生效
// ux_timeline_dedupe = (identity_id, type, subject_post_id, subject_interaction_id)
type TimelineEvent struct {
	ID                   string            `gorm:"primaryKey;type:varchar(36)"`
	IdentityID           string            `gorm:"type:varchar(36);index:idx_timeline_identity;uniqueIndex:ux_timeline_dedupe;not null"`
	Type                 TimelineEventType `gorm:"type:varchar(16);uniqueIndex:ux_timeline_dedupe;not null"`
	SubjectPostID        string            `gorm:"type:varchar(36);index:idx_timeline_post;uniqueIndex:ux_timeline_dedupe;not null;default:''"`
	SubjectInteractionID string            `gorm:"type:varchar(36);index:idx_timeline_interaction;uniqueIndex:ux_timeline_dedupe;not null;default:''"`
	CreatedAt            time.Time         `gorm:"index"`
}

func (TimelineEvent) TableName() string { return "timeline_events" }
