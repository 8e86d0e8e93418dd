package model

import "time"

// InteractionKind 互动类型
type InteractionKind string

const (
	InteractionLike  InteractionKind = "like"
	InteractionBoost InteractionKind = "boost"
)

// PostInteraction 对帖子的互动（点赞 / 转发）
type PostInteraction struct {
	ID   string          `gorm:"primaryKey;type:varchar(36)"`
	Kind InteractionKind `gorm:"type:varchar(16);not null"`
	// IdentityID 发起互动的身份
	IdentityID string    `gorm:"type:varchar(36);index:idx_interaction_identity;not null"`
	Identity   *Identity `gorm:"foreignKey:IdentityID"`
	PostID     string    `gorm:"type:varchar(36);index:idx_interaction_post;not null"`
	Post       *Post     `gorm:"foreignKey:PostID"`
	// ActivityURI 联邦活动地址
	ActivityURI string `gorm:"type:varchar(255);uniqueIndex"`
	// Undone 撤销后保留行，撤销 fan-out 还要解析它
	Undone    bool `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PostInteraction) TableName() string { return "post_interactions" }
