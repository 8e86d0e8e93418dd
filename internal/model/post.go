package model

import "time"

// Post 内容主体
type Post struct {
	ID       string    `gorm:"primaryKey;type:varchar(36)"`
	AuthorID string    `gorm:"type:varchar(36);index:idx_post_author;not null"`
	Author   *Identity `gorm:"foreignKey:AuthorID"`
	Content  string    `gorm:"type:text"`
	// InReplyTo 被回复对象的 URI，为空表示非回复
	InReplyTo *string `gorm:"type:varchar(255)"`
	// ObjectURI 联邦对象地址
	ObjectURI string `gorm:"type:varchar(255);uniqueIndex"`
	// Mentions 帖子里 @ 到的身份
	Mentions  []*Identity `gorm:"many2many:post_mentions"`
	Deleted   bool        `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Post) TableName() string { return "posts" }

// MentionIDSet 提及集合（调度层做回复过滤用）
func (p *Post) MentionIDSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.Mentions))
	for _, m := range p.Mentions {
		set[m.ID] = struct{}{}
	}
	return set
}
