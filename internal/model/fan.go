package model

import "time"

// Fan 粉丝反向索引，冗余自 Follow，fan-out 规划按它分页扫描收件人
type Fan struct {
	ID string `gorm:"primaryKey;type:varchar(36)"`
	// IdentityID 被关注者；FanID 粉丝
	IdentityID string `gorm:"type:varchar(36);index:idx_fan_identity;index:idx_fan_pair,unique;not null"`
	FanID      string `gorm:"type:varchar(36);not null;index:idx_fan_pair,unique"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Fan) TableName() string { return "fans" }
