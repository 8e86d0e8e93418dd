package model

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// FanOutKind 活动类型
type FanOutKind string

const (
	FanOutPost            FanOutKind = "post"
	FanOutPostEdited      FanOutKind = "post_edited"
	FanOutPostDeleted     FanOutKind = "post_deleted"
	FanOutInteraction     FanOutKind = "interaction"
	FanOutUndoInteraction FanOutKind = "undo_interaction"
)

// IsPostKind 帖子类活动以 Post 为主体，互动类以 PostInteraction 为主体
func (k FanOutKind) IsPostKind() bool {
	switch k {
	case FanOutPost, FanOutPostEdited, FanOutPostDeleted:
		return true
	}
	return false
}

func (k FanOutKind) valid() bool {
	switch k {
	case FanOutPost, FanOutPostEdited, FanOutPostDeleted,
		FanOutInteraction, FanOutUndoInteraction:
		return true
	}
	return false
}

// FanOutState 任务状态，new 为初始态，sent 为唯一终态
type FanOutState string

const (
	FanOutStateNew  FanOutState = "new"
	FanOutStateSent FanOutState = "sent"
)

// FanOut 一条待投递义务：某个活动 × 某个收件身份。
// 除 State / LastAttempt / Attempts 外创建后不再修改。
type FanOut struct {
	ID string `gorm:"primaryKey;type:varchar(36)"`
	// IdentityID 收件身份
	IdentityID string      `gorm:"type:varchar(36);index:idx_fanout_identity;not null"`
	Identity   *Identity   `gorm:"foreignKey:IdentityID"`
	Kind       FanOutKind  `gorm:"type:varchar(32);not null"`
	State      FanOutState `gorm:"type:varchar(16);index:idx_fanout_state;not null"`
	// 主体二选一，由 Kind 决定哪个非空（NewFanOut 保证）
	SubjectPostID        *string          `gorm:"type:varchar(36);index:idx_fanout_post"`
	SubjectPost          *Post            `gorm:"foreignKey:SubjectPostID"`
	SubjectInteractionID *string          `gorm:"type:varchar(36);index:idx_fanout_interaction"`
	SubjectInteraction   *PostInteraction `gorm:"foreignKey:SubjectInteractionID"`
	// LastAttempt / Attempts 由执行器在认领时盖章
	LastAttempt *time.Time `gorm:"index"`
	Attempts    int        `gorm:"not null;default:0"`
	CreatedAt   time.Time  `gorm:"index"`
	UpdatedAt   time.Time
}

func (FanOut) TableName() string { return "fan_outs" }

// NewFanOut 构造任务并强制 kind↔subject 不变量：
// 帖子类 kind 只挂 Post 主体，互动类 kind 只挂 PostInteraction 主体。
func NewFanOut(identityID string, kind FanOutKind, subjectID string) (*FanOut, error) {
	if identityID == "" {
		return nil, errors.New("fan-out requires a recipient identity")
	}
	if subjectID == "" {
		return nil, errors.New("fan-out requires a subject")
	}
	if !kind.valid() {
		return nil, errors.Newf("unknown fan-out kind %q", kind)
	}
	fo := &FanOut{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		Kind:       kind,
		State:      FanOutStateNew,
	}
	if kind.IsPostKind() {
		fo.SubjectPostID = &subjectID
	} else {
		fo.SubjectInteractionID = &subjectID
	}
	return fo, nil
}
