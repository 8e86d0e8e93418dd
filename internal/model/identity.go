package model

import "time"

// Identity 联邦身份（本地账号或远端缓存账号）
type Identity struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	Username string `gorm:"type:varchar(64);index:idx_identity_handle,unique;not null"`
	Domain   string `gorm:"type:varchar(255);index:idx_identity_handle,unique;not null"`
	Local    bool   `gorm:"index"`
	ActorURI string `gorm:"type:varchar(255)"`
	// InboxURI 远端身份的收件端点
	InboxURI string `gorm:"type:varchar(255)"`
	// 本地身份持有私钥用于出站签名；远端只缓存公钥
	PublicKeyPEM  string `gorm:"type:text"`
	PrivateKeyPEM string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Identity) TableName() string { return "identities" }

// Handle user@domain 形式
func (i *Identity) Handle() string {
	return i.Username + "@" + i.Domain
}

// KeyID HTTP Signature 的 keyId
func (i *Identity) KeyID() string {
	return i.ActorURI + "#main-key"
}
