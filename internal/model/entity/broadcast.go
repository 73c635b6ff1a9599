package entity

import (
	"time"

	"gorm.io/datatypes"
)

// Broadcast 用户主动发起的一次Telegram广播
// 状态只允许单向推进 pending -> sending -> completed|failed
// 到达终态后不再更新任何接收者记录
type Broadcast struct {
	ID       int64 `gorm:"primaryKey"` // snowflake id
	BotID    int64 `gorm:"index;not null"`
	SenderID int64 `gorm:"not null"` // 发起广播的用户

	Title   string `gorm:"type:varchar(100);not null"`
	Comment string `gorm:"type:text"`

	// 本次广播圈选的预测id集合，json数组
	PostIDs datatypes.JSON `gorm:"column:post_ids;type:json"`

	RecipientType string `gorm:"type:varchar(20);not null"` // followers/all_subscribers/manual

	SentCount   int    `gorm:"not null"`
	FailedCount int    `gorm:"not null"`
	Status      string `gorm:"type:varchar(10);not null;index"`
	Error       string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Broadcast) TableName() string {
	return "broadcasts"
}

// BroadcastDelivery 广播的单接收者投递结果
type BroadcastDelivery struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	BroadcastID  int64 `gorm:"index;not null"`
	SubscriberID int64 `gorm:"not null"`
	ChatID       int64 `gorm:"not null"`

	Status            string `gorm:"type:varchar(10);not null"` // sent/failed
	ProviderMessageID int64  `gorm:"column:provider_message_id"`
	Error             string `gorm:"type:text"`

	CreatedAt time.Time
}

func (BroadcastDelivery) TableName() string {
	return "broadcast_deliveries"
}
