package entity

import (
	"time"

	"gorm.io/plugin/soft_delete"
)

// Bot 一个交易者名下的Telegram机器人
type Bot struct {
	ID     int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"index;not null"` // 机器人属主

	Name  string `gorm:"type:varchar(50)"`
	Token string `gorm:"type:varchar(100);not null"` // Bot API token

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Bot) TableName() string {
	return "bots"
}

// Subscriber 注册到某个bot下的Telegram终端用户
// 退订只翻转is_subscribed，从不硬删
type Subscriber struct {
	ID    int64 `gorm:"primaryKey;autoIncrement"`
	BotID int64 `gorm:"uniqueIndex:uk_bot_chat;not null"`
	// Telegram侧的chat id
	ChatID int64 `gorm:"uniqueIndex:uk_bot_chat;not null"`

	Username    string `gorm:"type:varchar(100)"`
	DisplayName string `gorm:"type:varchar(100)"`

	IsSubscribed bool `gorm:"not null"`

	// 按通知类型单独开关
	NotifyBroadcast  bool `gorm:"not null;default:true"`
	NotifyNewPost    bool `gorm:"not null;default:true"`
	NotifyResolution bool `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt soft_delete.DeletedAt `gorm:"index"`
}

func (Subscriber) TableName() string {
	return "subscribers"
}
