package entity

import (
	"time"
)

// NotificationLog 每次对外发送的审计记录
// WhatsApp通道采用先写pending再发送的顺序，进程中途崩溃也能留下可审计的行
type NotificationLog struct {
	ID     int64 `gorm:"primaryKey;autoIncrement"`
	UserID int64 `gorm:"index"` // 接收者用户id，bot订阅者没有则为0

	Channel    string `gorm:"type:varchar(10);not null"` // telegram/whatsapp/email/push
	NotifyType string `gorm:"type:varchar(20);not null"` // broadcast/new_post/resolution
	Recipient  string `gorm:"type:varchar(100);not null"`

	PostID      *int64 `gorm:"index"`
	BroadcastID *int64 `gorm:"index"`

	Status            string `gorm:"type:varchar(10);not null;index"` // pending/sent/failed
	ProviderMessageID string `gorm:"column:provider_message_id;type:varchar(100)"`
	Error             string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (NotificationLog) TableName() string {
	return "notification_logs"
}
