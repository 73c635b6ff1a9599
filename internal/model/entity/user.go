package entity

import (
	"time"
)

// User 平台用户（账号体系本身不在本服务内维护，这里只读取）
type User struct {
	ID       int64  `gorm:"primaryKey"`
	Username string `gorm:"type:varchar(50);not null"`
	Email    string `gorm:"type:varchar(100)"`

	// 订阅套餐，free/premium；本地记录是权威，provider侧只做尽力同步
	Plan                 string     `gorm:"type:varchar(10);not null;default:'free'"`
	PayPalSubscriptionID string     `gorm:"column:paypal_subscription_id;type:varchar(50)"`
	PlanExpiresAt        *time.Time `gorm:"column:plan_expires_at"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}

// Follower 关注关系，FollowerID 关注 UserID
type Follower struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	UserID     int64 `gorm:"uniqueIndex:uk_user_follower;not null"` // 被关注者
	FollowerID int64 `gorm:"uniqueIndex:uk_user_follower;not null"`

	// 新预测时是否走WhatsApp通知
	NotifyWhatsApp bool   `gorm:"not null"`
	WhatsAppPhone  string `gorm:"column:whatsapp_phone;type:varchar(20)"`

	CreatedAt time.Time
}

func (Follower) TableName() string {
	return "followers"
}

// Device 用户注册的推送设备
type Device struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	UserID   int64  `gorm:"index;not null"`
	Token    string `gorm:"type:varchar(200);not null"` // APNs device token
	Platform string `gorm:"type:varchar(10);not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Device) TableName() string {
	return "devices"
}
