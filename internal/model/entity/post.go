package entity

import (
	"time"

	"gorm.io/plugin/soft_delete"
)

// Post 用户发布的一条股票预测（带目标价/止损价的交易观点）
// 关闭后不再参与价格检查；删除是用户侧的独立操作，管线不删数据
type Post struct {
	ID     int64 `gorm:"primaryKey"` // snowflake id
	UserID int64 `gorm:"index:idx_user_closed;not null"`

	Symbol      string `gorm:"type:varchar(20);not null;index"`
	Exchange    string `gorm:"type:varchar(20)"`
	Country     string `gorm:"type:varchar(10)"`
	CompanyName string `gorm:"type:varchar(100)"`
	Strategy    string `gorm:"type:varchar(50)"` // 策略标签（波段/长线等）
	Content     string `gorm:"type:text"`        // 自由文本观点

	InitialPrice  float64 `gorm:"type:decimal(15,4);not null"` // 发布时的价格，决定方向
	CurrentPrice  float64 `gorm:"type:decimal(15,4)"`          // 最近一次观察到的价格
	TargetPrice   float64 `gorm:"type:decimal(15,4);not null"`
	StopLossPrice float64 `gorm:"type:decimal(15,4);not null"`

	Closed bool `gorm:"index:idx_user_closed;not null"`

	TargetReached     bool       `gorm:"not null"`
	TargetReachedDate *time.Time `gorm:"column:target_reached_date"`

	StopLossTriggered     bool       `gorm:"not null"`
	StopLossTriggeredDate *time.Time `gorm:"column:stop_loss_triggered_date"`

	// 单调不减；no_data时也会推进
	LastPriceCheck *time.Time `gorm:"column:last_price_check"`

	// 乐观并发版本号，评估落库用条件更新，防止并发运行重复处理
	Version int64 `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt soft_delete.DeletedAt `gorm:"index"`
}

func (Post) TableName() string {
	return "posts"
}
