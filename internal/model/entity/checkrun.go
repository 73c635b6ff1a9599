package entity

import (
	"time"

	"gorm.io/datatypes"
)

// CheckRun 一次价格检查运行的历史记录
// 每用户最多保留固定条数，插入新记录时先进先出淘汰最旧的
// 落库后不再修改；真相源仍是posts表，这里只是审计/展示视图
type CheckRun struct {
	ID     int64 `gorm:"primaryKey"` // snowflake id
	UserID int64 `gorm:"index:idx_user_started;not null"`

	StartedAt time.Time `gorm:"index:idx_user_started;not null"`

	CheckedPosts    int `gorm:"not null"`
	UpdatedPosts    int `gorm:"not null"`
	UsageCount      int `gorm:"not null"` // 当日窗口内已消耗的检查次数
	RemainingChecks int `gorm:"not null"`

	Success bool   `gorm:"not null"`
	Message string `gorm:"type:varchar(255)"`

	// 每条预测的Outcome数组，json存储
	Results datatypes.JSON `gorm:"type:json"`

	CreatedAt time.Time
}

func (CheckRun) TableName() string {
	return "check_runs"
}
