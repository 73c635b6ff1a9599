package dao

import (
	"context"

	"firestocks/internal/model/entity"
)

// RunDao 检查运行历史的数据访问对象接口
type RunDao interface {
	// SaveRunCapped 插入一条运行记录并在同一事务里做先进先出淘汰，
	// 保证单用户的记录数不超过cap
	SaveRunCapped(ctx context.Context, run *entity.CheckRun, cap int) error
	// ListByUser 按开始时间倒序返回历史，最新的在前
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]entity.CheckRun, error)
	// GetAllByUser 导出用，返回全部（受cap约束最多cap条）
	GetAllByUser(ctx context.Context, userID int64) ([]entity.CheckRun, error)
	// CountByUser 单测和自检用
	CountByUser(ctx context.Context, userID int64) (int64, error)
}
