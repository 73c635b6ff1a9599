package dao

import (
	"context"

	"firestocks/internal/model"
	"firestocks/internal/model/entity"
)

// PostDao 预测数据访问对象接口
type PostDao interface {
	// Create 创建一条预测
	Create(ctx context.Context, post *entity.Post) error
	// GetByID 按id查询
	GetByID(ctx context.Context, id int64) (*entity.Post, error)
	// GetByIDs 批量查询（广播渲染用），只返回属主匹配的记录
	GetByIDs(ctx context.Context, ids []int64, ownerID int64) ([]entity.Post, error)

	// GetOpenPostsByUser 选取参与本轮检查的预测：closed=false的全部
	GetOpenPostsByUser(ctx context.Context, userID int64) ([]entity.Post, error)
	// ListByUser 用户的全部预测（含已关闭）
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]entity.Post, error)
	// ListUsersWithOpenPosts 后台巡检圈定的用户集合
	ListUsersWithOpenPosts(ctx context.Context) ([]int64, error)

	// ApplyCheckMutation 条件更新（WHERE id AND version AND closed=0）
	// 返回false表示版本已过期或已被并发运行关闭，调用方跳过即可
	ApplyCheckMutation(ctx context.Context, mut *model.CheckMutation) (bool, error)
}
