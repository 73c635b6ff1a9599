package dao

import (
	"context"

	"firestocks/internal/model/entity"
)

// UserDao 用户侧只读+套餐变更的数据访问对象接口
type UserDao interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByPayPalSubscription(ctx context.Context, subscriptionID string) (*entity.User, error)

	// DowngradeToFree 本地降级，清掉provider订阅id；本地记录是权威
	DowngradeToFree(ctx context.Context, userID int64) error
	// UpgradePlan provider回调确认后的升级
	UpgradePlan(ctx context.Context, userID int64, plan, subscriptionID string) error

	ListFollowers(ctx context.Context, userID int64) ([]entity.Follower, error)
	ListDevices(ctx context.Context, userID int64) ([]entity.Device, error)
}
