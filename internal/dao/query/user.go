package query

import (
	"context"
	"fmt"

	"firestocks/internal/consts"
	"firestocks/internal/dao"
	"firestocks/internal/model/entity"

	"gorm.io/gorm"
)

type userDao struct {
	db *gorm.DB
}

func NewUserDao(db *gorm.DB) dao.UserDao {
	return &userDao{db: db}
}

func (r *userDao) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var user entity.User
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, result.Error)
	}
	return &user, nil
}

func (r *userDao) GetByPayPalSubscription(ctx context.Context, subscriptionID string) (*entity.User, error) {
	var user entity.User
	result := r.db.WithContext(ctx).
		Where("paypal_subscription_id = ?", subscriptionID).
		First(&user)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get user by subscription %s: %w", subscriptionID, result.Error)
	}
	return &user, nil
}

// DowngradeToFree 本地降级同时清空provider订阅id，本地记录是权威
func (r *userDao) DowngradeToFree(ctx context.Context, userID int64) error {
	result := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"plan":                   consts.PlanFree,
			"paypal_subscription_id": "",
			"plan_expires_at":        nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to downgrade user %d: %w", userID, result.Error)
	}
	return nil
}

func (r *userDao) UpgradePlan(ctx context.Context, userID int64, plan, subscriptionID string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"plan":                   plan,
			"paypal_subscription_id": subscriptionID,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to upgrade user %d: %w", userID, result.Error)
	}
	return nil
}

func (r *userDao) ListFollowers(ctx context.Context, userID int64) ([]entity.Follower, error) {
	var fs []entity.Follower
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&fs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list followers of user %d: %w", userID, result.Error)
	}
	return fs, nil
}

func (r *userDao) ListDevices(ctx context.Context, userID int64) ([]entity.Device, error) {
	var ds []entity.Device
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&ds)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list devices of user %d: %w", userID, result.Error)
	}
	return ds, nil
}
