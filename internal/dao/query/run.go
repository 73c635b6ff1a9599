package query

import (
	"context"
	"fmt"

	"firestocks/internal/dao"
	"firestocks/internal/model/entity"

	"gorm.io/gorm"
)

type runDao struct {
	db *gorm.DB
}

func NewRunDao(db *gorm.DB) dao.RunDao {
	return &runDao{db: db}
}

// SaveRunCapped 插入并在同一事务里先进先出淘汰，
// 事务保证任意时刻 count(user) <= cap
func (r *runDao) SaveRunCapped(ctx context.Context, run *entity.CheckRun, cap int) error {
	if cap <= 0 {
		return fmt.Errorf("history cap must be positive, got %d", cap)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.Create(run); result.Error != nil {
			return fmt.Errorf("failed to create check run: %w", result.Error)
		}

		var count int64
		if err := tx.Model(&entity.CheckRun{}).
			Where("user_id = ?", run.UserID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count check runs: %w", err)
		}

		if count > int64(cap) {
			// 淘汰最旧的若干条。sqlite的DELETE不支持LIMIT，用id子查询绕开
			var staleIDs []int64
			if err := tx.Model(&entity.CheckRun{}).
				Where("user_id = ?", run.UserID).
				Order("started_at ASC, id ASC").
				Limit(int(count - int64(cap))).
				Pluck("id", &staleIDs).Error; err != nil {
				return fmt.Errorf("failed to find stale check runs: %w", err)
			}
			if len(staleIDs) > 0 {
				if err := tx.Where("id IN ?", staleIDs).
					Delete(&entity.CheckRun{}).Error; err != nil {
					return fmt.Errorf("failed to evict stale check runs: %w", err)
				}
			}
		}
		return nil
	})
	return err
}

func (r *runDao) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]entity.CheckRun, error) {
	var runs []entity.CheckRun
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&runs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list check runs for user %d: %w", userID, result.Error)
	}
	return runs, nil
}

func (r *runDao) GetAllByUser(ctx context.Context, userID int64) ([]entity.CheckRun, error) {
	var runs []entity.CheckRun
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC, id DESC").
		Find(&runs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get check runs for user %d: %w", userID, result.Error)
	}
	return runs, nil
}

func (r *runDao) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&entity.CheckRun{}).
		Where("user_id = ?", userID).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count check runs for user %d: %w", userID, result.Error)
	}
	return count, nil
}
