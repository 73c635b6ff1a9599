package query

import (
	"context"
	"errors"
	"fmt"

	"firestocks/internal/dao"
	"firestocks/internal/model"
	"firestocks/internal/model/entity"

	"gorm.io/gorm"
)

type postDao struct {
	db *gorm.DB
}

func NewPostDao(db *gorm.DB) dao.PostDao {
	return &postDao{db: db}
}

func (r *postDao) Create(ctx context.Context, post *entity.Post) error {
	if result := r.db.WithContext(ctx).Create(post); result.Error != nil {
		return fmt.Errorf("failed to create post: %w", result.Error)
	}
	return nil
}

func (r *postDao) GetByID(ctx context.Context, id int64) (*entity.Post, error) {
	var post entity.Post
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&post)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, result.Error
		}
		return nil, fmt.Errorf("failed to get post %d: %w", id, result.Error)
	}
	return &post, nil
}

func (r *postDao) GetByIDs(ctx context.Context, ids []int64, ownerID int64) ([]entity.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []entity.Post
	result := r.db.WithContext(ctx).
		Where("id IN ? AND user_id = ?", ids, ownerID).
		Find(&posts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get posts by ids: %w", result.Error)
	}
	return posts, nil
}

// GetOpenPostsByUser 已关闭的预测天然被排除，保证终态粘滞
func (r *postDao) GetOpenPostsByUser(ctx context.Context, userID int64) ([]entity.Post, error) {
	var posts []entity.Post
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND closed = ?", userID, false).
		Order("created_at ASC").
		Find(&posts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get open posts for user %d: %w", userID, result.Error)
	}
	return posts, nil
}

func (r *postDao) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]entity.Post, error) {
	var posts []entity.Post
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&posts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list posts for user %d: %w", userID, result.Error)
	}
	return posts, nil
}

func (r *postDao) ListUsersWithOpenPosts(ctx context.Context) ([]int64, error) {
	var userIDs []int64
	result := r.db.WithContext(ctx).
		Model(&entity.Post{}).
		Where("closed = ?", false).
		Distinct().
		Pluck("user_id", &userIDs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list users with open posts: %w", result.Error)
	}
	return userIDs, nil
}

// ApplyCheckMutation 条件更新实现compare-and-swap：
// WHERE带上读取时的version和closed=0，并发运行里后到的一方影响0行
func (r *postDao) ApplyCheckMutation(ctx context.Context, mut *model.CheckMutation) (bool, error) {
	updates := map[string]interface{}{
		"last_price_check": mut.CheckedAt,
		"version":          gorm.Expr("version + 1"),
	}
	if mut.CurrentPrice != nil {
		updates["current_price"] = *mut.CurrentPrice
	}
	if mut.Closed {
		updates["closed"] = true
	}
	if mut.TargetReached {
		updates["target_reached"] = true
		updates["target_reached_date"] = mut.ResolvedAt
	}
	if mut.StopLossTriggered {
		updates["stop_loss_triggered"] = true
		updates["stop_loss_triggered_date"] = mut.ResolvedAt
	}

	result := r.db.WithContext(ctx).
		Model(&entity.Post{}).
		Where("id = ? AND version = ? AND closed = ?", mut.PostID, mut.Version, false).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to apply check mutation on post %d: %w", mut.PostID, result.Error)
	}
	return result.RowsAffected > 0, nil
}
