package query

import (
	"context"
	"fmt"

	"firestocks/internal/dao"
	"firestocks/internal/model/entity"

	"gorm.io/gorm"
)

type notificationDao struct {
	db *gorm.DB
}

func NewNotificationDao(db *gorm.DB) dao.NotificationDao {
	return &notificationDao{db: db}
}

func (r *notificationDao) Insert(ctx context.Context, n *entity.NotificationLog) error {
	if result := r.db.WithContext(ctx).Create(n); result.Error != nil {
		return fmt.Errorf("failed to insert notification log: %w", result.Error)
	}
	return nil
}

func (r *notificationDao) MarkStatus(ctx context.Context, id int64, status, providerMessageID, errMsg string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.NotificationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              status,
			"provider_message_id": providerMessageID,
			"error":               errMsg,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification %d %s: %w", id, status, result.Error)
	}
	return nil
}

func (r *notificationDao) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]entity.NotificationLog, error) {
	var logs []entity.NotificationLog
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list notifications of user %d: %w", userID, result.Error)
	}
	return logs, nil
}
