package query

import (
	"context"
	"fmt"

	"firestocks/internal/consts"
	"firestocks/internal/dao"
	"firestocks/internal/model/entity"

	"gorm.io/gorm"
)

type broadcastDao struct {
	db *gorm.DB
}

func NewBroadcastDao(db *gorm.DB) dao.BroadcastDao {
	return &broadcastDao{db: db}
}

func (r *broadcastDao) Create(ctx context.Context, b *entity.Broadcast) error {
	if result := r.db.WithContext(ctx).Create(b); result.Error != nil {
		return fmt.Errorf("failed to create broadcast: %w", result.Error)
	}
	return nil
}

func (r *broadcastDao) GetByID(ctx context.Context, id int64) (*entity.Broadcast, error) {
	var b entity.Broadcast
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&b)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get broadcast %d: %w", id, result.Error)
	}
	return &b, nil
}

// MarkSending 条件更新保证状态单向推进，重复触发返回false
func (r *broadcastDao) MarkSending(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.Broadcast{}).
		Where("id = ? AND status = ?", id, consts.BroadcastStatusPending).
		Update("status", consts.BroadcastStatusSending)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark broadcast %d sending: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Finish 只允许从sending进入终态；终态行不再接受任何更新
func (r *broadcastDao) Finish(ctx context.Context, id int64, status string, sent, failed int, errMsg string) (bool, error) {
	if status != consts.BroadcastStatusCompleted && status != consts.BroadcastStatusFailed {
		return false, fmt.Errorf("invalid terminal broadcast status %q", status)
	}
	result := r.db.WithContext(ctx).
		Model(&entity.Broadcast{}).
		Where("id = ? AND status = ?", id, consts.BroadcastStatusSending).
		Updates(map[string]interface{}{
			"status":       status,
			"sent_count":   sent,
			"failed_count": failed,
			"error":        errMsg,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to finish broadcast %d: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *broadcastDao) SaveDelivery(ctx context.Context, d *entity.BroadcastDelivery) error {
	if result := r.db.WithContext(ctx).Create(d); result.Error != nil {
		return fmt.Errorf("failed to save broadcast delivery: %w", result.Error)
	}
	return nil
}

func (r *broadcastDao) ListDeliveries(ctx context.Context, broadcastID int64) ([]entity.BroadcastDelivery, error) {
	var ds []entity.BroadcastDelivery
	result := r.db.WithContext(ctx).
		Where("broadcast_id = ?", broadcastID).
		Order("id ASC").
		Find(&ds)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list deliveries for broadcast %d: %w", broadcastID, result.Error)
	}
	return ds, nil
}
