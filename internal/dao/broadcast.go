package dao

import (
	"context"

	"firestocks/internal/model/entity"
)

// BroadcastDao 广播数据访问对象接口
// 状态推进都是条件更新，终态后的写入会被拒绝（返回false）
type BroadcastDao interface {
	Create(ctx context.Context, b *entity.Broadcast) error
	GetByID(ctx context.Context, id int64) (*entity.Broadcast, error)

	// MarkSending pending -> sending，false表示状态已被推进过
	MarkSending(ctx context.Context, id int64) (bool, error)
	// Finish sending -> completed|failed，落最终计数
	Finish(ctx context.Context, id int64, status string, sent, failed int, errMsg string) (bool, error)

	SaveDelivery(ctx context.Context, d *entity.BroadcastDelivery) error
	ListDeliveries(ctx context.Context, broadcastID int64) ([]entity.BroadcastDelivery, error)
}
