package dao

import (
	"context"

	"firestocks/internal/model/entity"
)

// NotificationDao 通知审计记录的数据访问对象接口
type NotificationDao interface {
	// Insert 写入一条记录（WhatsApp通道先写pending再发送）
	Insert(ctx context.Context, n *entity.NotificationLog) error
	// MarkStatus 发送后更新结果
	MarkStatus(ctx context.Context, id int64, status, providerMessageID, errMsg string) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]entity.NotificationLog, error)
}
