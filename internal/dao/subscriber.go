package dao

import (
	"context"

	"firestocks/internal/model/entity"
)

// SubscriberDao bot与订阅者的数据访问对象接口
type SubscriberDao interface {
	GetBot(ctx context.Context, botID int64) (*entity.Bot, error)
	ListBotsByOwner(ctx context.Context, userID int64) ([]entity.Bot, error)

	// Upsert /start时登记订阅者，已存在则刷新昵称并重新置为已订阅
	Upsert(ctx context.Context, sub *entity.Subscriber) error
	GetByChat(ctx context.Context, botID, chatID int64) (*entity.Subscriber, error)

	// SetSubscribed 软开关，从不删行
	SetSubscribed(ctx context.Context, botID, chatID int64, subscribed bool) error
	// SetNotifyFlag 按通知类型开关（broadcast/new_post/resolution）
	SetNotifyFlag(ctx context.Context, botID, chatID int64, notifyType string, enabled bool) error

	// ListEligible 圈出 is_subscribed 且对应类型开启的订阅者
	ListEligible(ctx context.Context, botID int64, notifyType string) ([]entity.Subscriber, error)
	// GetEligibleByIDs manual圈选时按id过滤，仍要求可投递
	GetEligibleByIDs(ctx context.Context, botID int64, ids []int64, notifyType string) ([]entity.Subscriber, error)
}
