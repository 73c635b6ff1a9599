package query

import (
	"context"
	"fmt"

	"firestocks/internal/consts"
	"firestocks/internal/dao"
	"firestocks/internal/model/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriberDao struct {
	db *gorm.DB
}

func NewSubscriberDao(db *gorm.DB) dao.SubscriberDao {
	return &subscriberDao{db: db}
}

func (r *subscriberDao) GetBot(ctx context.Context, botID int64) (*entity.Bot, error) {
	var bot entity.Bot
	result := r.db.WithContext(ctx).Where("id = ?", botID).First(&bot)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get bot %d: %w", botID, result.Error)
	}
	return &bot, nil
}

func (r *subscriberDao) ListBotsByOwner(ctx context.Context, userID int64) ([]entity.Bot, error) {
	var bots []entity.Bot
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&bots)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list bots of user %d: %w", userID, result.Error)
	}
	return bots, nil
}

// Upsert 按(bot_id, chat_id)冲突更新，重复/start刷新昵称并重新订阅
func (r *subscriberDao) Upsert(ctx context.Context, sub *entity.Subscriber) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "bot_id"}, {Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "display_name", "is_subscribed", "updated_at",
		}),
	}).Create(sub)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert subscriber: %w", result.Error)
	}
	return nil
}

func (r *subscriberDao) GetByChat(ctx context.Context, botID, chatID int64) (*entity.Subscriber, error) {
	var sub entity.Subscriber
	result := r.db.WithContext(ctx).
		Where("bot_id = ? AND chat_id = ?", botID, chatID).
		First(&sub)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get subscriber bot=%d chat=%d: %w", botID, chatID, result.Error)
	}
	return &sub, nil
}

func (r *subscriberDao) SetSubscribed(ctx context.Context, botID, chatID int64, subscribed bool) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Subscriber{}).
		Where("bot_id = ? AND chat_id = ?", botID, chatID).
		Update("is_subscribed", subscribed)
	if result.Error != nil {
		return fmt.Errorf("failed to set subscribed bot=%d chat=%d: %w", botID, chatID, result.Error)
	}
	return nil
}

func (r *subscriberDao) SetNotifyFlag(ctx context.Context, botID, chatID int64, notifyType string, enabled bool) error {
	col, err := notifyColumn(notifyType)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&entity.Subscriber{}).
		Where("bot_id = ? AND chat_id = ?", botID, chatID).
		Update(col, enabled)
	if result.Error != nil {
		return fmt.Errorf("failed to set %s bot=%d chat=%d: %w", col, botID, chatID, result.Error)
	}
	return nil
}

func (r *subscriberDao) ListEligible(ctx context.Context, botID int64, notifyType string) ([]entity.Subscriber, error) {
	col, err := notifyColumn(notifyType)
	if err != nil {
		return nil, err
	}
	var subs []entity.Subscriber
	result := r.db.WithContext(ctx).
		Where("bot_id = ? AND is_subscribed = ?", botID, true).
		Where(col+" = ?", true).
		Order("id ASC").
		Find(&subs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list eligible subscribers of bot %d: %w", botID, result.Error)
	}
	return subs, nil
}

func (r *subscriberDao) GetEligibleByIDs(ctx context.Context, botID int64, ids []int64, notifyType string) ([]entity.Subscriber, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	col, err := notifyColumn(notifyType)
	if err != nil {
		return nil, err
	}
	var subs []entity.Subscriber
	result := r.db.WithContext(ctx).
		Where("bot_id = ? AND id IN ? AND is_subscribed = ?", botID, ids, true).
		Where(col+" = ?", true).
		Order("id ASC").
		Find(&subs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get subscribers by ids of bot %d: %w", botID, result.Error)
	}
	return subs, nil
}

func notifyColumn(notifyType string) (string, error) {
	switch notifyType {
	case consts.NotifyTypeBroadcast:
		return "notify_broadcast", nil
	case consts.NotifyTypeNewPost:
		return "notify_new_post", nil
	case consts.NotifyTypeResolution:
		return "notify_resolution", nil
	default:
		return "", fmt.Errorf("unknown notify type %q", notifyType)
	}
}
