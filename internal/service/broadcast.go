package service

import (
	"context"
	"fmt"
	"strings"

	"firestocks/conf"
	"firestocks/internal/consts"
	"firestocks/internal/dao"
	"firestocks/internal/model"
	"firestocks/internal/model/entity"
	"firestocks/pkg/errors"
	"firestocks/pkg/errors/ecode"
	"firestocks/pkg/logger"
	"firestocks/utils/uuid"

	"github.com/goccy/go-json"
)

// BroadcastService 把选中的预测打包成消息广播给bot的订阅者
// 创建立即返回广播id，投递由后台任务完成，状态落库可查询
type BroadcastService struct {
	broadcastDao  dao.BroadcastDao
	subscriberDao dao.SubscriberDao
	postDao       dao.PostDao

	notifier *NotifierService
	tasks    *TaskTracker
	snow     *uuid.SnowNode
}

func NewBroadcastService(
	broadcastDao dao.BroadcastDao,
	subscriberDao dao.SubscriberDao,
	postDao dao.PostDao,
	notifier *NotifierService,
	tasks *TaskTracker,
	snow *uuid.SnowNode,
) *BroadcastService {
	return &BroadcastService{
		broadcastDao:  broadcastDao,
		subscriberDao: subscriberDao,
		postDao:       postDao,
		notifier:      notifier,
		tasks:         tasks,
		snow:          snow,
	}
}

// Create 校验bot归属和选中的预测，写入pending记录并调度后台投递
func (s *BroadcastService) Create(ctx context.Context, senderID int64, req *model.BroadcastCreateReq) (*model.BroadcastCreateRes, error) {
	bot, err := s.subscriberDao.GetBot(ctx, req.BotID)
	if err != nil {
		return nil, errors.WithCode(ecode.NotFoundErr, "bot不存在")
	}
	if bot.UserID != senderID {
		return nil, errors.WithCode(ecode.AuthErr, "只能用自己的bot广播")
	}

	// 只允许广播自己的预测，不属于发送者的id被静默过滤
	posts, err := s.postDao.GetByIDs(ctx, req.SelectedPosts, senderID)
	if err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "load selected posts failed")
	}

	postIDs := make([]int64, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
	}
	idsJSON, err := json.Marshal(postIDs)
	if err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "marshal post ids failed")
	}

	b := &entity.Broadcast{
		ID:            s.snow.GenID(),
		BotID:         bot.ID,
		SenderID:      senderID,
		Title:         req.Title,
		Comment:       req.Message,
		PostIDs:       idsJSON,
		RecipientType: req.RecipientType,
		Status:        consts.BroadcastStatusPending,
	}
	if err := s.broadcastDao.Create(ctx, b); err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "create broadcast failed")
	}

	text := buildBroadcastText(req.Title, req.Message, posts)
	recipients := append([]int64(nil), req.SelectedRecipients...)

	s.tasks.Go(fmt.Sprintf("broadcast-%d", b.ID), func(taskCtx context.Context) {
		s.deliver(taskCtx, b.ID, bot, req.RecipientType, recipients, text)
	})

	return &model.BroadcastCreateRes{Success: true, BroadcastID: b.ID}, nil
}

// Status 查询一次广播的投递进度
func (s *BroadcastService) Status(ctx context.Context, senderID, broadcastID int64) (*model.BroadcastStatusRes, error) {
	b, err := s.broadcastDao.GetByID(ctx, broadcastID)
	if err != nil {
		return nil, errors.WithCode(ecode.NotFoundErr, "广播不存在")
	}
	if b.SenderID != senderID {
		return nil, errors.WithCode(ecode.AuthErr, "无权查看该广播")
	}

	rows, err := s.broadcastDao.ListDeliveries(ctx, broadcastID)
	if err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "load deliveries failed")
	}
	items := make([]model.BroadcastDeliveryItem, 0, len(rows))
	for _, d := range rows {
		items = append(items, model.BroadcastDeliveryItem{
			ChatID:            d.ChatID,
			Status:            d.Status,
			ProviderMessageID: d.ProviderMessageID,
			Error:             d.Error,
		})
	}

	return &model.BroadcastStatusRes{
		BroadcastID: b.ID,
		Status:      b.Status,
		SentCount:   b.SentCount,
		FailedCount: b.FailedCount,
		Deliveries:  items,
	}, nil
}

// deliver 后台投递：pending->sending保证同一广播只被投递一次
// 0个接收者按completed收尾而不是failed
func (s *BroadcastService) deliver(ctx context.Context, broadcastID int64, bot *entity.Bot, recipientType string, selected []int64, text string) {
	ok, err := s.broadcastDao.MarkSending(ctx, broadcastID)
	if err != nil {
		logger.Errorf("broadcast %d mark sending failed: %v", broadcastID, err)
		return
	}
	if !ok {
		logger.Warnf("broadcast %d already picked up, skip", broadcastID)
		return
	}

	subs, err := s.resolveRecipients(ctx, bot.ID, recipientType, selected)
	if err != nil {
		logger.Errorf("broadcast %d resolve recipients failed: %v", broadcastID, err)
		s.finish(ctx, broadcastID, consts.BroadcastStatusFailed, 0, 0, err.Error())
		return
	}
	if len(subs) == 0 {
		s.finish(ctx, broadcastID, consts.BroadcastStatusCompleted, 0, 0, "")
		return
	}

	interval := conf.AppConfig.Telegram.SendInterval.Std()
	sent, failed := 0, 0
	for i, sub := range subs {
		if ctx.Err() != nil {
			s.finish(ctx, broadcastID, consts.BroadcastStatusFailed, sent, failed, "投递被中断")
			return
		}
		// 顺序发送加固定间隔，避免触发Bot API限流
		if i > 0 {
			sleepCtx(ctx, interval)
		}

		msgID, err := s.notifier.sendTelegramLogged(ctx, bot.Token, sub, consts.NotifyTypeBroadcast, text, &broadcastID)
		d := &entity.BroadcastDelivery{
			BroadcastID:  broadcastID,
			SubscriberID: sub.ID,
			ChatID:       sub.ChatID,
		}
		if err != nil {
			failed++
			d.Status = consts.NotificationStatusFailed
			d.Error = err.Error()
		} else {
			sent++
			d.Status = consts.NotificationStatusSent
			d.ProviderMessageID = msgID
		}
		if err := s.broadcastDao.SaveDelivery(ctx, d); err != nil {
			logger.Errorf("broadcast %d save delivery chat=%d failed: %v", broadcastID, sub.ChatID, err)
		}
	}

	status := consts.BroadcastStatusCompleted
	errMsg := ""
	if sent == 0 && failed > 0 {
		status = consts.BroadcastStatusFailed
		errMsg = "全部接收者投递失败"
	}
	s.finish(ctx, broadcastID, status, sent, failed, errMsg)
}

func (s *BroadcastService) resolveRecipients(ctx context.Context, botID int64, recipientType string, selected []int64) ([]entity.Subscriber, error) {
	switch recipientType {
	case consts.RecipientTypeAllSubscribers, consts.RecipientTypeFollowers:
		// followers口径也落到bot订阅表：粉丝通过bot订阅接收telegram消息
		return s.subscriberDao.ListEligible(ctx, botID, consts.NotifyTypeBroadcast)
	case consts.RecipientTypeManual:
		return s.subscriberDao.GetEligibleByIDs(ctx, botID, selected, consts.NotifyTypeBroadcast)
	default:
		return nil, fmt.Errorf("unknown recipient type %q", recipientType)
	}
}

func (s *BroadcastService) finish(ctx context.Context, broadcastID int64, status string, sent, failed int, errMsg string) {
	ok, err := s.broadcastDao.Finish(ctx, broadcastID, status, sent, failed, errMsg)
	if err != nil {
		logger.Errorf("broadcast %d finish failed: %v", broadcastID, err)
		return
	}
	if !ok {
		logger.Warnf("broadcast %d already finished, counts dropped", broadcastID)
	}
}

func buildBroadcastText(title, comment string, posts []entity.Post) string {
	var b strings.Builder
	b.WriteString("*" + title + "*\n")
	if comment != "" {
		b.WriteString(comment + "\n")
	}
	for _, p := range posts {
		b.WriteString(fmt.Sprintf("\n%s (%s)\n当前 %.2f | 目标 %.2f | 止损 %.2f\n",
			p.CompanyName, p.Symbol, p.CurrentPrice, p.TargetPrice, p.StopLossPrice))
		if p.Closed {
			if p.TargetReached {
				b.WriteString("✅ 已到达目标价\n")
			} else if p.StopLossTriggered {
				b.WriteString("🛑 已触发止损\n")
			}
		}
	}
	return b.String()
}
