package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"firestocks/conf"
	"firestocks/internal/consts"
	"firestocks/internal/dao"
	"firestocks/internal/model"
	"firestocks/internal/model/entity"
	"firestocks/pkg/logger"
	"firestocks/pkg/mail"
	"firestocks/pkg/push/apns"
	"firestocks/pkg/telegram"
	"firestocks/pkg/utils"
	"firestocks/pkg/whatsapp"

	"go.uber.org/multierr"
)

// Pusher APNs推送的抽象，单测里换成假实现
type Pusher interface {
	Push(deviceToken string, msg apns.PushMessage) (*apns.PushResponse, error)
}

// NotifierService 多渠道通知分发
// 所有发送都是尽力而为：单个接收者失败记录审计行，不影响其他接收者
type NotifierService struct {
	userDao       dao.UserDao
	subscriberDao dao.SubscriberDao
	notifyDao     dao.NotificationDao

	telegram telegram.Sender
	whatsapp whatsapp.Sender
	mailer   mail.Sender
	pusher   Pusher
}

func NewNotifierService(
	userDao dao.UserDao,
	subscriberDao dao.SubscriberDao,
	notifyDao dao.NotificationDao,
	tg telegram.Sender,
	wa whatsapp.Sender,
	mailer mail.Sender,
	pusher Pusher,
) *NotifierService {
	return &NotifierService{
		userDao:       userDao,
		subscriberDao: subscriberDao,
		notifyDao:     notifyDao,
		telegram:      tg,
		whatsapp:      wa,
		mailer:        mailer,
		pusher:        pusher,
	}
}

// NotifyResolutions 把到价/止损的结果通知给预测作者本人
// 邮件和APNs并行尽力发送，错误合并后整体返回给调用方记日志
func (s *NotifierService) NotifyResolutions(ctx context.Context, userID int64, outcomes []model.Outcome) error {
	var resolved []model.Outcome
	for _, o := range outcomes {
		if o.Class == consts.ClassTargetReached || o.Class == consts.ClassStopLossHit {
			resolved = append(resolved, o)
		}
	}
	if len(resolved) == 0 {
		return nil
	}

	user, err := s.userDao.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("notify resolutions: %w", err)
	}

	var errs error
	if user.Email != "" && s.mailer != nil {
		errs = multierr.Append(errs, s.emailResolutions(ctx, user, resolved))
	}
	if s.pusher != nil {
		errs = multierr.Append(errs, s.pushResolutions(ctx, user, resolved))
	}
	return errs
}

func (s *NotifierService) emailResolutions(ctx context.Context, user *entity.User, resolved []model.Outcome) error {
	var b strings.Builder
	b.WriteString("<h3>价格检查结果</h3><ul>")
	for _, o := range resolved {
		b.WriteString(fmt.Sprintf("<li>%s (%s): %s，现价 %.2f</li>",
			o.CompanyName, o.Symbol, resolutionText(o.Class), o.CurrentPrice))
	}
	b.WriteString("</ul>")

	rec := &entity.NotificationLog{
		UserID:     user.ID,
		Channel:    string(consts.ChannelEmail),
		NotifyType: consts.NotifyTypeResolution,
		Recipient:  user.Email,
		Status:     consts.NotificationStatusPending,
	}
	if err := s.notifyDao.Insert(ctx, rec); err != nil {
		return err
	}

	if err := s.mailer.Send(user.Email, "预测到价提醒", b.String()); err != nil {
		s.markStatus(ctx, rec.ID, consts.NotificationStatusFailed, "", err.Error())
		return err
	}
	s.markStatus(ctx, rec.ID, consts.NotificationStatusSent, "", "")
	return nil
}

func (s *NotifierService) pushResolutions(ctx context.Context, user *entity.User, resolved []model.Outcome) error {
	devices, err := s.userDao.ListDevices(ctx, user.ID)
	if err != nil {
		return err
	}

	var errs error
	for _, d := range devices {
		if d.Platform != consts.PlatformIOS {
			continue
		}
		for _, o := range resolved {
			resp, err := s.pusher.Push(d.Token, apns.PushMessage{
				Category: "price_check",
				Title:    fmt.Sprintf("%s %s", o.Symbol, resolutionText(o.Class)),
				Body:     fmt.Sprintf("现价 %.2f，目标 %.2f，止损 %.2f", o.CurrentPrice, o.TargetPrice, o.StopLossPrice),
				Sound:    "default",
				ExtParams: map[string]interface{}{
					"post_id": o.PostID,
				},
			})
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if resp.Reason != "" {
				errs = multierr.Append(errs, fmt.Errorf("apns rejected token %s: %s", d.Token, resp.Reason))
			}
		}
	}
	return errs
}

// FanOutNewPost 新预测发布后给开了WhatsApp通知的粉丝发消息
// 先写pending审计行再发送，发完并发更新结果；至少一个成功即视为成功
func (s *NotifierService) FanOutNewPost(ctx context.Context, post *entity.Post) error {
	followers, err := s.userDao.ListFollowers(ctx, post.UserID)
	if err != nil {
		return fmt.Errorf("fan out new post %d: %w", post.ID, err)
	}

	type target struct {
		followerID int64
		phone      string
		recordID   int64
	}
	var targets []target
	for _, f := range followers {
		if !f.NotifyWhatsApp || f.WhatsAppPhone == "" {
			continue
		}
		rec := &entity.NotificationLog{
			UserID:     f.FollowerID,
			Channel:    string(consts.ChannelWhatsApp),
			NotifyType: consts.NotifyTypeNewPost,
			Recipient:  f.WhatsAppPhone,
			PostID:     &post.ID,
			Status:     consts.NotificationStatusPending,
		}
		if err := s.notifyDao.Insert(ctx, rec); err != nil {
			logger.Errorf("insert whatsapp pending row failed: follower=%d err=%v", f.FollowerID, err)
			continue
		}
		targets = append(targets, target{followerID: f.FollowerID, phone: f.WhatsAppPhone, recordID: rec.ID})
	}
	if len(targets) == 0 {
		return nil
	}

	body := fmt.Sprintf("%s 发布了新预测：%s (%s)\n目标价 %.2f，止损 %.2f",
		postAuthorName(ctx, s.userDao, post.UserID),
		post.CompanyName, post.Symbol, post.TargetPrice, post.StopLossPrice)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		sentCnt int
		errs    error
	)
	for _, tg := range targets {
		wg.Add(1)
		go func(tg target) {
			defer wg.Done()
			var msgID string
			// Cloud API偶发5xx，重试一次再放弃
			err := utils.Retry(2, 500*time.Millisecond, false, func() error {
				var sendErr error
				msgID, sendErr = s.whatsapp.SendText(ctx, tg.phone, body)
				return sendErr
			})
			if err != nil {
				s.markStatus(ctx, tg.recordID, consts.NotificationStatusFailed, "", err.Error())
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("whatsapp to %s: %w", tg.phone, err))
				mu.Unlock()
				return
			}
			s.markStatus(ctx, tg.recordID, consts.NotificationStatusSent, msgID, "")
			mu.Lock()
			sentCnt++
			mu.Unlock()
		}(tg)
	}
	wg.Wait()

	if sentCnt > 0 {
		// 部分失败只记日志
		if errs != nil {
			logger.Warnf("whatsapp fan-out partial failure post=%d sent=%d err=%v", post.ID, sentCnt, errs)
		}
		return nil
	}
	return errs
}

// NotifyResolutionSubscribers 把到价结果推给作者名下bot里开了resolution通知的订阅者
func (s *NotifierService) NotifyResolutionSubscribers(ctx context.Context, userID int64, outcomes []model.Outcome) {
	var resolved []model.Outcome
	for _, o := range outcomes {
		if o.Class == consts.ClassTargetReached || o.Class == consts.ClassStopLossHit {
			resolved = append(resolved, o)
		}
	}
	if len(resolved) == 0 {
		return
	}

	bots, err := s.subscriberDao.ListBotsByOwner(ctx, userID)
	if err != nil {
		logger.Errorf("list bots of user %d failed: %v", userID, err)
		return
	}

	var b strings.Builder
	for _, o := range resolved {
		b.WriteString(fmt.Sprintf("*%s* (%s) %s，现价 %.2f\n",
			o.CompanyName, o.Symbol, resolutionText(o.Class), o.CurrentPrice))
	}
	text := b.String()

	interval := conf.AppConfig.Telegram.SendInterval.Std()
	for _, bot := range bots {
		subs, err := s.subscriberDao.ListEligible(ctx, bot.ID, consts.NotifyTypeResolution)
		if err != nil {
			logger.Errorf("list eligible subscribers bot=%d failed: %v", bot.ID, err)
			continue
		}
		for i, sub := range subs {
			if i > 0 {
				sleepCtx(ctx, interval)
			}
			s.sendTelegramLogged(ctx, bot.Token, sub, consts.NotifyTypeResolution, text, nil)
		}
	}
}

// sendTelegramLogged 单条telegram发送加审计行
func (s *NotifierService) sendTelegramLogged(ctx context.Context, botToken string, sub entity.Subscriber, notifyType, text string, broadcastID *int64) (int64, error) {
	rec := &entity.NotificationLog{
		Channel:     string(consts.ChannelTelegram),
		NotifyType:  notifyType,
		Recipient:   fmt.Sprintf("%d", sub.ChatID),
		BroadcastID: broadcastID,
		Status:      consts.NotificationStatusPending,
	}
	if err := s.notifyDao.Insert(ctx, rec); err != nil {
		logger.Errorf("insert telegram pending row failed: chat=%d err=%v", sub.ChatID, err)
	}

	msgID, err := s.telegram.SendMessage(ctx, botToken, sub.ChatID, text)
	if err != nil {
		if rec.ID != 0 {
			s.markStatus(ctx, rec.ID, consts.NotificationStatusFailed, "", err.Error())
		}
		return 0, err
	}
	if rec.ID != 0 {
		s.markStatus(ctx, rec.ID, consts.NotificationStatusSent, fmt.Sprintf("%d", msgID), "")
	}
	return msgID, nil
}

func (s *NotifierService) markStatus(ctx context.Context, id int64, status, providerMessageID, errMsg string) {
	if err := s.notifyDao.MarkStatus(ctx, id, status, providerMessageID, errMsg); err != nil {
		logger.Errorf("mark notification %d %s failed: %v", id, status, err)
	}
}

func resolutionText(class consts.Classification) string {
	if class == consts.ClassTargetReached {
		return "已到达目标价"
	}
	return "已触发止损"
}

func postAuthorName(ctx context.Context, userDao dao.UserDao, userID int64) string {
	user, err := userDao.GetByID(ctx, userID)
	if err != nil {
		return fmt.Sprintf("用户%d", userID)
	}
	return user.Username
}

// sleepCtx 可被取消的限速等待
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
