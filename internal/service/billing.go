package service

import (
	"context"

	"firestocks/internal/consts"
	"firestocks/internal/dao"
	"firestocks/internal/model"
	"firestocks/pkg/errors"
	"firestocks/pkg/errors/ecode"
	"firestocks/pkg/logger"
	"firestocks/pkg/paypal"

	"github.com/goccy/go-json"
)

// SubscriptionCanceller provider侧退订的抽象，单测里换成假实现
type SubscriptionCanceller interface {
	CancelSubscription(ctx context.Context, subscriptionID, reason string) error
}

// BillingService 订阅计费：退订与PayPal webhook事件处理
// 本地plan字段是权威，provider侧只做尽力同步
type BillingService struct {
	userDao dao.UserDao
	paypal  SubscriptionCanceller
	tasks   *TaskTracker
}

func NewBillingService(userDao dao.UserDao, pp SubscriptionCanceller, tasks *TaskTracker) *BillingService {
	return &BillingService{userDao: userDao, paypal: pp, tasks: tasks}
}

// CancelSubscription 用户主动退订
// 已是free直接短路；本地降级成功即上报成功，provider取消失败只记日志
func (s *BillingService) CancelSubscription(ctx context.Context, userID int64) (*model.CancelSubscriptionRes, error) {
	user, err := s.userDao.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.WithCode(ecode.NotFoundErr, "用户不存在")
	}
	if user.Plan == consts.PlanFree {
		return &model.CancelSubscriptionRes{Success: true, AlreadyFree: true}, nil
	}

	subscriptionID := user.PayPalSubscriptionID
	if err := s.userDao.DowngradeToFree(ctx, userID); err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "downgrade failed")
	}

	if subscriptionID != "" && s.paypal != nil {
		s.tasks.Go("paypal-cancel", func(taskCtx context.Context) {
			if err := s.paypal.CancelSubscription(taskCtx, subscriptionID, "用户主动退订"); err != nil {
				logger.Warnf("paypal cancel %s failed (local record already free): %v", subscriptionID, err)
			}
		})
	}
	return &model.CancelSubscriptionRes{Success: true}, nil
}

// HandlePayPalEvent 处理一条已过签名验证的webhook事件
// webhook handler先202应答再调这里，错误只记日志靠PayPal重投
func (s *BillingService) HandlePayPalEvent(ctx context.Context, event *model.PayPalEvent) {
	switch event.EventType {
	case "BILLING.SUBSCRIPTION.CANCELLED", "BILLING.SUBSCRIPTION.EXPIRED", "BILLING.SUBSCRIPTION.SUSPENDED":
		s.downgradeBySubscription(ctx, event)
	case "BILLING.SUBSCRIPTION.ACTIVATED":
		s.upgradeBySubscription(ctx, event)
	case "PAYMENT.SALE.COMPLETED":
		logger.Infof("paypal payment completed: %s", event.Summary)
	default:
		// 未接入的事件类型记录后丢弃
		logger.Infof("paypal event %s (%s) dropped", event.EventType, event.ID)
	}
}

func (s *BillingService) downgradeBySubscription(ctx context.Context, event *model.PayPalEvent) {
	res, ok := parseSubscriptionResource(event)
	if !ok {
		return
	}
	user, err := s.userDao.GetByPayPalSubscription(ctx, res.ID)
	if err != nil {
		logger.Warnf("paypal %s: no user for subscription %s", event.EventType, res.ID)
		return
	}
	if err := s.userDao.DowngradeToFree(ctx, user.ID); err != nil {
		logger.Errorf("paypal %s: downgrade user %d failed: %v", event.EventType, user.ID, err)
		return
	}
	logger.Infof("user %d downgraded to free via %s", user.ID, event.EventType)
}

func (s *BillingService) upgradeBySubscription(ctx context.Context, event *model.PayPalEvent) {
	res, ok := parseSubscriptionResource(event)
	if !ok {
		return
	}
	// 激活事件无法关联到用户时只能记日志等人工对账
	user, err := s.userDao.GetByPayPalSubscription(ctx, res.ID)
	if err != nil {
		logger.Warnf("paypal activated: no user holds subscription %s yet", res.ID)
		return
	}
	if err := s.userDao.UpgradePlan(ctx, user.ID, consts.PlanPremium, res.ID); err != nil {
		logger.Errorf("paypal activated: upgrade user %d failed: %v", user.ID, err)
		return
	}
	logger.Infof("user %d upgraded to premium", user.ID)
}

func parseSubscriptionResource(event *model.PayPalEvent) (*model.PayPalSubscriptionResource, bool) {
	var res model.PayPalSubscriptionResource
	if err := json.Unmarshal(event.Resource, &res); err != nil || res.ID == "" {
		logger.Warnf("paypal event %s: bad subscription resource: %v", event.ID, err)
		return nil, false
	}
	return &res, true
}

var _ SubscriptionCanceller = (*paypal.Client)(nil)
