package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"firestocks/internal/consts"
	"firestocks/internal/model"
	"firestocks/internal/model/entity"
	pkgerrors "firestocks/pkg/errors"
	"firestocks/pkg/errors/ecode"

	"github.com/goccy/go-json"
)

// ---- 假DAO ----

type fakeUserDao struct {
	mu        sync.Mutex
	users     map[int64]*entity.User
	bySub     map[string]*entity.User
	downgrade []int64
	upgrade   []int64
}

func newFakeUserDao(users ...*entity.User) *fakeUserDao {
	d := &fakeUserDao{users: map[int64]*entity.User{}, bySub: map[string]*entity.User{}}
	for _, u := range users {
		d.users[u.ID] = u
		if u.PayPalSubscriptionID != "" {
			d.bySub[u.PayPalSubscriptionID] = u
		}
	}
	return d
}

func (d *fakeUserDao) GetByID(_ context.Context, id int64) (*entity.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("record not found")
}

func (d *fakeUserDao) GetByPayPalSubscription(_ context.Context, subID string) (*entity.User, error) {
	if u, ok := d.bySub[subID]; ok {
		return u, nil
	}
	return nil, errors.New("record not found")
}

func (d *fakeUserDao) DowngradeToFree(_ context.Context, userID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.downgrade = append(d.downgrade, userID)
	return nil
}

func (d *fakeUserDao) UpgradePlan(_ context.Context, userID int64, _, _ string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.upgrade = append(d.upgrade, userID)
	return nil
}

func (d *fakeUserDao) ListFollowers(_ context.Context, _ int64) ([]entity.Follower, error) {
	return nil, nil
}

func (d *fakeUserDao) ListDevices(_ context.Context, _ int64) ([]entity.Device, error) {
	return nil, nil
}

type fakeCanceller struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (c *fakeCanceller) CancelSubscription(_ context.Context, subID, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, subID)
	return c.err
}

func (c *fakeCanceller) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type fakeBroadcastDao struct {
	sendingOK bool
	stored    *entity.Broadcast

	mu           sync.Mutex
	finishCalled bool
	finishStatus string
	finishSent   int
	finishFailed int
	deliveries   []entity.BroadcastDelivery
}

func (d *fakeBroadcastDao) Create(_ context.Context, _ *entity.Broadcast) error { return nil }

func (d *fakeBroadcastDao) GetByID(_ context.Context, id int64) (*entity.Broadcast, error) {
	if d.stored != nil && d.stored.ID == id {
		return d.stored, nil
	}
	return nil, errors.New("record not found")
}

func (d *fakeBroadcastDao) MarkSending(_ context.Context, _ int64) (bool, error) {
	return d.sendingOK, nil
}

func (d *fakeBroadcastDao) Finish(_ context.Context, _ int64, status string, sent, failed int, _ string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finishCalled = true
	d.finishStatus = status
	d.finishSent = sent
	d.finishFailed = failed
	return true, nil
}

func (d *fakeBroadcastDao) SaveDelivery(_ context.Context, del *entity.BroadcastDelivery) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, *del)
	return nil
}

func (d *fakeBroadcastDao) ListDeliveries(_ context.Context, broadcastID int64) ([]entity.BroadcastDelivery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []entity.BroadcastDelivery
	for _, del := range d.deliveries {
		if del.BroadcastID == broadcastID {
			out = append(out, del)
		}
	}
	return out, nil
}

type fakeSubscriberDao struct {
	bot      *entity.Bot
	eligible []entity.Subscriber
	sub      *entity.Subscriber

	mu         sync.Mutex
	upserts    []entity.Subscriber
	subscribed []bool
	flagSets   []string
}

func (d *fakeSubscriberDao) GetBot(_ context.Context, botID int64) (*entity.Bot, error) {
	if d.bot != nil && d.bot.ID == botID {
		return d.bot, nil
	}
	return nil, errors.New("record not found")
}

func (d *fakeSubscriberDao) ListBotsByOwner(_ context.Context, _ int64) ([]entity.Bot, error) {
	return nil, nil
}

func (d *fakeSubscriberDao) Upsert(_ context.Context, sub *entity.Subscriber) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.upserts = append(d.upserts, *sub)
	return nil
}

func (d *fakeSubscriberDao) GetByChat(_ context.Context, _, _ int64) (*entity.Subscriber, error) {
	if d.sub != nil {
		return d.sub, nil
	}
	return nil, errors.New("record not found")
}

func (d *fakeSubscriberDao) SetSubscribed(_ context.Context, _, _ int64, subscribed bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribed = append(d.subscribed, subscribed)
	return nil
}

func (d *fakeSubscriberDao) SetNotifyFlag(_ context.Context, _, _ int64, notifyType string, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flagSets = append(d.flagSets, fmt.Sprintf("%s=%v", notifyType, enabled))
	return nil
}

func (d *fakeSubscriberDao) ListEligible(_ context.Context, _ int64, _ string) ([]entity.Subscriber, error) {
	return d.eligible, nil
}

func (d *fakeSubscriberDao) GetEligibleByIDs(_ context.Context, _ int64, ids []int64, _ string) ([]entity.Subscriber, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return d.eligible, nil
}

// ---- 计费 ----

func TestCancelSubscriptionAlreadyFree(t *testing.T) {
	userDao := newFakeUserDao(&entity.User{ID: 1, Plan: consts.PlanFree})
	canceller := &fakeCanceller{}
	tasks := NewTaskTracker()
	svc := NewBillingService(userDao, canceller, tasks)

	res, err := svc.CancelSubscription(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || !res.AlreadyFree {
		t.Fatalf("想要 success+alreadyFree，拿到 %+v", res)
	}

	tasks.Shutdown(time.Second)
	if canceller.count() != 0 {
		t.Fatal("free用户退订不应触碰provider")
	}
	if len(userDao.downgrade) != 0 {
		t.Fatal("free用户不应再降级")
	}
}

func TestCancelSubscriptionProviderFailureStillSucceeds(t *testing.T) {
	userDao := newFakeUserDao(&entity.User{ID: 2, Plan: consts.PlanPremium, PayPalSubscriptionID: "I-77"})
	canceller := &fakeCanceller{err: errors.New("paypal 500")}
	tasks := NewTaskTracker()
	svc := NewBillingService(userDao, canceller, tasks)

	res, err := svc.CancelSubscription(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.AlreadyFree {
		t.Fatalf("想要 success 且非 alreadyFree，拿到 %+v", res)
	}
	if len(userDao.downgrade) != 1 || userDao.downgrade[0] != 2 {
		t.Fatalf("本地降级没有发生: %v", userDao.downgrade)
	}

	// provider侧取消失败不影响结果，只是尽力同步
	tasks.Shutdown(time.Second)
	if canceller.count() != 1 || canceller.calls[0] != "I-77" {
		t.Fatalf("provider取消调用不对: %v", canceller.calls)
	}
}

func TestCancelSubscriptionUnknownUser(t *testing.T) {
	svc := NewBillingService(newFakeUserDao(), &fakeCanceller{}, NewTaskTracker())
	_, err := svc.CancelSubscription(context.Background(), 404)
	if !pkgerrors.IsCode(err, ecode.NotFoundErr) {
		t.Fatalf("想要NotFoundErr，拿到 %v", err)
	}
}

func TestHandlePayPalEventCancelledDowngrades(t *testing.T) {
	userDao := newFakeUserDao(&entity.User{ID: 3, Plan: consts.PlanPremium, PayPalSubscriptionID: "I-88"})
	svc := NewBillingService(userDao, &fakeCanceller{}, NewTaskTracker())

	resource, _ := json.Marshal(map[string]string{"id": "I-88", "status": "CANCELLED"})
	svc.HandlePayPalEvent(context.Background(), &model.PayPalEvent{
		ID:        "WH-1",
		EventType: "BILLING.SUBSCRIPTION.CANCELLED",
		Resource:  resource,
	})

	if len(userDao.downgrade) != 1 || userDao.downgrade[0] != 3 {
		t.Fatalf("webhook取消事件应降级用户: %v", userDao.downgrade)
	}
}

func TestHandlePayPalEventActivatedUpgrades(t *testing.T) {
	userDao := newFakeUserDao(&entity.User{ID: 4, Plan: consts.PlanFree, PayPalSubscriptionID: "I-99"})
	svc := NewBillingService(userDao, &fakeCanceller{}, NewTaskTracker())

	resource, _ := json.Marshal(map[string]string{"id": "I-99", "status": "ACTIVE"})
	svc.HandlePayPalEvent(context.Background(), &model.PayPalEvent{
		ID:        "WH-2",
		EventType: "BILLING.SUBSCRIPTION.ACTIVATED",
		Resource:  resource,
	})

	if len(userDao.upgrade) != 1 || userDao.upgrade[0] != 4 {
		t.Fatalf("激活事件应升级用户: %v", userDao.upgrade)
	}
}

func TestHandlePayPalEventUnknownTypeDropped(t *testing.T) {
	userDao := newFakeUserDao(&entity.User{ID: 5, Plan: consts.PlanPremium, PayPalSubscriptionID: "I-55"})
	svc := NewBillingService(userDao, &fakeCanceller{}, NewTaskTracker())

	svc.HandlePayPalEvent(context.Background(), &model.PayPalEvent{
		ID:        "WH-3",
		EventType: "CUSTOMER.DISPUTE.CREATED",
	})

	if len(userDao.downgrade) != 0 || len(userDao.upgrade) != 0 {
		t.Fatal("未接入的事件类型不应改动套餐")
	}
}

// ---- 广播 ----

func newBroadcastFixture(bdao *fakeBroadcastDao, sdao *fakeSubscriberDao) *BroadcastService {
	return NewBroadcastService(bdao, sdao, nil, nil, NewTaskTracker(), nil)
}

func TestBroadcastDeliverZeroRecipientsCompletes(t *testing.T) {
	bdao := &fakeBroadcastDao{sendingOK: true}
	sdao := &fakeSubscriberDao{bot: &entity.Bot{ID: 10, UserID: 1}}
	svc := newBroadcastFixture(bdao, sdao)

	svc.deliver(context.Background(), 100, sdao.bot, consts.RecipientTypeAllSubscribers, nil, "hello")

	if !bdao.finishCalled {
		t.Fatal("没有收尾")
	}
	if bdao.finishStatus != consts.BroadcastStatusCompleted {
		t.Fatalf("0个接收者应completed收尾，拿到 %s", bdao.finishStatus)
	}
	if bdao.finishSent != 0 || bdao.finishFailed != 0 {
		t.Fatalf("想要 0/0，拿到 %d/%d", bdao.finishSent, bdao.finishFailed)
	}
}

func TestBroadcastDeliverSkipsWhenAlreadyPickedUp(t *testing.T) {
	bdao := &fakeBroadcastDao{sendingOK: false}
	sdao := &fakeSubscriberDao{bot: &entity.Bot{ID: 10, UserID: 1}}
	svc := newBroadcastFixture(bdao, sdao)

	svc.deliver(context.Background(), 100, sdao.bot, consts.RecipientTypeAllSubscribers, nil, "hello")

	if bdao.finishCalled {
		t.Fatal("已被认领的广播不应再次收尾")
	}
}

func TestBroadcastDeliverUnknownRecipientTypeFails(t *testing.T) {
	bdao := &fakeBroadcastDao{sendingOK: true}
	sdao := &fakeSubscriberDao{bot: &entity.Bot{ID: 10, UserID: 1}}
	svc := newBroadcastFixture(bdao, sdao)

	svc.deliver(context.Background(), 100, sdao.bot, "group_chat", nil, "hello")

	if bdao.finishStatus != consts.BroadcastStatusFailed {
		t.Fatalf("未知接收者口径应failed收尾，拿到 %s", bdao.finishStatus)
	}
}

func TestBroadcastStatusIncludesDeliveries(t *testing.T) {
	bdao := &fakeBroadcastDao{
		stored: &entity.Broadcast{
			ID:          100,
			SenderID:    1,
			Status:      consts.BroadcastStatusCompleted,
			SentCount:   1,
			FailedCount: 1,
		},
		deliveries: []entity.BroadcastDelivery{
			{BroadcastID: 100, ChatID: 501, Status: consts.NotificationStatusSent, ProviderMessageID: 9001},
			{BroadcastID: 100, ChatID: 502, Status: consts.NotificationStatusFailed, Error: "blocked by user"},
			{BroadcastID: 999, ChatID: 503, Status: consts.NotificationStatusSent},
		},
	}
	sdao := &fakeSubscriberDao{bot: &entity.Bot{ID: 10, UserID: 1}}
	svc := newBroadcastFixture(bdao, sdao)

	res, err := svc.Status(context.Background(), 1, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Deliveries) != 2 {
		t.Fatalf("只要本广播的明细，想要2条拿到 %d", len(res.Deliveries))
	}
	if res.Deliveries[0].ChatID != 501 || res.Deliveries[0].ProviderMessageID != 9001 {
		t.Fatalf("明细字段不对: %+v", res.Deliveries[0])
	}
	if res.Deliveries[1].Status != consts.NotificationStatusFailed || res.Deliveries[1].Error == "" {
		t.Fatalf("失败明细要带错误信息: %+v", res.Deliveries[1])
	}

	if _, err := svc.Status(context.Background(), 2, 100); !pkgerrors.IsCode(err, ecode.AuthErr) {
		t.Fatalf("非属主查状态应拒绝，拿到 %v", err)
	}
}

func TestBroadcastCreateRejectsForeignBot(t *testing.T) {
	sdao := &fakeSubscriberDao{bot: &entity.Bot{ID: 10, UserID: 99}}
	svc := newBroadcastFixture(&fakeBroadcastDao{}, sdao)

	_, err := svc.Create(context.Background(), 1, &model.BroadcastCreateReq{
		BotID: 10,
		Title: "每日复盘",
	})
	if !pkgerrors.IsCode(err, ecode.AuthErr) {
		t.Fatalf("想要AuthErr，拿到 %v", err)
	}
}

func TestBroadcastCreateUnknownBot(t *testing.T) {
	svc := newBroadcastFixture(&fakeBroadcastDao{}, &fakeSubscriberDao{})

	_, err := svc.Create(context.Background(), 1, &model.BroadcastCreateReq{BotID: 10, Title: "t"})
	if !pkgerrors.IsCode(err, ecode.NotFoundErr) {
		t.Fatalf("想要NotFoundErr，拿到 %v", err)
	}
}

// ---- 任务跟踪 ----

func TestTaskTrackerShutdownWaitsAndRejects(t *testing.T) {
	tracker := NewTaskTracker()
	done := make(chan struct{})
	if ok := tracker.Go("t1", func(ctx context.Context) {
		time.Sleep(20 * time.Millisecond)
		close(done)
	}); !ok {
		t.Fatal("提交被拒绝")
	}

	tracker.Shutdown(time.Second)
	select {
	case <-done:
	default:
		t.Fatal("Shutdown应等在途任务收尾")
	}

	if ok := tracker.Go("t2", func(ctx context.Context) {}); ok {
		t.Fatal("关停后不应再接任务")
	}
}

func TestTaskTrackerRecoversPanic(t *testing.T) {
	tracker := NewTaskTracker()
	tracker.Go("boom", func(ctx context.Context) {
		panic("boom")
	})
	// panic被就地吞掉，Shutdown不应卡死
	tracker.Shutdown(time.Second)
}
