package query

import (
	"context"
	"testing"
	"time"

	"firestocks/internal/consts"
	"firestocks/internal/model"
	"firestocks/internal/model/entity"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 单测用内存sqlite，跟mysql的行为差异（DELETE LIMIT等）已在实现里绕开
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// 内存库跟连接是一对一的，限制连接数避免池里出现空库
	raw, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	raw.SetMaxOpenConns(1)
	err = db.AutoMigrate(
		&entity.Post{},
		&entity.CheckRun{},
		&entity.Broadcast{},
		&entity.BroadcastDelivery{},
		&entity.Bot{},
		&entity.Subscriber{},
		&entity.User{},
		&entity.Follower{},
		&entity.Device{},
		&entity.NotificationLog{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSaveRunCappedFIFO(t *testing.T) {
	db := newTestDB(t)
	d := NewRunDao(db)
	ctx := context.Background()

	const cap = 50
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < cap+1; i++ {
		run := &entity.CheckRun{
			ID:        int64(i + 1),
			UserID:    7,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Success:   true,
			Results:   []byte("[]"),
		}
		if err := d.SaveRunCapped(ctx, run, cap); err != nil {
			t.Fatalf("save run %d: %v", i, err)
		}
	}

	count, err := d.CountByUser(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if count != cap {
		t.Fatalf("count = %d, want %d", count, cap)
	}

	runs, err := d.ListByUser(ctx, 7, cap, 0)
	if err != nil {
		t.Fatal(err)
	}
	// 最新的在index 0，最旧的一条（ID=1）已被淘汰
	if runs[0].ID != int64(cap+1) {
		t.Fatalf("newest run id = %d, want %d", runs[0].ID, cap+1)
	}
	for _, r := range runs {
		if r.ID == 1 {
			t.Fatal("oldest run should have been evicted")
		}
	}
}

func TestSaveRunCappedOtherUsersUntouched(t *testing.T) {
	db := newTestDB(t)
	d := NewRunDao(db)
	ctx := context.Background()

	base := time.Now().UTC()
	// 用户8先有两条
	for i := 0; i < 2; i++ {
		run := &entity.CheckRun{ID: int64(100 + i), UserID: 8, StartedAt: base.Add(time.Duration(i) * time.Second), Results: []byte("[]")}
		if err := d.SaveRunCapped(ctx, run, 2); err != nil {
			t.Fatal(err)
		}
	}
	// 用户9触发淘汰，不应动到用户8
	for i := 0; i < 3; i++ {
		run := &entity.CheckRun{ID: int64(200 + i), UserID: 9, StartedAt: base.Add(time.Duration(i) * time.Second), Results: []byte("[]")}
		if err := d.SaveRunCapped(ctx, run, 2); err != nil {
			t.Fatal(err)
		}
	}

	c8, _ := d.CountByUser(ctx, 8)
	c9, _ := d.CountByUser(ctx, 9)
	if c8 != 2 || c9 != 2 {
		t.Fatalf("counts = %d/%d, want 2/2", c8, c9)
	}
}

func TestApplyCheckMutationCAS(t *testing.T) {
	db := newTestDB(t)
	d := NewPostDao(db)
	ctx := context.Background()

	post := &entity.Post{
		ID: 301, UserID: 7, Symbol: "AAPL",
		InitialPrice: 100, CurrentPrice: 100, TargetPrice: 120, StopLossPrice: 90,
	}
	if err := d.Create(ctx, post); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	price := 125.0
	mut := &model.CheckMutation{
		PostID: post.ID, Version: 0, CheckedAt: now,
		CurrentPrice: &price, Closed: true, TargetReached: true, ResolvedAt: &now,
	}
	applied, err := d.ApplyCheckMutation(ctx, mut)
	if err != nil {
		t.Fatal(err)
	}
	if !applied {
		t.Fatal("first mutation should apply")
	}

	got, err := d.GetByID(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Closed || !got.TargetReached || got.Version != 1 {
		t.Fatalf("post after mutation: closed=%v reached=%v version=%d", got.Closed, got.TargetReached, got.Version)
	}
	if got.CurrentPrice != price {
		t.Fatalf("current price = %v, want %v", got.CurrentPrice, price)
	}
	if got.StopLossTriggered {
		t.Fatal("stop_loss_triggered must stay false")
	}

	// 拿着旧version的并发运行写入应该被拒绝
	stale := &model.CheckMutation{PostID: post.ID, Version: 0, CheckedAt: now, CurrentPrice: &price}
	applied, err = d.ApplyCheckMutation(ctx, stale)
	if err != nil {
		t.Fatal(err)
	}
	if applied {
		t.Fatal("stale version mutation must be rejected")
	}

	// 已关闭的预测不再出现在待检查集合里
	open, err := d.GetOpenPostsByUser(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range open {
		if p.ID == post.ID {
			t.Fatal("closed post must be excluded from open set")
		}
	}
}

func TestBroadcastStatusTransitions(t *testing.T) {
	db := newTestDB(t)
	d := NewBroadcastDao(db)
	ctx := context.Background()

	b := &entity.Broadcast{
		ID: 401, BotID: 1, SenderID: 7, Title: "晨报",
		PostIDs: []byte("[1,2]"), RecipientType: consts.RecipientTypeAllSubscribers,
		Status: consts.BroadcastStatusPending,
	}
	if err := d.Create(ctx, b); err != nil {
		t.Fatal(err)
	}

	ok, err := d.MarkSending(ctx, b.ID)
	if err != nil || !ok {
		t.Fatalf("mark sending: ok=%v err=%v", ok, err)
	}
	// 第二个worker抢不到
	ok, err = d.MarkSending(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("second mark sending must fail")
	}

	ok, err = d.Finish(ctx, b.ID, consts.BroadcastStatusCompleted, 5, 1, "")
	if err != nil || !ok {
		t.Fatalf("finish: ok=%v err=%v", ok, err)
	}
	// 终态后不再接受写入
	ok, err = d.Finish(ctx, b.ID, consts.BroadcastStatusFailed, 0, 9, "late")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("finish after terminal state must be rejected")
	}

	got, err := d.GetByID(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != consts.BroadcastStatusCompleted || got.SentCount != 5 || got.FailedCount != 1 {
		t.Fatalf("broadcast = %s %d/%d", got.Status, got.SentCount, got.FailedCount)
	}
}

func TestFinishRejectsNonTerminalStatus(t *testing.T) {
	db := newTestDB(t)
	d := NewBroadcastDao(db)

	if _, err := d.Finish(context.Background(), 1, consts.BroadcastStatusSending, 0, 0, ""); err == nil {
		t.Fatal("finish with non-terminal status must error")
	}
}

func TestSubscriberUpsertAndEligibility(t *testing.T) {
	db := newTestDB(t)
	d := NewSubscriberDao(db)
	ctx := context.Background()

	sub := &entity.Subscriber{
		BotID: 1, ChatID: 1000, Username: "alice", DisplayName: "Alice",
		IsSubscribed: true, NotifyBroadcast: true, NotifyNewPost: true, NotifyResolution: true,
	}
	if err := d.Upsert(ctx, sub); err != nil {
		t.Fatal(err)
	}

	// 退订后重复/start应该恢复订阅而不是新增一行
	if err := d.SetSubscribed(ctx, 1, 1000, false); err != nil {
		t.Fatal(err)
	}
	again := &entity.Subscriber{
		BotID: 1, ChatID: 1000, Username: "alice2", DisplayName: "Alice",
		IsSubscribed: true, NotifyBroadcast: true, NotifyNewPost: true, NotifyResolution: true,
	}
	if err := d.Upsert(ctx, again); err != nil {
		t.Fatal(err)
	}

	got, err := d.GetByChat(ctx, 1, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsSubscribed || got.Username != "alice2" {
		t.Fatalf("after upsert: subscribed=%v username=%s", got.IsSubscribed, got.Username)
	}

	var count int64
	db.Model(&entity.Subscriber{}).Where("bot_id = ? AND chat_id = ?", 1, 1000).Count(&count)
	if count != 1 {
		t.Fatalf("subscriber rows = %d, want 1", count)
	}

	// 关掉broadcast开关后不再出现在圈选结果里
	if err := d.SetNotifyFlag(ctx, 1, 1000, consts.NotifyTypeBroadcast, false); err != nil {
		t.Fatal(err)
	}
	subs, err := d.ListEligible(ctx, 1, consts.NotifyTypeBroadcast)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 0 {
		t.Fatalf("eligible = %d, want 0", len(subs))
	}
	// 其他类型不受影响
	subs, err = d.ListEligible(ctx, 1, consts.NotifyTypeResolution)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 {
		t.Fatalf("resolution eligible = %d, want 1", len(subs))
	}
}

func TestListEligibleManualSelection(t *testing.T) {
	db := newTestDB(t)
	d := NewSubscriberDao(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		sub := &entity.Subscriber{
			BotID: 2, ChatID: int64(2000 + i),
			IsSubscribed: true, NotifyBroadcast: true, NotifyNewPost: true, NotifyResolution: true,
		}
		if err := d.Upsert(ctx, sub); err != nil {
			t.Fatal(err)
		}
	}
	all, err := d.ListEligible(ctx, 2, consts.NotifyTypeBroadcast)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("eligible = %d, want 3", len(all))
	}

	picked, err := d.GetEligibleByIDs(ctx, 2, []int64{all[0].ID, all[2].ID}, consts.NotifyTypeBroadcast)
	if err != nil {
		t.Fatal(err)
	}
	if len(picked) != 2 {
		t.Fatalf("picked = %d, want 2", len(picked))
	}

	// 空圈选返回空集
	none, err := d.GetEligibleByIDs(ctx, 2, nil, consts.NotifyTypeBroadcast)
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Fatalf("empty selection should yield 0, got %d", len(none))
	}
}

func TestNotificationLifecycle(t *testing.T) {
	db := newTestDB(t)
	d := NewNotificationDao(db)
	ctx := context.Background()

	n := &entity.NotificationLog{
		UserID: 7, Channel: string(consts.ChannelWhatsApp),
		NotifyType: consts.NotifyTypeNewPost, Recipient: "+8613800000000",
		Status: consts.NotificationStatusPending,
	}
	if err := d.Insert(ctx, n); err != nil {
		t.Fatal(err)
	}
	if n.ID == 0 {
		t.Fatal("insert should backfill id")
	}

	if err := d.MarkStatus(ctx, n.ID, consts.NotificationStatusSent, "wamid.123", ""); err != nil {
		t.Fatal(err)
	}
	logs, err := d.ListByUser(ctx, 7, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].Status != consts.NotificationStatusSent || logs[0].ProviderMessageID != "wamid.123" {
		t.Fatalf("unexpected log %+v", logs)
	}
}

func TestUserPlanChanges(t *testing.T) {
	db := newTestDB(t)
	d := NewUserDao(db)
	ctx := context.Background()

	u := &entity.User{ID: 7, Username: "trader", Plan: consts.PlanFree}
	if err := db.Create(u).Error; err != nil {
		t.Fatal(err)
	}

	if err := d.UpgradePlan(ctx, 7, consts.PlanPremium, "I-SUB123"); err != nil {
		t.Fatal(err)
	}
	got, err := d.GetByPayPalSubscription(ctx, "I-SUB123")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != 7 || got.Plan != consts.PlanPremium {
		t.Fatalf("after upgrade: %+v", got)
	}

	if err := d.DowngradeToFree(ctx, 7); err != nil {
		t.Fatal(err)
	}
	got, err = d.GetByID(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got.Plan != consts.PlanFree || got.PayPalSubscriptionID != "" {
		t.Fatalf("after downgrade: plan=%s sub=%q", got.Plan, got.PayPalSubscriptionID)
	}
}
