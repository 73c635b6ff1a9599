package service

import (
	"context"
	"strconv"
	"time"

	"firestocks/conf"
	"firestocks/internal/consts"
	"firestocks/internal/dao"
	"firestocks/internal/evaluator"
	"firestocks/internal/market"
	"firestocks/internal/model"
	"firestocks/internal/model/entity"
	"firestocks/pkg/errors"
	"firestocks/pkg/errors/ecode"
	"firestocks/pkg/kafka"
	"firestocks/pkg/logger"
	"firestocks/pkg/quote"
	"firestocks/utils/uuid"

	"github.com/goccy/go-json"
)

// CheckService 价格检查管线的编排器：取数 -> 评估 -> 落库 -> 分发
// 单用户同一时刻只允许一个运行，额度在运行开始前原子扣减
type CheckService struct {
	postDao dao.PostDao
	runDao  dao.RunDao
	quota   dao.QuotaManager
	runLock dao.RunLocker

	provider quote.Provider
	notifier *NotifierService
	producer kafka.ProducerService
	tasks    *TaskTracker
	snow     *uuid.SnowNode
}

func NewCheckService(
	postDao dao.PostDao,
	runDao dao.RunDao,
	quota dao.QuotaManager,
	runLock dao.RunLocker,
	provider quote.Provider,
	notifier *NotifierService,
	producer kafka.ProducerService,
	tasks *TaskTracker,
	snow *uuid.SnowNode,
) *CheckService {
	return &CheckService{
		postDao:  postDao,
		runDao:   runDao,
		quota:    quota,
		runLock:  runLock,
		provider: provider,
		notifier: notifier,
		producer: producer,
		tasks:    tasks,
		snow:     snow,
	}
}

// Run 对一个用户执行一次完整的价格检查
// 单条预测的取价/落库失败只影响该条；只有锁、额度、顶层超时会让整次运行失败
func (s *CheckService) Run(ctx context.Context, userID int64) (*model.RunPriceCheckRes, error) {
	cfg := conf.AppConfig.Check

	release, ok, err := s.runLock.Acquire(ctx, userID, cfg.RunTimeout.Std())
	if err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "acquire run lock failed")
	}
	if !ok {
		return nil, errors.WithCode(ecode.RunConflictErr, "该用户已有进行中的价格检查")
	}
	defer release()

	now := time.Now()
	usage, err := s.quota.Consume(ctx, userID, cfg.DailyQuota, now)
	if err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "quota check failed")
	}
	if !usage.Allowed {
		return nil, errors.WithCode(ecode.QuotaExceededErr, "今日检查次数已用完")
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.RunTimeout.Std())
	defer cancel()

	posts, err := s.postDao.GetOpenPostsByUser(runCtx, userID)
	if err != nil {
		s.saveRun(userID, now, nil, 0, usage, false, "读取预测失败: "+err.Error())
		return nil, errors.Wrap(err, ecode.InternalErr, "load open posts failed")
	}

	outcomes, updated, timedOut := s.evaluateAll(runCtx, posts, now)

	success := !timedOut
	message := ""
	if timedOut {
		message = "运行超时，保留已完成的部分结果"
	}

	run := s.saveRun(userID, now, outcomes, updated, usage, success, message)

	s.publishRunEvent(run, userID, outcomes, updated, success)

	// 到价通知走后台任务，不阻塞调用方
	if len(outcomes) > 0 {
		s.tasks.Go("notify-resolutions", func(taskCtx context.Context) {
			if err := s.notifier.NotifyResolutions(taskCtx, userID, outcomes); err != nil {
				logger.Warnf("notify resolutions user=%d err=%v", userID, err)
			}
			s.notifier.NotifyResolutionSubscribers(taskCtx, userID, outcomes)
		})
	}

	res := &model.RunPriceCheckRes{
		Success:         success,
		CheckedPosts:    len(outcomes),
		UpdatedPosts:    updated,
		UsageCount:      usage.Used,
		RemainingChecks: usage.Remaining,
		Results:         outcomes,
	}
	if timedOut {
		return res, errors.WithCode(ecode.RunTimeoutErr, "价格检查超时")
	}
	return res, nil
}

// evaluateAll 逐条取价、评估、条件更新落库
// 返回结果集、更新条数和是否中途超时
func (s *CheckService) evaluateAll(ctx context.Context, posts []entity.Post, now time.Time) ([]model.Outcome, int, bool) {
	outcomes := make([]model.Outcome, 0, len(posts))
	updated := 0

	for i := range posts {
		if ctx.Err() != nil {
			return outcomes, updated, true
		}
		post := &posts[i]

		obs := s.observe(ctx, post, now)
		out, mut := evaluator.Evaluate(post, obs, now)

		applied, err := s.postDao.ApplyCheckMutation(ctx, mut)
		if err != nil {
			// 单条落库失败降级为no_data记入结果，不中断整次运行
			logger.Errorf("apply mutation post=%d err=%v", post.ID, err)
			out.Class = consts.ClassNoData
			out.Closed = false
			outcomes = append(outcomes, out)
			continue
		}
		if !applied {
			// 版本不匹配说明有并发运行已处理过这条，跳过即可
			logger.Warnf("stale version on post=%d, mutation skipped", post.ID)
			outcomes = append(outcomes, out)
			continue
		}

		if evaluator.Updated(post, out) {
			updated++
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, updated, false
}

// observe 闭市直接短路，开市时取价失败降级为无数据
func (s *CheckService) observe(ctx context.Context, post *entity.Post, now time.Time) evaluator.Observation {
	if !market.IsOpen(post.Exchange, now) {
		return evaluator.Observation{MarketOpen: false}
	}

	q, err := s.provider.GetQuote(ctx, post.Symbol, post.Exchange)
	if err != nil {
		logger.Warnf("quote %s failed: %v", post.Symbol, err)
		return evaluator.Observation{MarketOpen: true}
	}
	return evaluator.Observation{Price: &q.Price, MarketOpen: true}
}

// saveRun 运行历史落库，失败只记日志（历史是视图，不是真相源）
func (s *CheckService) saveRun(userID int64, startedAt time.Time, outcomes []model.Outcome, updated int, usage dao.QuotaUsage, success bool, message string) *entity.CheckRun {
	results, err := json.Marshal(outcomes)
	if err != nil {
		logger.Errorf("marshal run results failed: %v", err)
		results = []byte("[]")
	}

	run := &entity.CheckRun{
		ID:              s.snow.GenID(),
		UserID:          userID,
		StartedAt:       startedAt,
		CheckedPosts:    len(outcomes),
		UpdatedPosts:    updated,
		UsageCount:      usage.Used,
		RemainingChecks: usage.Remaining,
		Success:         success,
		Message:         message,
		Results:         results,
	}

	// 历史永不阻塞运行结果返回，用独立的短超时context
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.runDao.SaveRunCapped(saveCtx, run, conf.AppConfig.Check.HistoryCap); err != nil {
		logger.Errorf("save check run user=%d err=%v", userID, err)
	}
	return run
}

func (s *CheckService) publishRunEvent(run *entity.CheckRun, userID int64, outcomes []model.Outcome, updated int, success bool) {
	event := model.RunEvent{
		RunID:        run.ID,
		UserID:       userID,
		StartedAt:    run.StartedAt,
		CheckedPosts: len(outcomes),
		UpdatedPosts: updated,
		Success:      success,
		Outcomes:     outcomes,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.producer.Produce(ctx, strconv.FormatInt(userID, 10), event); err != nil {
		logger.Warnf("publish run event run=%d err=%v", run.ID, err)
	}
}

// SweepAll 定时任务入口：给所有还有未关闭预测的用户跑一轮检查
// 单个用户失败不影响其他用户
func (s *CheckService) SweepAll(ctx context.Context) {
	userIDs, err := s.postDao.ListUsersWithOpenPosts(ctx)
	if err != nil {
		logger.Errorf("sweep: list users failed: %v", err)
		return
	}
	logger.Infof("sweep: checking %d users", len(userIDs))
	for _, uid := range userIDs {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Run(ctx, uid); err != nil {
			code, msg := errors.DecodeErr(err)
			// 锁冲突和额度用尽在扫描场景是正常情况
			if code == ecode.RunConflictErr || code == ecode.QuotaExceededErr {
				logger.Debugf("sweep: skip user %d: %s", uid, msg)
				continue
			}
			logger.Warnf("sweep: user %d run failed: %v", uid, err)
		}
	}
}
