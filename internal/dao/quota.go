package dao

import (
	"context"
	"fmt"
	"time"

	"firestocks/internal/consts"
	"firestocks/pkg/cache"

	"github.com/redis/go-redis/v9"
)

// 检查额度与运行锁都放redis：服务可能多实例部署，
// 进程内map无法保证原子的increment-and-check

type QuotaUsage struct {
	Used      int
	Remaining int
	Allowed   bool
}

// QuotaManager 额度扣减的接口，单测里换成假实现
type QuotaManager interface {
	Consume(ctx context.Context, userID int64, limit int, now time.Time) (QuotaUsage, error)
}

// RunLocker 单用户运行互斥的接口
type RunLocker interface {
	Acquire(ctx context.Context, userID int64, ttl time.Duration) (release func(), ok bool, err error)
}

type QuotaStore struct {
	rdb *redis.Client
}

func NewQuotaStore() *QuotaStore {
	return &QuotaStore{rdb: cache.GetRedisClient()}
}

// DayWindowKey 固定窗口：UTC自然日。历史统计里出现过周/月口径，
// 但执行侧一直按天，这里沿用按天
func DayWindowKey(userID int64, now time.Time) string {
	return fmt.Sprintf("%s%d:%s", consts.QuotaCheckPrefix, userID, now.UTC().Format("2006-01-02"))
}

// DayWindowTTL 到当日UTC零点的剩余时间，加一点余量防止边界抖动
func DayWindowTTL(now time.Time) time.Duration {
	u := now.UTC()
	end := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	return end.Sub(u) + time.Minute
}

// Consume 原子的increment-and-check。超限时计数也会+1，
// 但Allowed=false，调用方直接拒绝本次运行
func (s *QuotaStore) Consume(ctx context.Context, userID int64, limit int, now time.Time) (QuotaUsage, error) {
	key := DayWindowKey(userID, now)

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, DayWindowTTL(now))
	if _, err := pipe.Exec(ctx); err != nil {
		return QuotaUsage{}, err
	}

	n := int(incr.Val())
	usage := QuotaUsage{Used: n, Remaining: limit - n, Allowed: n <= limit}
	if usage.Remaining < 0 {
		usage.Remaining = 0
	}
	return usage, nil
}

// Peek 只读当前用量，展示用
func (s *QuotaStore) Peek(ctx context.Context, userID int64, limit int, now time.Time) (QuotaUsage, error) {
	key := DayWindowKey(userID, now)
	n, err := s.rdb.Get(ctx, key).Int()
	if err != nil {
		if err == redis.Nil {
			return QuotaUsage{Used: 0, Remaining: limit, Allowed: true}, nil
		}
		return QuotaUsage{}, err
	}
	remaining := limit - n
	if remaining < 0 {
		remaining = 0
	}
	return QuotaUsage{Used: n, Remaining: remaining, Allowed: n < limit}, nil
}

// RunLock 单用户运行互斥锁，TTL兜底防止崩溃后死锁

type RunLock struct {
	rdb *redis.Client
}

var (
	_ QuotaManager = (*QuotaStore)(nil)
	_ RunLocker    = (*RunLock)(nil)
)

func NewRunLock() *RunLock {
	return &RunLock{rdb: cache.GetRedisClient()}
}

func runLockKey(userID int64) string {
	return fmt.Sprintf("%s%d", consts.CheckRunLockPrefix, userID)
}

// Acquire 拿不到锁返回ok=false，说明同一用户已有运行中的检查
func (l *RunLock) Acquire(ctx context.Context, userID int64, ttl time.Duration) (release func(), ok bool, err error) {
	key := runLockKey(userID)
	ok, err = l.rdb.SetNX(ctx, key, time.Now().UnixMilli(), ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release = func() {
		// 释放时使用后台context，避免运行超时后锁泄漏到TTL
		_ = l.rdb.Del(context.Background(), key).Err()
	}
	return release, true, nil
}
