package service

import (
	"context"
	"sync"
	"time"

	"firestocks/pkg/logger"
)

// TaskTracker 后台任务跟踪器
// 广播投递、粉丝fan-out这类异步工作不做裸go，统一从这里起，
// 关停时可以等在途任务收尾
type TaskTracker struct {
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewTaskTracker() *TaskTracker {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskTracker{baseCtx: ctx, cancel: cancel}
}

// Go 启动一个被跟踪的后台任务，panic就地吞掉并记日志
// 关停后再提交的任务直接拒绝
func (t *TaskTracker) Go(name string, fn func(ctx context.Context)) bool {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		logger.Warnf("task %s rejected: tracker closed", name)
		return false
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("task %s panic: %v", name, r)
			}
		}()
		fn(t.baseCtx)
	}()
	return true
}

// Shutdown 停止接收新任务并等待在途任务，超时放弃
func (t *TaskTracker) Shutdown(timeout time.Duration) {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warnf("task tracker shutdown timed out after %s", timeout)
	}
	t.cancel()
}
