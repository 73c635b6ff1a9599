package service

import (
	"context"
	"fmt"
	"time"

	"firestocks/internal/dao"
	"firestocks/internal/model"
	"firestocks/internal/model/entity"
	"firestocks/pkg/errors"
	"firestocks/pkg/errors/ecode"
	"firestocks/pkg/logger"

	"github.com/goccy/go-json"
)

// HistoryService 检查运行历史的查询与导出
type HistoryService struct {
	runDao dao.RunDao
}

func NewHistoryService(runDao dao.RunDao) *HistoryService {
	return &HistoryService{runDao: runDao}
}

// List 按时间倒序返回历史，最新的在前
func (s *HistoryService) List(ctx context.Context, userID int64, limit, offset int) ([]model.CheckRunHistory, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	runs, err := s.runDao.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "list check history failed")
	}

	items := make([]model.CheckRunHistory, 0, len(runs))
	for i := range runs {
		items = append(items, toHistory(&runs[i]))
	}
	return items, nil
}

// Export 全量导出为JSON附件
func (s *HistoryService) Export(ctx context.Context, userID int64) (filename string, body []byte, err error) {
	runs, err := s.runDao.GetAllByUser(ctx, userID)
	if err != nil {
		return "", nil, errors.Wrap(err, ecode.InternalErr, "export check history failed")
	}

	items := make([]model.CheckRunHistory, 0, len(runs))
	for i := range runs {
		items = append(items, toHistory(&runs[i]))
	}

	body, err = json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", nil, errors.Wrap(err, ecode.InternalErr, "marshal history failed")
	}
	filename = fmt.Sprintf("price-check-history-%d-%s.json", userID, time.Now().UTC().Format("20060102"))
	return filename, body, nil
}

func toHistory(run *entity.CheckRun) model.CheckRunHistory {
	var results []model.Outcome
	if len(run.Results) > 0 {
		if err := json.Unmarshal(run.Results, &results); err != nil {
			logger.Warnf("unmarshal results of run %d failed: %v", run.ID, err)
		}
	}
	return model.CheckRunHistory{
		RunID:           run.ID,
		StartedAt:       run.StartedAt,
		CheckedPosts:    run.CheckedPosts,
		UpdatedPosts:    run.UpdatedPosts,
		UsageCount:      run.UsageCount,
		RemainingChecks: run.RemainingChecks,
		Success:         run.Success,
		Message:         run.Message,
		Results:         results,
	}
}
