package service

import (
	"context"
	"fmt"

	"firestocks/internal/dao"
	"firestocks/internal/model"
	"firestocks/internal/model/entity"
	"firestocks/pkg/errors"
	"firestocks/pkg/errors/ecode"
	"firestocks/pkg/logger"
	"firestocks/utils/uuid"
)

// PostService 预测的创建与查询
// 创建成功后触发粉丝WhatsApp通知的后台任务
type PostService struct {
	postDao  dao.PostDao
	notifier *NotifierService
	tasks    *TaskTracker
	snow     *uuid.SnowNode
}

func NewPostService(postDao dao.PostDao, notifier *NotifierService, tasks *TaskTracker, snow *uuid.SnowNode) *PostService {
	return &PostService{postDao: postDao, notifier: notifier, tasks: tasks, snow: snow}
}

func (s *PostService) Create(ctx context.Context, userID int64, req *model.PostCreateReq) (*model.PostCreateRes, error) {
	post := &entity.Post{
		ID:            s.snow.GenID(),
		UserID:        userID,
		Symbol:        req.Symbol,
		Exchange:      req.Exchange,
		Country:       req.Country,
		CompanyName:   req.CompanyName,
		Strategy:      req.Strategy,
		Content:       req.Content,
		InitialPrice:  req.InitialPrice,
		CurrentPrice:  req.InitialPrice,
		TargetPrice:   req.TargetPrice,
		StopLossPrice: req.StopLossPrice,
	}
	if err := s.postDao.Create(ctx, post); err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "create post failed")
	}

	s.tasks.Go(fmt.Sprintf("post-fanout-%d", post.ID), func(taskCtx context.Context) {
		if err := s.notifier.FanOutNewPost(taskCtx, post); err != nil {
			logger.Warnf("new post fan-out post=%d err=%v", post.ID, err)
		}
	})

	return &model.PostCreateRes{Success: true, PostID: post.ID}, nil
}

func (s *PostService) List(ctx context.Context, userID int64, limit, offset int) (*model.PostListRes, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	posts, err := s.postDao.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, ecode.InternalErr, "list posts failed")
	}

	items := make([]model.PostItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, toPostItem(&p))
	}
	return &model.PostListRes{Posts: items}, nil
}

func toPostItem(p *entity.Post) model.PostItem {
	return model.PostItem{
		PostID:            p.ID,
		Symbol:            p.Symbol,
		Exchange:          p.Exchange,
		CompanyName:       p.CompanyName,
		Strategy:          p.Strategy,
		Content:           p.Content,
		InitialPrice:      p.InitialPrice,
		CurrentPrice:      p.CurrentPrice,
		TargetPrice:       p.TargetPrice,
		StopLossPrice:     p.StopLossPrice,
		Closed:            p.Closed,
		TargetReached:     p.TargetReached,
		StopLossTriggered: p.StopLossTriggered,
		LastPriceCheck:    p.LastPriceCheck,
		CreatedAt:         p.CreatedAt,
	}
}
