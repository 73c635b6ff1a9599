package check

import (
	"firestocks/internal/consts"
	"firestocks/internal/model"
	"firestocks/internal/service"
	"firestocks/pkg/errors"
	"firestocks/pkg/errors/ecode"
	"firestocks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type CheckHandler struct {
	checkService   *service.CheckService
	historyService *service.HistoryService
}

func NewCheckHandler(checkService *service.CheckService, historyService *service.HistoryService) *CheckHandler {
	return &CheckHandler{
		checkService:   checkService,
		historyService: historyService,
	}
}

// RunPriceCheck 对当前用户执行一次价格检查
// 额度用尽/锁冲突/超时都走业务错误码返回
func (h *CheckHandler) RunPriceCheck() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)

		// body里的user_id是给后台身份代跑用的，普通用户只能查自己
		var req model.RunPriceCheckReq
		if err := ctx.ShouldBindJSON(&req); err == nil && req.UserID != 0 && req.UserID != userId {
			if !ctx.GetBool(consts.IsBackend) {
				response.JSON(ctx, errors.WithCode(ecode.AuthErr, "只能检查自己的预测"), nil)
				return
			}
			userId = req.UserID
		}

		res, err := h.checkService.Run(ctx, userId)
		if err != nil {
			// 超时的运行保留部分结果一并返回
			response.JSON(ctx, err, res)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// HistoryList 检查历史，最新的在前
func (h *CheckHandler) HistoryList() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		limit := cast.ToInt(ctx.DefaultQuery("limit", "20"))
		offset := cast.ToInt(ctx.DefaultQuery("offset", "0"))

		items, err := h.historyService.List(ctx, userId, limit, offset)
		if err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.Unknown, "接口调用失败"), nil)
			return
		}
		response.JSON(ctx, nil, items)
	}
}

// HistoryExport 导出全部历史为JSON附件
func (h *CheckHandler) HistoryExport() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		filename, body, err := h.historyService.Export(ctx, userId)
		if err != nil {
			response.JSON(ctx, errors.Wrap(err, ecode.Unknown, "接口调用失败"), nil)
			return
		}
		response.Attachment(ctx, filename, "application/json", body)
	}
}
