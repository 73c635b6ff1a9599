package broadcast

import (
	"firestocks/internal/consts"
	"firestocks/internal/model"
	"firestocks/internal/service"
	"firestocks/pkg/errors"
	"firestocks/pkg/errors/ecode"
	"firestocks/pkg/response"
	"firestocks/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

type BroadcastHandler struct {
	broadcastService *service.BroadcastService
}

func NewBroadcastHandler(broadcastService *service.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{broadcastService: broadcastService}
}

// Create 创建广播，立即返回id，投递异步完成
func (h *BroadcastHandler) Create() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.BroadcastCreateReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "%s", validator.Translate(err)), nil)
			return
		}
		userId := ctx.GetInt64(consts.UserID)
		res, err := h.broadcastService.Create(ctx, userId, &req)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// Status 查询投递进度
func (h *BroadcastHandler) Status() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		broadcastId := cast.ToInt64(ctx.Param("id"))
		if broadcastId <= 0 {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "非法的广播id"), nil)
			return
		}
		userId := ctx.GetInt64(consts.UserID)
		res, err := h.broadcastService.Status(ctx, userId, broadcastId)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}
