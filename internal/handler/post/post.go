package post

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

type PostHandler struct {
	postService *service.PostService
}

func NewPostHandler(postService *service.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// Create 发布预测，成功后粉丝WhatsApp通知异步触发
func (h *PostHandler) Create() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.PostCreateReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "%s", validator.Translate(err)), nil)
			return
		}
		userId := ctx.GetInt64(consts.UserID)
		res, err := h.postService.Create(ctx, userId, &req)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// List 当前用户的预测列表
func (h *PostHandler) List() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		limit := cast.ToInt(ctx.DefaultQuery("limit", "20"))
		offset := cast.ToInt(ctx.DefaultQuery("offset", "0"))

		res, err := h.postService.List(ctx, userId, limit, offset)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}
