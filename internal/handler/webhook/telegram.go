package webhook

import (
	"context"
	"net/http"

	"firestocks/conf"
	"firestocks/internal/model"
	"firestocks/internal/service"
	"firestocks/pkg/logger"
	"firestocks/utils/security"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
)

// Telegram Bot API只关心webhook是否返回200，
// 所以先应答再异步处理，避免处理慢导致Telegram反复重投

type TelegramHandler struct {
	botService *service.BotService
	tasks      *service.TaskTracker
}

func NewTelegramHandler(botService *service.BotService, tasks *service.TaskTracker) *TelegramHandler {
	return &TelegramHandler{botService: botService, tasks: tasks}
}

func (h *TelegramHandler) HandleUpdate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		// setWebhook时注册的secret_token，不匹配直接拒掉
		if secret := conf.AppConfig.Telegram.WebhookSecret; secret != "" {
			got := ctx.GetHeader("X-Telegram-Bot-Api-Secret-Token")
			if !security.SignatureEqual(got, secret) {
				ctx.Status(http.StatusForbidden)
				return
			}
		}

		botId := cast.ToInt64(ctx.Param("botId"))
		if botId <= 0 {
			ctx.Status(http.StatusNotFound)
			return
		}

		var update model.TelegramUpdate
		if err := ctx.ShouldBindJSON(&update); err != nil {
			logger.Warnf("telegram webhook bad body: %v", err)
			// 非法body也回200，否则Telegram会一直重投这条
			ctx.Status(http.StatusOK)
			return
		}

		h.tasks.Go("telegram-update", func(taskCtx context.Context) {
			h.botService.HandleUpdate(taskCtx, botId, &update)
		})
		ctx.Status(http.StatusOK)
	}
}
