package webhook

import (
	"context"
	"io"
	"net/http"

	"firestocks/internal/model"
	"firestocks/internal/service"
	"firestocks/pkg/errors"
	"firestocks/pkg/errors/ecode"
	"firestocks/pkg/logger"
	"firestocks/pkg/paypal"
	"firestocks/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// WebhookVerifier PayPal验签的抽象，单测里换成假实现
type WebhookVerifier interface {
	VerifyWebhookSignature(ctx context.Context, h paypal.VerifyHeaders, rawEvent []byte) (bool, error)
}

type PayPalHandler struct {
	billingService *service.BillingService
	verifier       WebhookVerifier
	tasks          *service.TaskTracker
}

func NewPayPalHandler(billingService *service.BillingService, verifier WebhookVerifier, tasks *service.TaskTracker) *PayPalHandler {
	return &PayPalHandler{billingService: billingService, verifier: verifier, tasks: tasks}
}

// HandleEvent 验签通过即202应答，业务处理异步完成
// 处理失败靠PayPal按退避策略重投
func (h *PayPalHandler) HandleEvent() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		raw, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "读取请求体失败"), nil)
			return
		}

		headers := paypal.VerifyHeaders{
			TransmissionID:   ctx.GetHeader("Paypal-Transmission-Id"),
			TransmissionTime: ctx.GetHeader("Paypal-Transmission-Time"),
			CertURL:          ctx.GetHeader("Paypal-Cert-Url"),
			AuthAlgo:         ctx.GetHeader("Paypal-Auth-Algo"),
			TransmissionSig:  ctx.GetHeader("Paypal-Transmission-Sig"),
		}
		valid, err := h.verifier.VerifyWebhookSignature(ctx, headers, raw)
		if err != nil {
			logger.Errorf("paypal verify signature failed: %v", err)
			response.JSON(ctx, errors.WithCode(ecode.InternalErr, "验签服务不可用"), nil)
			return
		}
		if !valid {
			response.JSON(ctx, errors.WithCode(ecode.SignatureErr, "验签失败"), nil)
			return
		}

		var event model.PayPalEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "非法的事件体"), nil)
			return
		}

		h.tasks.Go("paypal-event-"+event.ID, func(taskCtx context.Context) {
			h.billingService.HandlePayPalEvent(taskCtx, &event)
		})
		ctx.Status(http.StatusAccepted)
	}
}
