package billing

import (
	"firestocks/internal/consts"
	"firestocks/internal/service"
	"firestocks/pkg/response"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	billingService *service.BillingService
}

func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// CancelSubscription 退订
// 本地降级是权威，provider侧的取消在后台尽力执行
func (h *BillingHandler) CancelSubscription() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := ctx.GetInt64(consts.UserID)
		res, err := h.billingService.CancelSubscription(ctx, userId)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, res)
	}
}
