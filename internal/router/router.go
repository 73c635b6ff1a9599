package router

import (
	"firestocks/internal/handler/billing"
	"firestocks/internal/handler/broadcast"
	"firestocks/internal/handler/check"
	"firestocks/internal/handler/post"
	"firestocks/internal/handler/webhook"
	"firestocks/internal/middleware"

	"github.com/gin-gonic/gin"
)

type ApiRouter struct {
	checkHandler     *check.CheckHandler
	postHandler      *post.PostHandler
	broadcastHandler *broadcast.BroadcastHandler
	billingHandler   *billing.BillingHandler
	telegramHandler  *webhook.TelegramHandler
	paypalHandler    *webhook.PayPalHandler
}

func NewApiRouter(
	ch *check.CheckHandler,
	ph *post.PostHandler,
	bh *broadcast.BroadcastHandler,
	bl *billing.BillingHandler,
	th *webhook.TelegramHandler,
	pph *webhook.PayPalHandler,
) *ApiRouter {
	return &ApiRouter{
		checkHandler:     ch,
		postHandler:      ph,
		broadcastHandler: bh,
		billingHandler:   bl,
		telegramHandler:  th,
		paypalHandler:    pph,
	}
}

func (api *ApiRouter) Load(g *gin.Engine) {

	base := g.Group("/api/v1")

	c := base.Group("/check", middleware.AuthToken())
	{
		// 价格检查是重操作，挂防重中间件
		c.POST("/run", middleware.AntiDuplicateMiddleware(), api.checkHandler.RunPriceCheck())
		c.GET("/history", api.checkHandler.HistoryList())
		c.GET("/history/export", api.checkHandler.HistoryExport())
	}

	p := base.Group("/posts", middleware.AuthToken())
	{
		p.POST("", api.postHandler.Create())
		p.GET("", api.postHandler.List())
	}

	b := base.Group("/broadcasts", middleware.AuthToken())
	{
		b.POST("", middleware.AntiDuplicateMiddleware(), api.broadcastHandler.Create())
		b.GET("/:id", api.broadcastHandler.Status())
	}

	s := base.Group("/subscription", middleware.AuthToken())
	{
		s.POST("/cancel", api.billingHandler.CancelSubscription())
	}

	// webhook不走jwt鉴权：telegram按bot路径分发，paypal靠验签
	wh := g.Group("/webhook")
	{
		wh.POST("/telegram/:botId", api.telegramHandler.HandleUpdate())
		wh.POST("/paypal", api.paypalHandler.HandleEvent())
	}
}
