package middleware

import (
	"firestocks/internal/handler/ping"

	"github.com/gin-gonic/gin"
)

// Middleware 全局中间件集合，作为一个Router在server启动时加载
type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

func (m *Middleware) Load(g *gin.Engine) {
	g.Use(gin.Recovery())
	g.Use(RequestId())
	g.Use(Logger)
	g.Use(NoCache())
	g.Use(Options())
	g.Use(Secure())
	g.Use(ApiBaseHeader())

	// 健康检查，启动自检也打这个接口
	g.GET("/ping", ping.Ping())
}
