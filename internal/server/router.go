package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"groupchat/internal/auth"
	"groupchat/internal/handler"
	"groupchat/internal/metrics"
	"groupchat/internal/middleware"
	"groupchat/internal/store"
)

type Deps struct {
	Store       *store.Store
	TokenConfig auth.TokenConfig
	Logger      *zap.Logger
	// Limiter throttles register and login per client IP. Nil uses 10/min.
	Limiter *middleware.RateLimiter
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(metrics.Instrument())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(10, time.Minute)
	}
	requireToken := middleware.RequireToken(deps.TokenConfig, deps.Store)

	api := r.Group("/api")

	hello := &handler.HelloHandler{}
	api.GET("/hello/", hello.Get)

	authHandler := &handler.AuthHandler{Store: deps.Store, TokenConfig: deps.TokenConfig, Logger: deps.Logger}
	api.POST("/auth/register/", middleware.RateLimit(limiter), authHandler.Register)
	api.POST("/auth/login/", middleware.RateLimit(limiter), authHandler.Login)
	api.GET("/auth/me/", requireToken, authHandler.Me)

	protected := api.Group("")
	protected.Use(requireToken)

	profileHandler := &handler.ProfileHandler{Store: deps.Store, Logger: deps.Logger}
	protected.GET("/profile/", profileHandler.Get)
	protected.PUT("/profile/", profileHandler.Update)
	protected.PATCH("/profile/", profileHandler.Update)

	messagesHandler := &handler.MessagesHandler{Store: deps.Store, Logger: deps.Logger}
	protected.GET("/chat/messages/", messagesHandler.List)
	protected.POST("/chat/messages/", messagesHandler.Create)

	return r
}
