package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/formflow-gin/internal/auth"
	"github.com/mautops/formflow-gin/internal/config"
	"github.com/mautops/formflow-gin/internal/websocket"
	"gorm.io/gorm"
)

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, hub *websocket.Hub, validator *auth.TokenValidator, db *gorm.DB, submissions *SubmissionController) *gin.Engine {
	if cfg != nil && cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(ErrorHandlerMiddleware())
	if cfg != nil && len(cfg.CORS.AllowedOrigins) > 0 {
		router.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	}

	// 未匹配路由统一返回 JSON
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", c.Request.URL.Path)
	})

	// 健康检查
	healthController := NewHealthController(db)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由,订阅单个提交单的状态变更
	if hub != nil && validator != nil {
		router.GET("/ws/submissions/:id", websocket.WebSocketHandler(hub, validator))
	}

	// API v1 路由组,需要认证
	v1 := router.Group("/api/v1")
	if validator != nil {
		v1.Use(auth.AuthMiddleware(validator))
	}
	{
		subs := v1.Group("/submissions")
		{
			subs.POST("", submissions.Create)
			subs.GET("", submissions.List)
			subs.GET("/pending", submissions.ListPending)
			subs.GET("/statistics", submissions.GetStatistics)
			subs.GET("/:id", submissions.Get)
			subs.PUT("/:id", submissions.Update)
			subs.DELETE("/:id", submissions.Delete)
			subs.POST("/:id/send", submissions.Send)
			subs.POST("/:id/approve", submissions.Approve)
			subs.POST("/:id/reject", submissions.Reject)
			subs.POST("/:id/cancel", submissions.Cancel)
			subs.POST("/:id/status", submissions.ChangeStatus)
			subs.GET("/:id/history", submissions.GetHistory)
			subs.GET("/:id/permissions", submissions.GetPermissions)
		}
	}

	return router
}
