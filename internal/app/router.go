package app

import (
	"studyplan_backend/docs"
	"studyplan_backend/internal/config"
	"studyplan_backend/internal/middleware"
	"studyplan_backend/internal/util"
	"studyplan_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 学习记录写入，由测试/练习/AI 问答子系统携带写入密钥调用
	ingest := router.Group("/api/ledger")
	ingest.Use(middleware.IngestKeyMiddleware(&cfg.Ingest))
	{
		ingest.POST("/entries", c.ledger.AppendEntry)
	}

	// 3. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerPlanRoutes(authGroup, c)
		a.registerAnalyticsRoutes(authGroup, c)

		authGroup.GET("/ledger/:studentId/entries", c.ledger.ListEntries)
	}

	// 4. 提醒评估，供学生本人或通知调度方调用
	reminders := authGroup.Group("/reminders")
	reminders.Use(middleware.RoleMiddleware(util.RoleStudent, util.RoleService))
	{
		reminders.POST("/:studentId/evaluate", c.reminder.Evaluate)
	}
}

func (a *App) registerPlanRoutes(rg *gin.RouterGroup, c *controllers) {
	plans := rg.Group("/plans")
	{
		plans.POST("", c.plan.GeneratePlan)
		plans.GET("/student/:studentId", c.plan.GetPlan)
		plans.PATCH("/:planId/tasks/:taskId", c.plan.UpdateTaskStatus)
		plans.POST("/:planId/regenerate", c.plan.RegeneratePlan)
		plans.POST("/:planId/topics", c.plan.AddTopics)
	}
}

func (a *App) registerAnalyticsRoutes(rg *gin.RouterGroup, c *controllers) {
	analytics := rg.Group("/analytics/:studentId")
	{
		analytics.GET("/progress", c.analytics.GetProgress)
		analytics.GET("/heatmap", c.analytics.GetHeatmap)
		analytics.GET("/prediction", c.analytics.GetPrediction)
	}
}
