package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/dubeyaashish/itradebook-sub000/internal/api/handlers"
	"github.com/dubeyaashish/itradebook-sub000/internal/api/middleware"
	"github.com/dubeyaashish/itradebook-sub000/internal/infrastructure/config"
	"github.com/dubeyaashish/itradebook-sub000/pkg/logger"
)

// Dependencies carries the handlers the router wires up
type Dependencies struct {
	Config  *config.Config
	Logger  *logger.Logger
	Reports *handlers.ReportHandlers
	Admin   *handlers.AdminHandlers
	Health  *handlers.HealthHandlers
}

// SetupRoutes configures all application routes
func SetupRoutes(deps *Dependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.CORS(deps.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(deps.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	router.GET("/health", deps.Health.Health)
	router.GET("/ready", deps.Health.Ready)
	router.GET("/live", deps.Health.Live)
	router.GET("/metrics", deps.Health.Metrics())

	v1 := router.Group("/api/v1")
	{
		reports := v1.Group("/reports/daily-pl")
		{
			reports.GET("", deps.Reports.GetDailyPL)
			reports.GET("/export", deps.Reports.ExportDailyPL)
			reports.PUT("/adjustment", deps.Admin.SetAdjustment)
			reports.GET("/adjustment", deps.Admin.GetAdjustment)
		}

		v1.GET("/symbols/:symbol/evaluation", deps.Reports.EvaluateSymbol)

		admin := v1.Group("/admin")
		{
			admin.POST("/finalize", deps.Admin.FinalizeDay)
			admin.POST("/rebuild", deps.Admin.Rebuild)
			admin.GET("/stats", deps.Admin.Stats)
		}
	}

	return router
}
