package routes

import (
	"debatehub/controllers"
	"debatehub/middlewares"

	"github.com/gin-gonic/gin"
)

// SetupCronRoutes registers the trigger surface polled by the external cron
// dispatcher
func SetupCronRoutes(router *gin.Engine, secret string) {
	cron := router.Group("/cron")
	cron.Use(middlewares.CronAuthMiddleware(secret))
	{
		cron.POST("/sweep", controllers.SweepHandler)
		cron.POST("/respond", controllers.RespondHandler)
		cron.POST("/appeals", controllers.AppealsHandler)
	}
}
