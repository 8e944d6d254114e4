package routes

import (
	"debatehub/controllers"

	"github.com/gin-gonic/gin"
)

// SetupDebateRoutes registers the debate lifecycle endpoints
func SetupDebateRoutes(router *gin.Engine) {
	debates := router.Group("/debates")
	{
		debates.POST("", controllers.CreateDebateHandler)
		debates.GET("/:id", controllers.GetDebateHandler)
		debates.POST("/:id/accept", controllers.AcceptDebateHandler)
		debates.POST("/:id/statements", controllers.SubmitStatementHandler)
		debates.POST("/:id/appeal", controllers.RequestAppealHandler)
	}
}
