package app

import (
	"excel_interview_backend/docs"
	"excel_interview_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)
		api.GET("/questions", c.question.ListQuestions)

		sessions := api.Group("/sessions")
		{
			sessions.POST("", c.session.CreateSession)
			sessions.GET("/:id/question", c.session.NextQuestion)
			sessions.POST("/:id/answer", c.session.SubmitAnswer)
			sessions.GET("/:id/report", c.session.GetReport)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/questions", c.question.CreateQuestion)
			admin.POST("/questions/generate", c.question.GenerateQuestions)
		}
	}
}
