package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine. When imageDir is set, locally stored
// images are served under /images.
func NewRouter(h *Handler, imageDir string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.MaxMultipartMemory = maxUploadSize

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
	}
	config.AllowMethods = []string{
		"GET",
		"POST",
		"PATCH",
		"DELETE",
	}
	r.Use(cors.New(config))

	SetupRoutes(r, h)

	if imageDir != "" {
		r.Static("/images", imageDir)
	}
	return r
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(r gin.IRouter, h *Handler) {
	r.GET("/health", h.HealthCheck)

	// Category routes
	r.GET("/categories", h.GetCategories)
	r.GET("/categories/:id/questions", h.GetCategoryQuestions)

	// Question routes
	r.GET("/questions", h.GetQuestions)
	r.POST("/questions", h.CreateQuestion)
	r.POST("/questions/import", h.ImportQuestions)
	r.PATCH("/questions/:id", h.UpdateQuestion)
	r.DELETE("/questions/:id", h.DeleteQuestion)
	r.GET("/incorrect", h.GetIncorrect)

	r.POST("/images", h.UploadImage)

	// Learning log routes
	r.POST("/outcomes", h.RecordOutcome)
	r.GET("/summary/today", h.GetTodaySummary)
}
