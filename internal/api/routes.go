package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.Health)

	api := router.Group("/api")
	{
		api.GET("/preview", handler.GetPreview)
		api.GET("/listings", handler.GetListings)
		api.GET("/stats", handler.GetStats)
	}
}
