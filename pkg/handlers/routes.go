package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r *gin.Engine, h *Handler) {
	// Admin interface - serve static files from embedded FS
	r.StaticFS("/static", h.GetStaticFS())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Grouper API",
			"version": Version,
		})
	})
	r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))

	r.GET("/admin", h.AdminInterface)
	r.POST("/admin/login", h.Login)

	// Admin Endpoints
	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	// Grouping Endpoints
	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/group", h.GroupJSON)
		api.POST("/group/csv", h.GroupCSV)
		api.POST("/validate", h.ValidateInput)
		api.GET("/suggestions", h.Suggestions)
		api.GET("/usage", h.GetMyUsage)

		api.GET("/sessions", h.ListSessions)
		api.POST("/sessions", h.CreateSession)
		api.GET("/sessions/:id", h.GetSession)
		api.PUT("/sessions/:id", h.UpdateSession)
		api.DELETE("/sessions/:id", h.DeleteSession)

		api.POST("/sessions/:id/people", h.AddPerson)
		api.PUT("/sessions/:id/people/:pid", h.UpdatePerson)
		api.DELETE("/sessions/:id/people/:pid", h.RemovePerson)
		api.PUT("/sessions/:id/preferences/:pid", h.SetPreferences)

		api.POST("/sessions/:id/group", h.GroupSession)
		api.GET("/sessions/:id/history", h.ListHistory)
		api.DELETE("/sessions/:id/history", h.ClearHistory)
		api.DELETE("/sessions/:id/history/:rid", h.DeleteResult)
		api.GET("/sessions/:id/history/:rid/xlsx", h.ResultXLSX)
		api.GET("/sessions/:id/history/:rid/stats", h.ResultStats)

		api.GET("/sessions/:id/export", h.ExportSession)
		api.GET("/export", h.ExportAll)
		api.POST("/import", h.ImportSessions)
		api.POST("/import/validate", h.ValidateImport)
	}
}
