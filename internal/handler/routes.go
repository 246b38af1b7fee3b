package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/middleware"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/models"
)

// RegisterTimetableRoutes mounts the timetable API on group. auth
// authenticates the caller; signed export downloads skip it because the
// token is the credential.
func RegisterTimetableRoutes(group *gin.RouterGroup, h *TimetableHandler, auth gin.HandlerFunc) {
	tt := group.Group("/timetable")
	tt.GET("/exports/:token", h.DownloadExport)

	protected := tt.Group("")
	protected.Use(auth)

	read := middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler, models.RoleViewer)
	write := middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler)

	protected.GET("/catalog", read, h.Catalog)
	protected.POST("/evaluate", read, h.Evaluate)
	protected.POST("/solve", write, h.Solve)

	protected.GET("/runs", read, h.ListRuns)
	protected.POST("/runs", write, h.StartRun)
	protected.GET("/runs/:id", read, h.GetRun)
	protected.POST("/runs/:id/cancel", write, h.CancelRun)
	protected.GET("/runs/:id/ws", read, h.StreamRun)
	protected.GET("/runs/:id/export", read, h.Export)
	protected.POST("/runs/:id/exports", read, h.PublishExport)
}
