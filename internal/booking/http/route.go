package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.GET("/export", h.Export)

		group.GET("/:id", h.Get)
		group.PATCH("/:id", h.Update)
		group.PUT("/:id", h.Update)
		group.DELETE("/:id", h.Delete)

		group.POST("/:id/notes", h.AddNote)
		group.PATCH("/:id/notes/:noteId", h.UpdateNote)
		group.DELETE("/:id/notes/:noteId", h.DeleteNote)

		group.POST("/:id/emails", h.SendEmail)
		group.POST("/:id/vehicle-image", h.UploadVehicleImage)
	}
}
