package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers rental company routes. Writes are owner only.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, ownerOnly gin.HandlerFunc) {
	group := g.Group("/rental-companies")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.POST("", ownerOnly, h.Create)
		group.PATCH("/:id", ownerOnly, h.Update)
		group.DELETE("/:id", ownerOnly, h.Delete)
	}
}
