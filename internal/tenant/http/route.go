package http

import "github.com/gin-gonic/gin"

func RegisterRoutes(r gin.IRouter, h *Handler, authMiddleware, ownerOnly gin.HandlerFunc) {
	group := r.Group("/tenant")
	group.Use(authMiddleware)
	{
		group.GET("", h.Get)
		group.PATCH("", ownerOnly, h.Update)
	}
}
