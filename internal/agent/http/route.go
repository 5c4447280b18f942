package http

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the auth and agent management routes.
// authLimiter guards the unauthenticated auth endpoints.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, ownerOnly, authLimiter gin.HandlerFunc) {
	// Public Routes
	authGroup := g.Group("/auth")
	authGroup.Use(authLimiter)
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/verify-email", h.VerifyEmail)
		authGroup.POST("/resend-otp", h.ResendOTP)
		authGroup.POST("/login", h.Login)
	}

	// Authenticated Routes
	g.GET("/me", authMiddleware, h.Me)

	agentsGroup := g.Group("/agents")
	agentsGroup.Use(authMiddleware)
	{
		agentsGroup.GET("", h.List)
		agentsGroup.POST("", ownerOnly, h.Create)
		agentsGroup.PATCH("/:id", ownerOnly, h.Update)
	}
}
