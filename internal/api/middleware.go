package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/rental-crm-backend/internal/agent"
	"github.com/nekogravitycat/rental-crm-backend/internal/auth"
)

// RequireOwner ensures the authenticated agent is an active owner of its tenant.
// The role is re-read from the database so a demoted or deactivated agent loses
// access before the token expires.
// It MUST be used after auth.AuthRequired middleware.
func RequireOwner(agentService agent.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID := auth.GetAgentID(c)
		tenantID := auth.GetTenantID(c)
		if agentID == "" || tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		a, err := agentService.GetByID(c.Request.Context(), tenantID, agentID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "agent not found"})
			return
		}

		if !a.IsActive || !a.IsOwner() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: owner access required"})
			return
		}

		c.Next()
	}
}
