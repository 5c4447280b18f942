package auth

import "github.com/gin-gonic/gin"

const (
	keyAgentID   = "agentID"
	keyTenantID  = "tenantID"
	keyAgentName = "agentName"
	keyRole      = "agentRole"
)

func getString(c *gin.Context, key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetAgentID returns the authenticated agent's ID or empty string.
func GetAgentID(c *gin.Context) string { return getString(c, keyAgentID) }

// GetTenantID returns the authenticated agent's tenant or empty string.
func GetTenantID(c *gin.Context) string { return getString(c, keyTenantID) }

// GetAgentName returns the display name carried in the token, possibly empty.
func GetAgentName(c *gin.Context) string { return getString(c, keyAgentName) }

func GetRole(c *gin.Context) string { return getString(c, keyRole) }

// GetIdentity collects everything AuthRequired stored on the context.
func GetIdentity(c *gin.Context) Identity {
	return Identity{
		AgentID:  GetAgentID(c),
		TenantID: GetTenantID(c),
		Name:     GetAgentName(c),
		Role:     GetRole(c),
	}
}
