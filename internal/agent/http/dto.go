package http

import (
	"time"

	"github.com/nekogravitycat/rental-crm-backend/internal/agent"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/request"
	"github.com/nekogravitycat/rental-crm-backend/internal/tenant"
	tenantHttp "github.com/nekogravitycat/rental-crm-backend/internal/tenant/http"
)

// RegisterRequest is the payload for POST /v1/auth/register.
type RegisterRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
}

// VerifyEmailRequest is the payload for POST /v1/auth/verify-email.
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

// ResendOTPRequest is the payload for POST /v1/auth/resend-otp.
type ResendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// LoginRequest is the payload for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateAgentRequest is the payload for POST /v1/agents.
type CreateAgentRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// UpdateAgentRequest is the payload for PATCH /v1/agents/:id.
type UpdateAgentRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ListAgentsRequest defines query parameters for GET /v1/agents.
type ListAgentsRequest struct {
	request.ListParams
	Search   string `form:"q"`
	Role     string `form:"role" binding:"omitempty,oneof=owner agent"`
	IsActive *bool  `form:"is_active"`
}

// AgentResponse is the shape of agent data returned in API responses.
type AgentResponse struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// RegisterResponse is the response for POST /v1/auth/register.
type RegisterResponse struct {
	Agent   AgentResponse `json:"agent"`
	Message string        `json:"message"`
}

// LoginResponse is the response for POST /v1/auth/login.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	Agent       AgentResponse `json:"agent"`
}

// MeResponse is the response for GET /v1/me.
type MeResponse struct {
	Agent  AgentResponse              `json:"agent"`
	Tenant *tenantHttp.TenantResponse `json:"tenant,omitempty"`
}

func NewAgentResponse(a *agent.Agent) AgentResponse {
	return AgentResponse{
		ID:            a.ID,
		TenantID:      a.TenantID,
		Email:         a.Email,
		Name:          a.Name,
		Role:          string(a.Role),
		IsActive:      a.IsActive,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
		LastLoginAt:   a.LastLoginAt,
	}
}

func newMeResponse(a *agent.Agent, t *tenant.Tenant) MeResponse {
	resp := MeResponse{Agent: NewAgentResponse(a)}
	if t != nil {
		tr := tenantHttp.NewTenantResponse(t)
		resp.Tenant = &tr
	}
	return resp
}
