package http

import (
	"time"

	"github.com/nekogravitycat/rental-crm-backend/internal/tenant"
)

type TenantResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// UpdateTenantRequest is the payload for PATCH /tenant.
type UpdateTenantRequest struct {
	Name string `json:"name" binding:"required"`
}

func NewTenantResponse(t *tenant.Tenant) TenantResponse {
	return TenantResponse{
		ID:         t.ID,
		Name:       t.Name,
		IsVerified: t.IsVerified,
		CreatedAt:  t.CreatedAt,
	}
}
