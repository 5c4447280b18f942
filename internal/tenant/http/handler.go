package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/rental-crm-backend/internal/auth"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/response"
	"github.com/nekogravitycat/rental-crm-backend/internal/tenant"
)

type Handler struct {
	service tenant.Service
}

func NewHandler(service tenant.Service) *Handler {
	return &Handler{service: service}
}

// Get returns the caller's own tenant.
func (h *Handler) Get(c *gin.Context) {
	t, err := h.service.GetByID(c.Request.Context(), auth.GetTenantID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTenantResponse(t))
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	t, err := h.service.Rename(c.Request.Context(), auth.GetTenantID(c), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewTenantResponse(t))
}
