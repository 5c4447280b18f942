package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/rental-crm-backend/internal/auth"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/request"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/response"
	"github.com/nekogravitycat/rental-crm-backend/internal/rentalcompany"
)

type Handler struct {
	service rentalcompany.Service
}

func NewHandler(service rentalcompany.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var req ListRentalCompaniesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	sortOrder := "ASC"
	if req.SortOrder != "" {
		sortOrder = req.NormalizedSortOrder()
	}

	rcs, total, err := h.service.List(c.Request.Context(), rentalcompany.Filter{
		TenantID:  auth.GetTenantID(c),
		Search:    req.Q,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: sortOrder,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]RentalCompanyResponse, len(rcs))
	for i, rc := range rcs {
		items[i] = NewRentalCompanyResponse(rc)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	rc, err := h.service.Create(c.Request.Context(), rentalcompany.CreateRequest{
		TenantID: auth.GetTenantID(c),
		Name:     body.Name,
		Code:     body.Code,
		Phone:    body.Phone,
		Website:  body.Website,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewRentalCompanyResponse(rc))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	rc, err := h.service.GetByID(c.Request.Context(), auth.GetTenantID(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewRentalCompanyResponse(rc))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	rc, err := h.service.Update(c.Request.Context(), auth.GetTenantID(c), uri.ID, rentalcompany.UpdateRequest{
		Name:    body.Name,
		Code:    body.Code,
		Phone:   body.Phone,
		Website: body.Website,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewRentalCompanyResponse(rc))
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), auth.GetTenantID(c), uri.ID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
