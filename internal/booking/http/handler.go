package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/nekogravitycat/rental-crm-backend/internal/auth"
	"github.com/nekogravitycat/rental-crm-backend/internal/booking"
	"github.com/nekogravitycat/rental-crm-backend/internal/file"
	filehttp "github.com/nekogravitycat/rental-crm-backend/internal/file/http"
	"github.com/nekogravitycat/rental-crm-backend/internal/mail"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/request"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/response"
)

const (
	vehicleImageMaxBytes = 5 * 1024 * 1024 // 5MB
	xlsxContentType      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	service     booking.Service
	fileHandler *filehttp.Handler
}

func NewHandler(service booking.Service, fileHandler *filehttp.Handler) *Handler {
	return &Handler{
		service:     service,
		fileHandler: fileHandler,
	}
}

func actor(c *gin.Context) booking.Actor {
	return booking.Actor{ID: auth.GetAgentID(c), Name: auth.GetAgentName(c)}
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	bookings, total, err := h.service.List(c.Request.Context(), req.filter(auth.GetTenantID(c)))
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Export streams the filtered bookings as an XLSX attachment.
func (h *Handler) Export(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), req.filter(auth.GetTenantID(c)), &buf); err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("bookings-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	b, err := h.service.Create(c.Request.Context(), auth.GetTenantID(c), actor(c), req.toDomain())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), auth.GetTenantID(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

// Update applies a sparse patch of tracked fields and records the changes on
// the booking timeline.
func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var patch booking.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	b, err := h.service.Update(c.Request.Context(), auth.GetTenantID(c), uri.ID, patch, auth.GetAgentName(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	if err := h.service.SoftDelete(c.Request.Context(), auth.GetTenantID(c), uri.ID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) AddNote(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	n, err := h.service.AddNote(c.Request.Context(), auth.GetTenantID(c), uri.ID, actor(c), req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, n)
}

func (h *Handler) UpdateNote(c *gin.Context) {
	var uri NoteURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	n, err := h.service.UpdateNote(c.Request.Context(), auth.GetTenantID(c), uri.ID, uri.NoteID, req.Text)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, n)
}

func (h *Handler) DeleteNote(c *gin.Context) {
	var uri NoteURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	if err := h.service.DeleteNote(c.Request.Context(), auth.GetTenantID(c), uri.ID, uri.NoteID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SendEmail sends one of the transactional booking emails to the customer.
func (h *Handler) SendEmail(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	var amount string
	if req.Amount != nil {
		amount = cast.ToString(req.Amount)
	}

	err := h.service.SendEmail(c.Request.Context(), auth.GetTenantID(c), uri.ID, actor(c), booking.EmailRequest{
		Kind:         mail.Kind(req.Type),
		Amount:       amount,
		GiftCardCode: req.GiftCardCode,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "email sent"})
}

// UploadVehicleImage stores a vehicle photo and points the booking at it.
// The change goes through the tracker so it shows up on the timeline.
func (h *Handler) UploadVehicleImage(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid request", err)
		return
	}

	tenantID := auth.GetTenantID(c)
	if _, err := h.service.GetByID(c.Request.Context(), tenantID, uri.ID); err != nil {
		response.Error(c, err)
		return
	}

	agentName := auth.GetAgentName(c)
	h.fileHandler.HandleFileUpload(c, filehttp.FileUploadConfig{
		MaxSizeBytes: vehicleImageMaxBytes,
		AllowedTypes: file.ImageTypes,
		ResizeImage:  true,
		AfterUpload: func(ctx context.Context, fileID string) error {
			_, err := h.service.Update(ctx, tenantID, uri.ID, booking.Patch{"vehicleImage": file.FileURL(fileID)}, agentName)
			return err
		},
	})
}
