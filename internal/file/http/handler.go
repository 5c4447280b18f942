package http

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nekogravitycat/rental-crm-backend/internal/auth"
	"github.com/nekogravitycat/rental-crm-backend/internal/file"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/request"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/response"
)

type Handler struct {
	fileService  file.Service
	maxSizeBytes int64
	log          *zap.Logger
}

func NewHandler(fileService file.Service, maxSizeBytes int64, log *zap.Logger) *Handler {
	return &Handler{
		fileService:  fileService,
		maxSizeBytes: maxSizeBytes,
		log:          log,
	}
}

// Upload stores a generic attachment for the caller's tenant.
func (h *Handler) Upload(c *gin.Context) {
	h.HandleFileUpload(c, FileUploadConfig{MaxSizeBytes: h.maxSizeBytes})
}

// Get returns file metadata.
func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid file id", err)
		return
	}

	f, err := h.fileService.Get(c.Request.Context(), auth.GetTenantID(c), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, FileResponse{
		ID:           f.ID,
		Filename:     f.Filename,
		ContentType:  f.ContentType,
		Size:         f.Size,
		URL:          file.FileURL(f.ID),
		ThumbnailURL: thumbnailURL(f),
		CreatedAt:    f.CreatedAt,
	})
}

// ServeFile serves the file content by ID
func (h *Handler) ServeFile(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid file id", err)
		return
	}

	stream, fileInfo, err := h.fileService.Download(c.Request.Context(), auth.GetTenantID(c), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Type", fileInfo.ContentType)
	c.Header("Content-Disposition", "inline; filename=\""+fileInfo.Filename+"\"")

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, stream); err != nil {
		// Headers are already sent; nothing to report to the client.
		h.log.Warn("file stream interrupted", zap.String("file_id", req.ID), zap.Error(err))
	}
}

// ServeThumbnail serves the thumbnail image by file ID
func (h *Handler) ServeThumbnail(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BadRequest(c, "invalid file id", err)
		return
	}

	stream, fileInfo, err := h.fileService.DownloadThumbnail(c.Request.Context(), auth.GetTenantID(c), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Close()

	// Thumbnails are always JPEG.
	c.Header("Content-Type", "image/jpeg")
	c.Header("Content-Disposition", "inline; filename=\""+fileInfo.Filename+"_thumb.jpg\"")

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, stream); err != nil {
		h.log.Warn("thumbnail stream interrupted", zap.String("file_id", req.ID), zap.Error(err))
	}
}
