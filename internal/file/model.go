package file

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "file not found")
	ErrNoThumbnail     = apperror.New(http.StatusNotFound, "thumbnail not available for this file")
	ErrFileTooLarge    = apperror.New(http.StatusRequestEntityTooLarge, "file too large")
	ErrUnsupportedType = apperror.New(http.StatusUnsupportedMediaType, "unsupported file type")
	ErrNotImage        = apperror.New(http.StatusBadRequest, "file is not a valid image")
)

// ImageTypes are the content types accepted for vehicle photos.
var ImageTypes = []string{"image/jpeg", "image/png"}

// File represents an uploaded file owned by a tenant.
type File struct {
	ID            string
	TenantID      string
	AgentID       string
	Filename      string
	StoragePath   string
	ThumbnailPath *string
	ContentType   string
	Size          int64
	CreatedAt     time.Time
}

// FileURL returns the public URL for accessing a file by its ID.
func FileURL(id string) string {
	return "/v1/files/" + id
}

// ThumbnailURL returns the public URL for accessing a file's thumbnail by its ID.
func ThumbnailURL(id string) string {
	return "/v1/files/" + id + "/thumbnail"
}
