package http

import (
	"time"

	"github.com/nekogravitycat/rental-crm-backend/internal/file"
)

type FileUploadResponse struct {
	Message      string  `json:"message"`
	FileID       string  `json:"file_id"`
	URL          string  `json:"url"`
	ThumbnailURL *string `json:"thumbnail_url"`
}

type FileResponse struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
	ThumbnailURL *string   `json:"thumbnail_url"`
	CreatedAt    time.Time `json:"created_at"`
}

func thumbnailURL(f *file.File) *string {
	if f.ThumbnailPath == nil {
		return nil
	}
	t := file.ThumbnailURL(f.ID)
	return &t
}

func NewFileUploadResponse(f *file.File) FileUploadResponse {
	return FileUploadResponse{
		Message:      "file uploaded successfully",
		FileID:       f.ID,
		URL:          file.FileURL(f.ID),
		ThumbnailURL: thumbnailURL(f),
	}
}
