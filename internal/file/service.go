package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/storage"
)

const (
	thumbnailSize = 200
	maxImageSide  = 1000
)

// UploadInput describes one upload and the checks to apply to it.
type UploadInput struct {
	FileHeader   *multipart.FileHeader
	AgentID      string
	TenantID     string
	MaxSizeBytes int64    // 0 means no limit
	AllowedTypes []string // empty allows any type
	ResizeImage  bool     // re-encode as JPEG no larger than 1000x1000
}

type Service interface {
	Upload(ctx context.Context, in UploadInput) (*File, error)
	Delete(ctx context.Context, tenantID, id string) error
	Get(ctx context.Context, tenantID, id string) (*File, error)
	Download(ctx context.Context, tenantID, id string) (io.ReadCloser, *File, error)
	DownloadThumbnail(ctx context.Context, tenantID, id string) (io.ReadCloser, *File, error)
}

type service struct {
	repo    Repository
	storage storage.Storage
	imgProc *storage.ImageProcessor
	log     *zap.Logger
	now     func() time.Time
}

func NewService(repo Repository, store storage.Storage, log *zap.Logger) Service {
	return &service{
		repo:    repo,
		storage: store,
		imgProc: storage.NewImageProcessor(),
		log:     log,
		now:     time.Now,
	}
}

func (s *service) Upload(ctx context.Context, in UploadInput) (*File, error) {
	header := in.FileHeader
	if in.MaxSizeBytes > 0 && header.Size > in.MaxSizeBytes {
		return nil, ErrFileTooLarge
	}

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	// Uploads are size-capped, so buffering is fine and allows sniffing,
	// resizing and thumbnailing from the same bytes.
	fileBytes, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read file content: %w", err)
	}
	if in.MaxSizeBytes > 0 && int64(len(fileBytes)) > in.MaxSizeBytes {
		return nil, ErrFileTooLarge
	}

	contentType := detectContentType(header, fileBytes)
	if len(in.AllowedTypes) > 0 && !slices.Contains(in.AllowedTypes, contentType) {
		return nil, ErrUnsupportedType
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if in.ResizeImage {
		normalized, err := s.imgProc.Normalize(bytes.NewReader(fileBytes), maxImageSide)
		if err != nil {
			return nil, ErrNotImage
		}
		if fileBytes, err = io.ReadAll(normalized); err != nil {
			return nil, fmt.Errorf("failed to read normalized image: %w", err)
		}
		contentType = "image/jpeg"
		ext = ".jpg"
	}

	fileID := uuid.New().String()

	// Sharding path: upload/ab/UUID.ext
	shard := fileID[:2]
	storagePath := fmt.Sprintf("upload/%s/%s%s", shard, fileID, ext)

	if err := s.storage.Save(ctx, storagePath, bytes.NewReader(fileBytes)); err != nil {
		return nil, fmt.Errorf("failed to save file to storage: %w", err)
	}

	var thumbnailPath *string
	if strings.HasPrefix(contentType, "image/") {
		thumbnailPath = s.saveThumbnail(ctx, fileBytes, fmt.Sprintf("upload/%s/%s_thumb.jpg", shard, fileID))
	}

	f := &File{
		ID:            fileID,
		TenantID:      in.TenantID,
		AgentID:       in.AgentID,
		Filename:      header.Filename,
		StoragePath:   storagePath,
		ThumbnailPath: thumbnailPath,
		ContentType:   contentType,
		Size:          int64(len(fileBytes)),
		CreatedAt:     s.now().UTC(),
	}

	if err := s.repo.Create(ctx, f); err != nil {
		s.removeBlobs(ctx, f)
		return nil, err
	}

	return f, nil
}

// saveThumbnail never fails the upload; problems are only logged.
func (s *service) saveThumbnail(ctx context.Context, content []byte, path string) *string {
	thumb, err := s.imgProc.GenerateThumbnail(bytes.NewReader(content), thumbnailSize, thumbnailSize)
	if err != nil {
		s.log.Warn("thumbnail generation failed", zap.String("path", path), zap.Error(err))
		return nil
	}
	if err := s.storage.Save(ctx, path, thumb); err != nil {
		s.log.Warn("thumbnail save failed", zap.String("path", path), zap.Error(err))
		return nil
	}
	return &path
}

func (s *service) removeBlobs(ctx context.Context, f *File) {
	if err := s.storage.Delete(ctx, f.StoragePath); err != nil {
		s.log.Warn("failed to remove stored file", zap.String("file_id", f.ID), zap.Error(err))
	}
	if f.ThumbnailPath != nil {
		if err := s.storage.Delete(ctx, *f.ThumbnailPath); err != nil {
			s.log.Warn("failed to remove stored thumbnail", zap.String("file_id", f.ID), zap.Error(err))
		}
	}
}

func (s *service) Delete(ctx context.Context, tenantID, id string) error {
	f, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.removeBlobs(ctx, f)
	return nil
}

func (s *service) Get(ctx context.Context, tenantID, id string) (*File, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *service) Download(ctx context.Context, tenantID, id string) (io.ReadCloser, *File, error) {
	f, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}

	stream, err := s.storage.Get(ctx, f.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to retrieve file from storage: %w", err)
	}

	return stream, f, nil
}

func (s *service) DownloadThumbnail(ctx context.Context, tenantID, id string) (io.ReadCloser, *File, error) {
	f, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}

	if f.ThumbnailPath == nil {
		return nil, nil, ErrNoThumbnail
	}

	stream, err := s.storage.Get(ctx, *f.ThumbnailPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to retrieve thumbnail from storage: %w", err)
	}

	return stream, f, nil
}

// detectContentType trusts the sniffed type over the client header when the
// sniffer recognises the content.
func detectContentType(header *multipart.FileHeader, content []byte) string {
	sniffed := http.DetectContentType(content)
	if sniffed != "application/octet-stream" {
		if i := strings.IndexByte(sniffed, ';'); i >= 0 {
			sniffed = sniffed[:i]
		}
		return sniffed
	}
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return sniffed
}
