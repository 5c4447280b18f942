package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nekogravitycat/rental-crm-backend/internal/auth"
	"github.com/nekogravitycat/rental-crm-backend/internal/file"
)

const (
	tenantID = "7c1d9a52-3f5e-4d39-9a4b-0f3c2f1e8b10"
	agentID  = "5e0c8f1a-2b7d-4e63-a9c1-3d4f5a6b7c88"
	fileID   = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	maxSize  = int64(1 << 20)
)

type mockFileService struct{ mock.Mock }

func (m *mockFileService) Upload(ctx context.Context, in file.UploadInput) (*file.File, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*file.File), args.Error(1)
}

func (m *mockFileService) Delete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *mockFileService) Get(ctx context.Context, tenantID, id string) (*file.File, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*file.File), args.Error(1)
}

func (m *mockFileService) Download(ctx context.Context, tenantID, id string) (io.ReadCloser, *file.File, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*file.File), args.Error(2)
}

func (m *mockFileService) DownloadThumbnail(ctx context.Context, tenantID, id string) (io.ReadCloser, *file.File, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*file.File), args.Error(2)
}

type testServer struct {
	router *gin.Engine
	files  *mockFileService
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.GenerateAccessToken(auth.Identity{
		AgentID:  agentID,
		TenantID: tenantID,
		Name:     "Alice",
		Role:     "agent",
	})
	require.NoError(t, err)

	files := new(mockFileService)
	r := gin.New()
	RegisterRoutes(r.Group("/v1"), NewHandler(files, maxSize, zap.NewNop()), auth.AuthRequired(jwtManager))
	return &testServer{router: r, files: files, token: token}
}

func (s *testServer) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, field, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func contract(withThumb bool) *file.File {
	f := &file.File{
		ID:          fileID,
		TenantID:    tenantID,
		AgentID:     agentID,
		Filename:    "contract.pdf",
		StoragePath: tenantID + "/" + fileID,
		ContentType: "application/pdf",
		Size:        11,
		CreatedAt:   time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
	if withThumb {
		thumb := tenantID + "/" + fileID + "_thumb.jpg"
		f.ThumbnailPath = &thumb
	}
	return f
}

func TestUpload(t *testing.T) {
	t.Run("stores the file for the caller", func(t *testing.T) {
		s := newTestServer(t)
		s.files.On("Upload", mock.Anything, mock.MatchedBy(func(in file.UploadInput) bool {
			return in.TenantID == tenantID &&
				in.AgentID == agentID &&
				in.MaxSizeBytes == maxSize &&
				in.FileHeader != nil &&
				in.FileHeader.Filename == "contract.pdf"
		})).Return(contract(false), nil).Once()

		w := s.upload(t, "file", "contract.pdf", []byte("hello world"))
		require.Equal(t, http.StatusOK, w.Code)

		var resp FileUploadResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, fileID, resp.FileID)
		assert.Equal(t, "/v1/files/"+fileID, resp.URL)
		assert.Nil(t, resp.ThumbnailURL)
		s.files.AssertExpectations(t)
	})

	t.Run("missing file field", func(t *testing.T) {
		s := newTestServer(t)

		w := s.upload(t, "attachment", "contract.pdf", []byte("hello world"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "file is required")
		s.files.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})

	t.Run("too large", func(t *testing.T) {
		s := newTestServer(t)
		s.files.On("Upload", mock.Anything, mock.Anything).Return(nil, file.ErrFileTooLarge).Once()

		w := s.upload(t, "file", "big.bin", []byte("x"))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("unsupported type", func(t *testing.T) {
		s := newTestServer(t)
		s.files.On("Upload", mock.Anything, mock.Anything).Return(nil, file.ErrUnsupportedType).Once()

		w := s.upload(t, "file", "script.sh", []byte("#!/bin/sh"))
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("requires a token", func(t *testing.T) {
		s := newTestServer(t)
		s.token = "not-a-jwt"

		w := s.upload(t, "file", "contract.pdf", []byte("hello world"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		s.files.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})
}

func TestGetMeta(t *testing.T) {
	t.Run("includes thumbnail url", func(t *testing.T) {
		s := newTestServer(t)
		s.files.On("Get", mock.Anything, tenantID, fileID).Return(contract(true), nil).Once()

		w := s.get("/v1/files/" + fileID + "/meta")
		require.Equal(t, http.StatusOK, w.Code)

		var resp FileResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "contract.pdf", resp.Filename)
		assert.Equal(t, int64(11), resp.Size)
		require.NotNil(t, resp.ThumbnailURL)
		assert.Equal(t, "/v1/files/"+fileID+"/thumbnail", *resp.ThumbnailURL)
	})

	t.Run("invalid id", func(t *testing.T) {
		s := newTestServer(t)

		w := s.get("/v1/files/not-a-uuid/meta")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid file id")
		s.files.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("other tenant's file is not found", func(t *testing.T) {
		s := newTestServer(t)
		s.files.On("Get", mock.Anything, tenantID, fileID).Return(nil, file.ErrNotFound).Once()

		w := s.get("/v1/files/" + fileID + "/meta")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServeFile(t *testing.T) {
	t.Run("streams content", func(t *testing.T) {
		s := newTestServer(t)
		s.files.On("Download", mock.Anything, tenantID, fileID).
			Return(io.NopCloser(strings.NewReader("hello world")), contract(false), nil).Once()

		w := s.get("/v1/files/" + fileID)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `inline; filename="contract.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "hello world", w.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		s := newTestServer(t)
		s.files.On("Download", mock.Anything, tenantID, fileID).Return(nil, nil, file.ErrNotFound).Once()

		w := s.get("/v1/files/" + fileID)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServeThumbnail(t *testing.T) {
	t.Run("always jpeg", func(t *testing.T) {
		s := newTestServer(t)
		s.files.On("DownloadThumbnail", mock.Anything, tenantID, fileID).
			Return(io.NopCloser(strings.NewReader("jpegbytes")), contract(true), nil).Once()

		w := s.get("/v1/files/" + fileID + "/thumbnail")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, `inline; filename="contract.pdf_thumb.jpg"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "jpegbytes", w.Body.String())
	})

	t.Run("no thumbnail", func(t *testing.T) {
		s := newTestServer(t)
		s.files.On("DownloadThumbnail", mock.Anything, tenantID, fileID).Return(nil, nil, file.ErrNoThumbnail).Once()

		w := s.get("/v1/files/" + fileID + "/thumbnail")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "thumbnail not available")
	})
}
