package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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
	"github.com/nekogravitycat/rental-crm-backend/internal/booking"
	"github.com/nekogravitycat/rental-crm-backend/internal/file"
	filehttp "github.com/nekogravitycat/rental-crm-backend/internal/file/http"
)

const (
	tenantID  = "7c1d9a52-3f5e-4d39-9a4b-0f3c2f1e8b10"
	agentID   = "0b6f3d8e-8a51-4c77-b3a4-5a2e6f9c1d22"
	bookingID = "5e0c8f1a-2b7d-4e63-a9c1-3d4f5a6b7c88"
	noteID    = "a1b2c3d4-e5f6-4a1b-8c2d-3e4f5a6b7c8d"
)

type mockService struct{ mock.Mock }

func (m *mockService) Create(ctx context.Context, tenantID string, actor booking.Actor, req booking.CreateRequest) (*booking.Booking, error) {
	args := m.Called(ctx, tenantID, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *mockService) GetByID(ctx context.Context, tenantID, id string) (*booking.Booking, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *mockService) List(ctx context.Context, filter booking.Filter) ([]*booking.Booking, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*booking.Booking), args.Int(1), args.Error(2)
}

func (m *mockService) Update(ctx context.Context, tenantID, id string, patch booking.Patch, agentName string) (*booking.Booking, error) {
	args := m.Called(ctx, tenantID, id, patch, agentName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *mockService) SoftDelete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *mockService) AddNote(ctx context.Context, tenantID, bookingID string, actor booking.Actor, text string) (*booking.Note, error) {
	args := m.Called(ctx, tenantID, bookingID, actor, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Note), args.Error(1)
}

func (m *mockService) UpdateNote(ctx context.Context, tenantID, bookingID, noteID, text string) (*booking.Note, error) {
	args := m.Called(ctx, tenantID, bookingID, noteID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Note), args.Error(1)
}

func (m *mockService) DeleteNote(ctx context.Context, tenantID, bookingID, noteID string) error {
	return m.Called(ctx, tenantID, bookingID, noteID).Error(0)
}

func (m *mockService) Export(ctx context.Context, filter booking.Filter, w io.Writer) error {
	args := m.Called(ctx, filter, w)
	if args.Error(0) == nil {
		_, _ = w.Write([]byte("xlsx"))
	}
	return args.Error(0)
}

func (m *mockService) SendEmail(ctx context.Context, tenantID, id string, actor booking.Actor, req booking.EmailRequest) error {
	return m.Called(ctx, tenantID, id, actor, req).Error(0)
}

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
	return nil, nil, args.Error(2)
}

func (m *mockFileService) DownloadThumbnail(ctx context.Context, tenantID, id string) (io.ReadCloser, *file.File, error) {
	args := m.Called(ctx, tenantID, id)
	return nil, nil, args.Error(2)
}

type testServer struct {
	router  *gin.Engine
	service *mockService
	files   *mockFileService
	token   string
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

	svc := new(mockService)
	files := new(mockFileService)
	h := NewHandler(svc, filehttp.NewHandler(files, 10<<20, zap.NewNop()))

	r := gin.New()
	RegisterRoutes(r.Group("/v1"), h, auth.AuthRequired(jwtManager))
	return &testServer{router: r, service: svc, files: files, token: token}
}

func (s *testServer) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(method, path, body string) *httptest.ResponseRecorder {
	return s.do(method, path, strings.NewReader(body), "application/json")
}

func sampleBooking() *booking.Booking {
	return &booking.Booking{
		ID:       bookingID,
		TenantID: tenantID,
		FullName: "Jane",
		Total:    99.5,
		Status:   booking.StatusModified,
		Timeline: []booking.TimelineEntry{{
			Date:      "2024-05-01T10:20:30.123Z",
			Message:   "Updated 1 field(s)",
			AgentName: "Alice",
			Changes:   []booking.ChangeRecord{{Text: `Change in Full Name: from "John" to "Jane"`}},
		}},
	}
}

func TestUpdate_RequiresAuth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPatch, "/v1/bookings/"+bookingID, strings.NewReader(`{"fullName":"Jane"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	s.service.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_MalformedJSON(t *testing.T) {
	s := newTestServer(t)

	w := s.doJSON(http.MethodPatch, "/v1/bookings/"+bookingID, `{"fullName":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	s.service.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_Success(t *testing.T) {
	for _, method := range []string{http.MethodPatch, http.MethodPut} {
		t.Run(method, func(t *testing.T) {
			s := newTestServer(t)
			patch := booking.Patch{"fullName": "Jane", "total": 99.5}
			s.service.On("Update", mock.Anything, tenantID, bookingID, patch, "Alice").Return(sampleBooking(), nil)

			w := s.doJSON(method, "/v1/bookings/"+bookingID, `{"fullName":"Jane","total":99.5}`)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "Jane", body["fullName"])
			assert.Equal(t, "MODIFIED", body["status"])
			assert.Equal(t, []any{}, body["notes"])

			timeline := body["timeline"].([]any)
			require.Len(t, timeline, 1)
			entry := timeline[0].(map[string]any)
			assert.Equal(t, "Alice", entry["agentName"])
			assert.Equal(t, "Updated 1 field(s)", entry["message"])
		})
	}
}

func TestUpdate_ServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", booking.ErrNotFound, http.StatusNotFound},
		{"invalid status", booking.ErrInvalidStatus, http.StatusBadRequest},
		{"persistence failure", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.service.On("Update", mock.Anything, tenantID, bookingID, mock.Anything, "Alice").Return(nil, tt.err)

			w := s.doJSON(http.MethodPatch, "/v1/bookings/"+bookingID, `{"status":"MODIFIED"}`)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestGet_InvalidID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/v1/bookings/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestList_BuildsTenantFilter(t *testing.T) {
	s := newTestServer(t)
	want := booking.Filter{
		TenantID:  tenantID,
		Search:    "smith",
		Status:    "BOOKED",
		Page:      2,
		PageSize:  10,
		SortBy:    "pickup_date",
		SortOrder: "ASC",
	}
	s.service.On("List", mock.Anything, want).Return([]*booking.Booking{sampleBooking()}, 11, nil)

	w := s.do(http.MethodGet, "/v1/bookings?q=smith&status=BOOKED&page=2&page_size=10&sort_by=pickup_date&sort_order=asc", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 11, body["total"])
	assert.Len(t, body["items"], 1)
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/v1/bookings?status=LOST", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport_IsNotShadowedByID(t *testing.T) {
	s := newTestServer(t)
	s.service.On("Export", mock.Anything, mock.MatchedBy(func(f booking.Filter) bool {
		return f.TenantID == tenantID && f.Status == "CANCELLED"
	}), mock.Anything).Return(nil)

	w := s.do(http.MethodGet, "/v1/bookings/export?status=CANCELLED", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=\"bookings-")
	assert.Equal(t, "xlsx", w.Body.String())
}

func TestCreate(t *testing.T) {
	s := newTestServer(t)
	s.service.On("Create", mock.Anything, tenantID, booking.Actor{ID: agentID, Name: "Alice"}, mock.MatchedBy(func(r booking.CreateRequest) bool {
		return r.FullName == "John" && r.Total == "120.00"
	})).Return(sampleBooking(), nil)

	w := s.doJSON(http.MethodPost, "/v1/bookings", `{"fullName":"John","total":"120.00"}`)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.doJSON(http.MethodPost, "/v1/bookings", `{"email":"john@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotes(t *testing.T) {
	s := newTestServer(t)
	actor := booking.Actor{ID: agentID, Name: "Alice"}
	s.service.On("AddNote", mock.Anything, tenantID, bookingID, actor, "called customer").
		Return(&booking.Note{ID: noteID, Text: "called customer", AgentName: "Alice"}, nil)
	s.service.On("UpdateNote", mock.Anything, tenantID, bookingID, noteID, "left voicemail").
		Return(nil, booking.ErrNoteNotFound)
	s.service.On("DeleteNote", mock.Anything, tenantID, bookingID, noteID).Return(nil)

	w := s.doJSON(http.MethodPost, "/v1/bookings/"+bookingID+"/notes", `{"text":"called customer"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"agentName":"Alice"`)

	w = s.doJSON(http.MethodPatch, "/v1/bookings/"+bookingID+"/notes/"+noteID, `{"text":"left voicemail"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/v1/bookings/"+bookingID+"/notes/"+noteID, nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSendEmail(t *testing.T) {
	s := newTestServer(t)
	s.service.On("SendEmail", mock.Anything, tenantID, bookingID, booking.Actor{ID: agentID, Name: "Alice"},
		booking.EmailRequest{Kind: "refund", Amount: "40.5"}).Return(nil)

	w := s.doJSON(http.MethodPost, "/v1/bookings/"+bookingID+"/emails", `{"type":"refund","amount":40.5}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.doJSON(http.MethodPost, "/v1/bookings/"+bookingID+"/emails", `{"type":"newsletter"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func imageUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "car.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadVehicleImage(t *testing.T) {
	const fileID = "f0e1d2c3-b4a5-4968-8776-655443322110"

	t.Run("applies the image url through update", func(t *testing.T) {
		s := newTestServer(t)
		s.service.On("GetByID", mock.Anything, tenantID, bookingID).Return(sampleBooking(), nil)
		s.files.On("Upload", mock.Anything, mock.MatchedBy(func(in file.UploadInput) bool {
			return in.ResizeImage && in.TenantID == tenantID && in.AgentID == agentID
		})).Return(&file.File{ID: fileID}, nil)
		s.service.On("Update", mock.Anything, tenantID, bookingID, booking.Patch{"vehicleImage": "/v1/files/" + fileID}, "Alice").
			Return(sampleBooking(), nil)

		body, ct := imageUpload(t)
		w := s.do(http.MethodPost, "/v1/bookings/"+bookingID+"/vehicle-image", body, ct)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), fileID)
		s.files.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rolls back the upload when the update fails", func(t *testing.T) {
		s := newTestServer(t)
		s.service.On("GetByID", mock.Anything, tenantID, bookingID).Return(sampleBooking(), nil)
		s.files.On("Upload", mock.Anything, mock.Anything).Return(&file.File{ID: fileID}, nil)
		s.service.On("Update", mock.Anything, tenantID, bookingID, mock.Anything, "Alice").Return(nil, errors.New("db down"))
		s.files.On("Delete", mock.Anything, tenantID, fileID).Return(nil)

		body, ct := imageUpload(t)
		w := s.do(http.MethodPost, "/v1/bookings/"+bookingID+"/vehicle-image", body, ct)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		s.files.AssertExpectations(t)
	})

	t.Run("unknown booking uploads nothing", func(t *testing.T) {
		s := newTestServer(t)
		s.service.On("GetByID", mock.Anything, tenantID, bookingID).Return(nil, booking.ErrNotFound)

		body, ct := imageUpload(t)
		w := s.do(http.MethodPost, "/v1/bookings/"+bookingID+"/vehicle-image", body, ct)
		assert.Equal(t, http.StatusNotFound, w.Code)
		s.files.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})
}
