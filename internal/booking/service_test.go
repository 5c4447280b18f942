package booking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/nekogravitycat/rental-crm-backend/internal/mail"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/rental-crm-backend/internal/tenant"
)

const (
	testTenant  = "tenant-1"
	testBooking = "booking-1"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Create(ctx context.Context, b *Booking) error {
	args := m.Called(ctx, b)
	if args.Error(0) == nil {
		b.ID = testBooking
	}
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, tenantID, id string) (*Booking, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *mockRepo) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Booking), args.Int(1), args.Error(2)
}

func (m *mockRepo) ApplyChanges(ctx context.Context, tenantID, id string, cs ChangeSet) (*Booking, error) {
	args := m.Called(ctx, tenantID, id, cs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *mockRepo) SoftDelete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

func (m *mockRepo) AddNote(ctx context.Context, tenantID, bookingID string, note Note) (*Booking, error) {
	args := m.Called(ctx, tenantID, bookingID, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *mockRepo) UpdateNote(ctx context.Context, tenantID, bookingID, noteID, text string, at time.Time) (*Booking, error) {
	args := m.Called(ctx, tenantID, bookingID, noteID, text, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *mockRepo) DeleteNote(ctx context.Context, tenantID, bookingID, noteID string) (*Booking, error) {
	args := m.Called(ctx, tenantID, bookingID, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

type stubTenants struct {
	tenant *tenant.Tenant
	err    error
}

func (s *stubTenants) GetByID(context.Context, string) (*tenant.Tenant, error) {
	return s.tenant, s.err
}

func (s *stubTenants) Rename(context.Context, string, string) (*tenant.Tenant, error) {
	return s.tenant, s.err
}

func (s *stubTenants) MarkVerified(context.Context, string) error { return s.err }

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (r *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

var serviceNow = time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)

type fixture struct {
	repo    *mockRepo
	mailer  *recordingMailer
	service Service
}

func newFixture() *fixture {
	repo := new(mockRepo)
	mailer := &recordingMailer{}
	tenants := &stubTenants{tenant: &tenant.Tenant{ID: testTenant, Name: "Sunny Rentals"}}
	tracker := NewTrackerWithClock(func() time.Time { return serviceNow })
	return &fixture{
		repo:    repo,
		mailer:  mailer,
		service: NewService(repo, tracker, tenants, mailer, mail.NewComposer(), zap.NewNop()),
	}
}

func storedBooking() *Booking {
	return &Booking{
		ID:                 testBooking,
		TenantID:           testTenant,
		FullName:           "John",
		Email:              "john@example.com",
		ConfirmationNumber: "CONF-1",
		RentalCompany:      "Hertz",
		Total:              120,
		Status:             StatusBooked,
		Timeline:           []TimelineEntry{{Date: "2024-04-01T00:00:00.000Z", Message: "New booking created", Changes: []ChangeRecord{}}},
		Notes:              []Note{},
	}
}

func TestService_Create(t *testing.T) {
	t.Run("requires a name", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.Create(context.Background(), testTenant, Actor{}, CreateRequest{FullName: "  "})
		assert.ErrorIs(t, err, ErrNameRequired)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("stores a booked reservation with a creation entry", func(t *testing.T) {
		f := newFixture()
		f.repo.On("Create", mock.Anything, mock.AnythingOfType("*booking.Booking")).Return(nil)

		b, err := f.service.Create(context.Background(), testTenant, Actor{ID: "agent-1", Name: "Alice"}, CreateRequest{
			FullName: "John Smith",
			Total:    "249.99",
			MCO:      nil,
		})
		require.NoError(t, err)

		assert.Equal(t, testBooking, b.ID)
		assert.Equal(t, testTenant, b.TenantID)
		assert.Equal(t, StatusBooked, b.Status)
		assert.Equal(t, 249.99, b.Total)
		assert.Zero(t, b.MCO)
		assert.Equal(t, "agent-1", b.CreatedBy)
		assert.NotNil(t, b.ModificationFee)
		require.Len(t, b.Timeline, 1)
		assert.Equal(t, "New booking created", b.Timeline[0].Message)
		assert.Equal(t, "Alice", b.Timeline[0].AgentName)
		assert.Equal(t, "2024-05-01T10:20:30.000Z", b.Timeline[0].Date)
		assert.Empty(t, b.Timeline[0].Changes)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unknown status before loading", func(t *testing.T) {
		for _, status := range []any{"ARCHIVED", "", nil} {
			f := newFixture()
			_, err := f.service.Update(ctx, testTenant, testBooking, Patch{"status": status}, "Alice")
			assert.ErrorIs(t, err, ErrInvalidStatus, "status %v", status)
			f.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
		}
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", ctx, testTenant, testBooking).Return(nil, ErrNotFound)

		_, err := f.service.Update(ctx, testTenant, testBooking, Patch{"fullName": "Jane"}, "Alice")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("noop skips the write", func(t *testing.T) {
		f := newFixture()
		existing := storedBooking()
		f.repo.On("GetByID", ctx, testTenant, testBooking).Return(existing, nil)

		got, err := f.service.Update(ctx, testTenant, testBooking, Patch{"fullName": "John", "total": "120"}, "Alice")
		require.NoError(t, err)
		assert.Same(t, existing, got)
		f.repo.AssertNotCalled(t, "ApplyChanges", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("persists staged changes", func(t *testing.T) {
		f := newFixture()
		existing := storedBooking()
		f.repo.On("GetByID", ctx, testTenant, testBooking).Return(existing, nil)

		var staged ChangeSet
		updated := storedBooking()
		updated.FullName = "Jane"
		updated.Status = StatusModified
		f.repo.On("ApplyChanges", ctx, testTenant, testBooking, mock.AnythingOfType("booking.ChangeSet")).
			Run(func(args mock.Arguments) { staged = args.Get(3).(ChangeSet) }).
			Return(updated, nil)

		got, err := f.service.Update(ctx, testTenant, testBooking, Patch{"fullName": "Jane", "status": "MODIFIED"}, "Alice")
		require.NoError(t, err)
		assert.Equal(t, "Jane", got.FullName)

		require.NotNil(t, staged.Entry)
		assert.Equal(t, "Updated 2 field(s)", staged.Entry.Message)
		assert.Equal(t, "Alice", staged.Entry.AgentName)
		assert.Equal(t, map[string]any{"fullName": "Jane", "status": "MODIFIED"}, staged.Updates)
	})

	t.Run("persistence failure is returned", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", ctx, testTenant, testBooking).Return(storedBooking(), nil)
		f.repo.On("ApplyChanges", ctx, testTenant, testBooking, mock.Anything).Return(nil, errors.New("db down"))

		_, err := f.service.Update(ctx, testTenant, testBooking, Patch{"email": "new@example.com"}, "Alice")
		assert.EqualError(t, err, "db down")
	})
}

func TestService_List(t *testing.T) {
	f := newFixture()
	f.repo.On("List", mock.Anything, Filter{TenantID: testTenant, Page: 1, PageSize: 20}).
		Return([]*Booking{storedBooking()}, 1, nil)

	items, total, err := f.service.List(context.Background(), Filter{TenantID: testTenant})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, total)

	_, _, err = f.service.List(context.Background(), Filter{TenantID: testTenant, Status: "LOST"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_Notes(t *testing.T) {
	ctx := context.Background()

	t.Run("add rejects empty text", func(t *testing.T) {
		f := newFixture()
		_, err := f.service.AddNote(ctx, testTenant, testBooking, Actor{Name: "Alice"}, " \n ")
		assert.ErrorIs(t, err, ErrEmptyNote)
	})

	t.Run("add stamps id and author", func(t *testing.T) {
		f := newFixture()
		f.repo.On("AddNote", ctx, testTenant, testBooking, mock.AnythingOfType("booking.Note")).Return(storedBooking(), nil)

		n, err := f.service.AddNote(ctx, testTenant, testBooking, Actor{ID: "agent-1", Name: "Alice"}, " called customer ")
		require.NoError(t, err)
		assert.Len(t, n.ID, 36)
		assert.Equal(t, "called customer", n.Text)
		assert.Equal(t, "Alice", n.AgentName)
		assert.Equal(t, "agent-1", n.AgentID)
		assert.Equal(t, serviceNow, n.CreatedAt)
	})

	t.Run("update returns the stored note", func(t *testing.T) {
		f := newFixture()
		stored := storedBooking()
		stored.Notes = []Note{{ID: "n1", Text: "old"}, {ID: "n2", Text: "edited"}}
		f.repo.On("UpdateNote", ctx, testTenant, testBooking, "n2", "edited", serviceNow).Return(stored, nil)

		n, err := f.service.UpdateNote(ctx, testTenant, testBooking, "n2", "edited")
		require.NoError(t, err)
		assert.Equal(t, "n2", n.ID)
		assert.Equal(t, "edited", n.Text)
	})

	t.Run("delete passes through not found", func(t *testing.T) {
		f := newFixture()
		f.repo.On("DeleteNote", ctx, testTenant, testBooking, "missing").Return(nil, ErrNoteNotFound)

		err := f.service.DeleteNote(ctx, testTenant, testBooking, "missing")
		assert.ErrorIs(t, err, ErrNoteNotFound)
	})
}

func TestService_Export(t *testing.T) {
	f := newFixture()

	page := func(n, offset int) []*Booking {
		out := make([]*Booking, n)
		for i := range out {
			b := storedBooking()
			b.FullName = fmt.Sprintf("Customer %d", offset+i)
			b.ModificationFee = []ModificationFee{{Charge: "10"}, {Charge: "25.00"}}
			out[i] = b
		}
		return out
	}
	f.repo.On("List", mock.Anything, Filter{TenantID: testTenant, Page: 1, PageSize: exportPageSize}).Return(page(100, 0), 130, nil)
	f.repo.On("List", mock.Anything, Filter{TenantID: testTenant, Page: 2, PageSize: exportPageSize}).Return(page(30, 100), 130, nil)

	var buf bytes.Buffer
	require.NoError(t, f.service.Export(context.Background(), Filter{TenantID: testTenant, Page: 4, PageSize: 5}, &buf))
	f.repo.AssertExpectations(t)

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 131)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, "Customer 0", rows[1][1])
	assert.Equal(t, "Customer 129", rows[130][1])
	assert.Equal(t, "10, 25.00", rows[1][15])
	assert.Equal(t, "BOOKED", rows[1][16])
}

func TestService_SendEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a customer email", func(t *testing.T) {
		f := newFixture()
		b := storedBooking()
		b.Email = ""
		f.repo.On("GetByID", ctx, testTenant, testBooking).Return(b, nil)

		err := f.service.SendEmail(ctx, testTenant, testBooking, Actor{Name: "Alice"}, EmailRequest{Kind: mail.KindConfirmation})
		assert.ErrorIs(t, err, ErrNoEmail)
	})

	t.Run("sends and records on timeline", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", ctx, testTenant, testBooking).Return(storedBooking(), nil)

		var staged ChangeSet
		f.repo.On("ApplyChanges", ctx, testTenant, testBooking, mock.AnythingOfType("booking.ChangeSet")).
			Run(func(args mock.Arguments) { staged = args.Get(3).(ChangeSet) }).
			Return(storedBooking(), nil)

		err := f.service.SendEmail(ctx, testTenant, testBooking, Actor{Name: "Alice"}, EmailRequest{Kind: mail.KindConfirmation})
		require.NoError(t, err)

		require.Len(t, f.mailer.sent, 1)
		assert.Equal(t, "john@example.com", f.mailer.sent[0].To)
		assert.Contains(t, f.mailer.sent[0].Body, "CONF-1")
		assert.Contains(t, f.mailer.sent[0].Body, "Sunny Rentals")

		require.NotNil(t, staged.Entry)
		assert.Equal(t, "Sent confirmation email to john@example.com", staged.Entry.Message)
		assert.Empty(t, staged.Updates)
	})

	t.Run("composer validation is returned", func(t *testing.T) {
		f := newFixture()
		f.repo.On("GetByID", ctx, testTenant, testBooking).Return(storedBooking(), nil)

		err := f.service.SendEmail(ctx, testTenant, testBooking, Actor{}, EmailRequest{Kind: mail.KindRefund})
		assert.ErrorIs(t, err, mail.ErrAmountMissing)
		assert.Empty(t, f.mailer.sent)
	})

	t.Run("mailer failure is a bad gateway", func(t *testing.T) {
		f := newFixture()
		f.mailer.err = errors.New("smtp down")
		f.repo.On("GetByID", ctx, testTenant, testBooking).Return(storedBooking(), nil)

		err := f.service.SendEmail(ctx, testTenant, testBooking, Actor{}, EmailRequest{Kind: mail.KindCancellation})
		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusBadGateway, appErr.Code)
		f.repo.AssertNotCalled(t, "ApplyChanges", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
