package booking

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nekogravitycat/rental-crm-backend/internal/mail"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/metrics"
	"github.com/nekogravitycat/rental-crm-backend/internal/tenant"
)

// exportPageSize is how many rows Export reads per query.
const exportPageSize = 100

// CreateRequest carries the fields of a new booking. Numeric fields accept
// whatever the client sent and are coerced the same way updates are.
type CreateRequest struct {
	FullName           string
	Email              string
	PhoneNumber        string
	DateOfBirth        string
	RentalCompany      string
	ConfirmationNumber string
	VehicleImage       string
	Total              any
	MCO                any
	PayableAtPickup    any
	ModificationFee    []ModificationFee
	PickupDate         string
	DropoffDate        string
	PickupTime         string
	DropoffTime        string
	PickupLocation     string
	DropoffLocation    string
	CardLast4          string
	Expiration         string
	BillingAddress     string
}

type EmailRequest struct {
	Kind         mail.Kind
	Amount       string
	GiftCardCode string
}

type Service interface {
	Create(ctx context.Context, tenantID string, actor Actor, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, tenantID, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	Update(ctx context.Context, tenantID, id string, patch Patch, agentName string) (*Booking, error)
	SoftDelete(ctx context.Context, tenantID, id string) error

	AddNote(ctx context.Context, tenantID, bookingID string, actor Actor, text string) (*Note, error)
	UpdateNote(ctx context.Context, tenantID, bookingID, noteID, text string) (*Note, error)
	DeleteNote(ctx context.Context, tenantID, bookingID, noteID string) error

	Export(ctx context.Context, filter Filter, w io.Writer) error
	SendEmail(ctx context.Context, tenantID, id string, actor Actor, req EmailRequest) error
}

type service struct {
	repo     Repository
	tracker  *Tracker
	tenants  tenant.Service
	mailer   mail.Mailer
	composer *mail.Composer
	log      *zap.Logger
}

func NewService(
	repo Repository,
	tracker *Tracker,
	tenants tenant.Service,
	mailer mail.Mailer,
	composer *mail.Composer,
	log *zap.Logger,
) Service {
	return &service{
		repo:     repo,
		tracker:  tracker,
		tenants:  tenants,
		mailer:   mailer,
		composer: composer,
		log:      log,
	}
}

func (s *service) Create(ctx context.Context, tenantID string, actor Actor, req CreateRequest) (*Booking, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, ErrNameRequired
	}

	b := &Booking{
		TenantID:           tenantID,
		FullName:           name,
		Email:              strings.TrimSpace(req.Email),
		PhoneNumber:        req.PhoneNumber,
		DateOfBirth:        req.DateOfBirth,
		RentalCompany:      req.RentalCompany,
		ConfirmationNumber: req.ConfirmationNumber,
		VehicleImage:       req.VehicleImage,
		Total:              toNumber(req.Total),
		MCO:                toNumber(req.MCO),
		PayableAtPickup:    toNumber(req.PayableAtPickup),
		ModificationFee:    nonNil(req.ModificationFee),
		PickupDate:         req.PickupDate,
		DropoffDate:        req.DropoffDate,
		PickupTime:         req.PickupTime,
		DropoffTime:        req.DropoffTime,
		PickupLocation:     req.PickupLocation,
		DropoffLocation:    req.DropoffLocation,
		CardLast4:          req.CardLast4,
		Expiration:         req.Expiration,
		BillingAddress:     req.BillingAddress,
		Status:             StatusBooked,
		Timeline:           []TimelineEntry{s.tracker.NewEntry("New booking created", actor.Name)},
		Notes:              []Note{},
		CreatedBy:          actor.ID,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) GetByID(ctx context.Context, tenantID, id string) (*Booking, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.Status != "" && !Status(filter.Status).Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

// Update runs the tracker over patch and persists whatever it staged. A patch
// that changes nothing returns the stored booking without a write.
func (s *service) Update(ctx context.Context, tenantID, id string, patch Patch, agentName string) (*Booking, error) {
	if raw, ok := patch["status"]; ok {
		if !Status(normalize(raw)).Valid() {
			return nil, ErrInvalidStatus
		}
	}

	existing, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	cs := s.tracker.ComputeUpdate(*existing, patch, agentName)
	if cs.Empty() {
		metrics.ObserveBookingUpdate(metrics.UpdateNoop)
		return existing, nil
	}

	updated, err := s.repo.ApplyChanges(ctx, tenantID, id, cs)
	if err != nil {
		metrics.ObserveBookingUpdate(metrics.UpdateFailed)
		return nil, err
	}

	metrics.ObserveBookingUpdate(metrics.UpdateChanged)
	for _, name := range cs.ChangedFields() {
		metrics.IncFieldChange(name)
	}
	s.log.Info("booking updated",
		zap.String("booking_id", id),
		zap.String("tenant_id", tenantID),
		zap.Strings("fields", cs.ChangedFields()),
	)
	return updated, nil
}

func (s *service) SoftDelete(ctx context.Context, tenantID, id string) error {
	return s.repo.SoftDelete(ctx, tenantID, id)
}

func (s *service) AddNote(ctx context.Context, tenantID, bookingID string, actor Actor, text string) (*Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyNote
	}

	now := s.tracker.now().UTC()
	note := Note{
		ID:        uuid.NewString(),
		Text:      text,
		AgentName: actor.Name,
		AgentID:   actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.repo.AddNote(ctx, tenantID, bookingID, note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (s *service) UpdateNote(ctx context.Context, tenantID, bookingID, noteID, text string) (*Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyNote
	}

	b, err := s.repo.UpdateNote(ctx, tenantID, bookingID, noteID, text, s.tracker.now())
	if err != nil {
		return nil, err
	}
	for i := range b.Notes {
		if b.Notes[i].ID == noteID {
			return &b.Notes[i], nil
		}
	}
	return nil, ErrNoteNotFound
}

func (s *service) DeleteNote(ctx context.Context, tenantID, bookingID, noteID string) error {
	_, err := s.repo.DeleteNote(ctx, tenantID, bookingID, noteID)
	return err
}

// Export writes every booking matching filter, ignoring its pagination.
func (s *service) Export(ctx context.Context, filter Filter, w io.Writer) error {
	if filter.Status != "" && !Status(filter.Status).Valid() {
		return ErrInvalidStatus
	}
	filter.PageSize = exportPageSize

	var all []*Booking
	for page := 1; ; page++ {
		filter.Page = page
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return err
		}
		all = append(all, items...)
		if len(items) == 0 || len(all) >= total {
			break
		}
	}
	return writeWorkbook(all, w)
}

// SendEmail sends a transactional message to the booking's customer and
// records it on the timeline.
func (s *service) SendEmail(ctx context.Context, tenantID, id string, actor Actor, req EmailRequest) error {
	b, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(b.Email) == "" {
		return ErrNoEmail
	}

	t, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return err
	}

	msg, err := s.composer.Booking(req.Kind, mail.BookingDetails{
		AgencyName:         t.Name,
		CustomerName:       b.FullName,
		Email:              b.Email,
		ConfirmationNumber: b.ConfirmationNumber,
		RentalCompany:      b.RentalCompany,
		PickupDate:         b.PickupDate,
		PickupTime:         b.PickupTime,
		PickupLocation:     b.PickupLocation,
		DropoffDate:        b.DropoffDate,
		DropoffTime:        b.DropoffTime,
		DropoffLocation:    b.DropoffLocation,
		Total:              formatNumber(b.Total),
	}, mail.Extras{Amount: req.Amount, GiftCardCode: req.GiftCardCode})
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		return apperror.Wrap(err, http.StatusBadGateway, "failed to send email")
	}

	entry := s.tracker.NewEntry(emailEntryMessage(req.Kind, b.Email), actor.Name)
	if _, err := s.repo.ApplyChanges(ctx, tenantID, id, ChangeSet{Entry: &entry}); err != nil {
		// The mail is already out, so only log.
		s.log.Warn("failed to record sent email on timeline",
			zap.String("booking_id", id),
			zap.Error(err),
		)
	}
	return nil
}

func emailEntryMessage(kind mail.Kind, to string) string {
	label := strings.ReplaceAll(string(kind), "_", " ")
	return fmt.Sprintf("Sent %s email to %s", label, to)
}
