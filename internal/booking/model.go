package booking

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/apperror"
)

var (
	ErrNotFound      = apperror.New(http.StatusNotFound, "booking not found")
	ErrNoteNotFound  = apperror.New(http.StatusNotFound, "note not found")
	ErrInvalidStatus = apperror.New(http.StatusBadRequest, "invalid booking status")
	ErrNameRequired  = apperror.New(http.StatusBadRequest, "fullName is required")
	ErrEmptyNote     = apperror.New(http.StatusBadRequest, "note text is required")
	ErrNoEmail       = apperror.New(http.StatusBadRequest, "booking has no customer email")
	ErrInvalidInput  = apperror.New(http.StatusBadRequest, "invalid input parameters")
)

type Status string

const (
	StatusBooked    Status = "BOOKED"
	StatusModified  Status = "MODIFIED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusBooked, StatusModified, StatusCancelled:
		return true
	}
	return false
}

// TimelineDateLayout is ISO-8601 UTC with milliseconds.
const TimelineDateLayout = "2006-01-02T15:04:05.000Z"

// Booking is a single car-rental reservation of a tenant.
type Booking struct {
	ID       string
	TenantID string

	FullName    string
	Email       string
	PhoneNumber string
	DateOfBirth string

	RentalCompany      string
	ConfirmationNumber string
	VehicleImage       string

	Total           float64
	MCO             float64
	PayableAtPickup float64
	ModificationFee []ModificationFee

	PickupDate      string
	DropoffDate     string
	PickupTime      string
	DropoffTime     string
	PickupLocation  string
	DropoffLocation string

	CardLast4      string
	Expiration     string
	BillingAddress string

	Status    Status
	IsDeleted bool
	Timeline  []TimelineEntry
	Notes     []Note
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ModificationFee is one charge added after the booking was made. Charge is
// kept as the string the agent typed, e.g. "25.00".
type ModificationFee struct {
	Charge string `json:"charge"`
}

type ChangeRecord struct {
	Text string `json:"text"`
}

// TimelineEntry is an append-only audit record. Entries are never edited.
type TimelineEntry struct {
	Date      string         `json:"date"`
	Message   string         `json:"message"`
	AgentName string         `json:"agentName"`
	Changes   []ChangeRecord `json:"changes"`
}

type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	AgentName string    `json:"agentName"`
	AgentID   string    `json:"agentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Filter struct {
	TenantID  string
	Search    string
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Actor identifies the agent performing an operation.
type Actor struct {
	ID   string
	Name string
}
