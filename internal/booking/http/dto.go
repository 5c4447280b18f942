package http

import (
	"time"

	"github.com/nekogravitycat/rental-crm-backend/internal/booking"
	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/request"
)

// ListBookingsRequest defines query parameters for listing and exporting bookings.
type ListBookingsRequest struct {
	request.ListParams
	Q      string `form:"q"`
	Status string `form:"status" binding:"omitempty,oneof=BOOKED MODIFIED CANCELLED"`
	SortBy string `form:"sort_by" binding:"omitempty,oneof=created_at updated_at pickup_date full_name total"`
}

func (r ListBookingsRequest) filter(tenantID string) booking.Filter {
	return booking.Filter{
		TenantID:  tenantID,
		Search:    r.Q,
		Status:    r.Status,
		Page:      r.Page,
		PageSize:  r.PageSize,
		SortBy:    r.SortBy,
		SortOrder: r.NormalizedSortOrder(),
	}
}

// CreateBookingRequest uses the camelCase names the booking UI sends.
// Money fields may arrive as numbers or strings.
type CreateBookingRequest struct {
	FullName           string                    `json:"fullName" binding:"required"`
	Email              string                    `json:"email" binding:"omitempty,email"`
	PhoneNumber        string                    `json:"phoneNumber"`
	DateOfBirth        string                    `json:"dateOfBirth"`
	RentalCompany      string                    `json:"rentalCompany"`
	ConfirmationNumber string                    `json:"confirmationNumber"`
	VehicleImage       string                    `json:"vehicleImage"`
	Total              any                       `json:"total"`
	MCO                any                       `json:"mco"`
	PayableAtPickup    any                       `json:"payableAtPickup"`
	ModificationFee    []booking.ModificationFee `json:"modificationFee"`
	PickupDate         string                    `json:"pickupDate"`
	DropoffDate        string                    `json:"dropoffDate"`
	PickupTime         string                    `json:"pickupTime"`
	DropoffTime        string                    `json:"dropoffTime"`
	PickupLocation     string                    `json:"pickupLocation"`
	DropoffLocation    string                    `json:"dropoffLocation"`
	CardLast4          string                    `json:"cardLast4" binding:"omitempty,len=4,numeric"`
	Expiration         string                    `json:"expiration"`
	BillingAddress     string                    `json:"billingAddress"`
}

func (r CreateBookingRequest) toDomain() booking.CreateRequest {
	return booking.CreateRequest{
		FullName:           r.FullName,
		Email:              r.Email,
		PhoneNumber:        r.PhoneNumber,
		DateOfBirth:        r.DateOfBirth,
		RentalCompany:      r.RentalCompany,
		ConfirmationNumber: r.ConfirmationNumber,
		VehicleImage:       r.VehicleImage,
		Total:              r.Total,
		MCO:                r.MCO,
		PayableAtPickup:    r.PayableAtPickup,
		ModificationFee:    r.ModificationFee,
		PickupDate:         r.PickupDate,
		DropoffDate:        r.DropoffDate,
		PickupTime:         r.PickupTime,
		DropoffTime:        r.DropoffTime,
		PickupLocation:     r.PickupLocation,
		DropoffLocation:    r.DropoffLocation,
		CardLast4:          r.CardLast4,
		Expiration:         r.Expiration,
		BillingAddress:     r.BillingAddress,
	}
}

type NoteURI struct {
	ID     string `uri:"id" binding:"required,uuid"`
	NoteID string `uri:"noteId" binding:"required,uuid"`
}

type NoteRequest struct {
	Text string `json:"text" binding:"required"`
}

// EmailRequest selects the message sent to the customer. Amount is required
// for refund and gift_card.
type EmailRequest struct {
	Type         string `json:"type" binding:"required,oneof=confirmation modification cancellation refund gift_card"`
	Amount       any    `json:"amount"`
	GiftCardCode string `json:"giftCardCode"`
}

type BookingResponse struct {
	ID                 string                    `json:"id"`
	FullName           string                    `json:"fullName"`
	Email              string                    `json:"email"`
	PhoneNumber        string                    `json:"phoneNumber"`
	DateOfBirth        string                    `json:"dateOfBirth"`
	RentalCompany      string                    `json:"rentalCompany"`
	ConfirmationNumber string                    `json:"confirmationNumber"`
	VehicleImage       string                    `json:"vehicleImage"`
	Total              float64                   `json:"total"`
	MCO                float64                   `json:"mco"`
	PayableAtPickup    float64                   `json:"payableAtPickup"`
	ModificationFee    []booking.ModificationFee `json:"modificationFee"`
	PickupDate         string                    `json:"pickupDate"`
	DropoffDate        string                    `json:"dropoffDate"`
	PickupTime         string                    `json:"pickupTime"`
	DropoffTime        string                    `json:"dropoffTime"`
	PickupLocation     string                    `json:"pickupLocation"`
	DropoffLocation    string                    `json:"dropoffLocation"`
	CardLast4          string                    `json:"cardLast4"`
	Expiration         string                    `json:"expiration"`
	BillingAddress     string                    `json:"billingAddress"`
	Status             booking.Status            `json:"status"`
	Timeline           []booking.TimelineEntry   `json:"timeline"`
	Notes              []booking.Note            `json:"notes"`
	CreatedBy          string                    `json:"createdBy,omitempty"`
	CreatedAt          time.Time                 `json:"createdAt"`
	UpdatedAt          time.Time                 `json:"updatedAt"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		FullName:           b.FullName,
		Email:              b.Email,
		PhoneNumber:        b.PhoneNumber,
		DateOfBirth:        b.DateOfBirth,
		RentalCompany:      b.RentalCompany,
		ConfirmationNumber: b.ConfirmationNumber,
		VehicleImage:       b.VehicleImage,
		Total:              b.Total,
		MCO:                b.MCO,
		PayableAtPickup:    b.PayableAtPickup,
		ModificationFee:    orEmpty(b.ModificationFee),
		PickupDate:         b.PickupDate,
		DropoffDate:        b.DropoffDate,
		PickupTime:         b.PickupTime,
		DropoffTime:        b.DropoffTime,
		PickupLocation:     b.PickupLocation,
		DropoffLocation:    b.DropoffLocation,
		CardLast4:          b.CardLast4,
		Expiration:         b.Expiration,
		BillingAddress:     b.BillingAddress,
		Status:             b.Status,
		Timeline:           orEmpty(b.Timeline),
		Notes:              orEmpty(b.Notes),
		CreatedBy:          b.CreatedBy,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
