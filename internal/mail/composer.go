package mail

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/apperror"
)

var (
	ErrUnknownKind   = apperror.New(http.StatusBadRequest, "unknown email type")
	ErrAmountMissing = apperror.New(http.StatusBadRequest, "amount is required for this email type")
	ErrCodeMissing   = apperror.New(http.StatusBadRequest, "giftCardCode is required for gift card emails")
)

// Kind selects a transactional booking email.
type Kind string

const (
	KindConfirmation Kind = "confirmation"
	KindModification Kind = "modification"
	KindCancellation Kind = "cancellation"
	KindRefund       Kind = "refund"
	KindGiftCard     Kind = "gift_card"
)

// BookingDetails is the booking data the templates render.
type BookingDetails struct {
	AgencyName         string
	CustomerName       string
	Email              string
	ConfirmationNumber string
	RentalCompany      string
	PickupDate         string
	PickupTime         string
	PickupLocation     string
	DropoffDate        string
	DropoffTime        string
	DropoffLocation    string
	Total              string
}

// Extras carries the fields only some kinds need.
type Extras struct {
	Amount       string
	GiftCardCode string
}

const otpTemplate = `Hello {{.Name}},

Your verification code is {{.Code}}.
It expires in {{.Minutes}} minutes. If you did not sign up, you can ignore this email.
`

const bookingHeader = `Hello {{.CustomerName}},
{{block "body" .}}{{end}}
Confirmation number: {{or .ConfirmationNumber "-"}}
Rental company: {{or .RentalCompany "-"}}
Pick-up: {{.PickupDate}} {{.PickupTime}} {{.PickupLocation}}
Drop-off: {{.DropoffDate}} {{.DropoffTime}} {{.DropoffLocation}}
{{- if .Total}}
Total: ${{.Total}}
{{- end}}

{{if .AgencyName}}{{.AgencyName}}{{else}}Your rental team{{end}}
`

var bookingBodies = map[Kind]struct {
	subject string
	body    string
}{
	KindConfirmation: {
		subject: "Your car rental is confirmed",
		body:    "\nThank you for your reservation. Your car rental has been booked.\n",
	},
	KindModification: {
		subject: "Your car rental has been modified",
		body:    "\nYour reservation has been updated. Please review the new details below.\n",
	},
	KindCancellation: {
		subject: "Your car rental has been cancelled",
		body:    "\nYour reservation has been cancelled as requested.\n",
	},
	KindRefund: {
		subject: "Your refund is on its way",
		body:    "\nA refund of ${{.Amount}} has been issued for the reservation below.\nIt may take 5-10 business days to appear on your statement.\n",
	},
	KindGiftCard: {
		subject: "You received a gift card",
		body:    "\nAs a thank you, here is a gift card worth ${{.Amount}}.\nGift card code: {{.GiftCardCode}}\n",
	},
}

// Composer renders transactional messages from text templates.
type Composer struct {
	otp      *template.Template
	bookings map[Kind]*template.Template
}

func NewComposer() *Composer {
	c := &Composer{
		otp:      template.Must(template.New("otp").Parse(otpTemplate)),
		bookings: make(map[Kind]*template.Template, len(bookingBodies)),
	}
	for kind, def := range bookingBodies {
		base := template.Must(template.New(string(kind)).Parse(bookingHeader))
		c.bookings[kind] = template.Must(base.New("body").Parse(def.body))
	}
	return c
}

// OTP renders the email verification message.
func (c *Composer) OTP(to, name, code string, ttl time.Duration) (Message, error) {
	var buf bytes.Buffer
	err := c.otp.Execute(&buf, map[string]any{
		"Name":    name,
		"Code":    code,
		"Minutes": int(ttl.Minutes()),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render otp email: %w", err)
	}
	return Message{To: to, Subject: "Verify your email address", Body: buf.String()}, nil
}

// Booking renders one of the booking emails for the customer.
func (c *Composer) Booking(kind Kind, d BookingDetails, extra Extras) (Message, error) {
	tmpl, ok := c.bookings[kind]
	if !ok {
		return Message{}, ErrUnknownKind
	}
	if (kind == KindRefund || kind == KindGiftCard) && strings.TrimSpace(extra.Amount) == "" {
		return Message{}, ErrAmountMissing
	}
	if kind == KindGiftCard && strings.TrimSpace(extra.GiftCardCode) == "" {
		return Message{}, ErrCodeMissing
	}

	data := struct {
		BookingDetails
		Extras
	}{d, extra}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, string(kind), data); err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", kind, err)
	}
	return Message{To: d.Email, Subject: bookingBodies[kind].subject, Body: buf.String()}, nil
}
