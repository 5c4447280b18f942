package booking

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Policy selects how a tracked field is coerced and compared.
type Policy int

const (
	PolicyPlain Policy = iota
	PolicyNumeric
	PolicyDate
	PolicyTime
	PolicyFees
)

// Field describes one tracked booking field. Name is the JSON key clients
// send, Column the database column it is persisted to.
type Field struct {
	Name   string
	Label  string
	Column string
	Policy Policy

	get func(*Booking) any
	set func(*Booking, any)
}

func plainField(name, label, column string, ptr func(*Booking) *string) Field {
	return Field{
		Name:   name,
		Label:  label,
		Column: column,
		Policy: PolicyPlain,
		get:    func(b *Booking) any { return *ptr(b) },
		set:    func(b *Booking, v any) { *ptr(b) = cast.ToString(v) },
	}
}

func withPolicy(f Field, p Policy) Field {
	f.Policy = p
	return f
}

func numericField(name, label, column string, ptr func(*Booking) *float64) Field {
	return Field{
		Name:   name,
		Label:  label,
		Column: column,
		Policy: PolicyNumeric,
		get:    func(b *Booking) any { return *ptr(b) },
		set:    func(b *Booking, v any) { *ptr(b) = toNumber(v) },
	}
}

// Fields is the tracked field table. Change descriptions and timeline
// changes are always emitted in this order.
var Fields = []Field{
	{
		Name:   "modificationFee",
		Column: "modification_fee",
		Policy: PolicyFees,
		get:    func(b *Booking) any { return b.ModificationFee },
		set:    func(b *Booking, v any) { b.ModificationFee = toFees(v) },
	},
	plainField("fullName", "Full Name", "full_name", func(b *Booking) *string { return &b.FullName }),
	plainField("email", "Email", "email", func(b *Booking) *string { return &b.Email }),
	plainField("phoneNumber", "Phone Number", "phone_number", func(b *Booking) *string { return &b.PhoneNumber }),
	plainField("rentalCompany", "Rental Company", "rental_company", func(b *Booking) *string { return &b.RentalCompany }),
	plainField("confirmationNumber", "Confirmation Number", "confirmation_number", func(b *Booking) *string { return &b.ConfirmationNumber }),
	plainField("vehicleImage", "Vehicle Image", "vehicle_image", func(b *Booking) *string { return &b.VehicleImage }),
	numericField("total", "Total", "total", func(b *Booking) *float64 { return &b.Total }),
	numericField("mco", "MCO", "mco", func(b *Booking) *float64 { return &b.MCO }),
	numericField("payableAtPickup", "Payable at Pickup", "payable_at_pickup", func(b *Booking) *float64 { return &b.PayableAtPickup }),
	withPolicy(plainField("pickupDate", "Pickup Date", "pickup_date", func(b *Booking) *string { return &b.PickupDate }), PolicyDate),
	withPolicy(plainField("dropoffDate", "Dropoff Date", "dropoff_date", func(b *Booking) *string { return &b.DropoffDate }), PolicyDate),
	withPolicy(plainField("pickupTime", "Pickup Time", "pickup_time", func(b *Booking) *string { return &b.PickupTime }), PolicyTime),
	withPolicy(plainField("dropoffTime", "Dropoff Time", "dropoff_time", func(b *Booking) *string { return &b.DropoffTime }), PolicyTime),
	plainField("cardLast4", "Card Last 4", "card_last4", func(b *Booking) *string { return &b.CardLast4 }),
	plainField("expiration", "Expiration", "expiration", func(b *Booking) *string { return &b.Expiration }),
	plainField("billingAddress", "Billing Address", "billing_address", func(b *Booking) *string { return &b.BillingAddress }),
	{
		Name:   "status",
		Label:  "Status",
		Column: "status",
		Policy: PolicyPlain,
		get:    func(b *Booking) any { return string(b.Status) },
		set:    func(b *Booking, v any) { b.Status = Status(cast.ToString(v)) },
	},
	plainField("dateOfBirth", "Date of Birth", "date_of_birth", func(b *Booking) *string { return &b.DateOfBirth }),
}

// Patch is a sparse update keyed by tracked field name. A missing key leaves
// the field alone; a nil value means the client sent null.
type Patch map[string]any

// ChangeSet is the outcome of comparing a booking against a patch.
type ChangeSet struct {
	Changes []string
	Updates map[string]any
	Entry   *TimelineEntry
}

// Empty reports whether the patch changed nothing.
func (cs ChangeSet) Empty() bool {
	return cs.Entry == nil
}

// ChangedFields returns the names of staged fields in table order.
func (cs ChangeSet) ChangedFields() []string {
	var names []string
	for _, f := range Fields {
		if _, ok := cs.Updates[f.Name]; ok {
			names = append(names, f.Name)
		}
	}
	return names
}

// Tracker computes field-level changes between a stored booking and a patch.
type Tracker struct {
	now func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// NewTrackerWithClock is used by tests to pin the timeline timestamp.
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

// ComputeUpdate compares incoming against existing and returns the changes to
// persist. existing is not modified. The returned Entry is nil when nothing changed.
func (t *Tracker) ComputeUpdate(existing Booking, incoming Patch, agentName string) ChangeSet {
	cs := ChangeSet{Updates: map[string]any{}}

	for _, f := range Fields {
		raw, ok := incoming[f.Name]
		if !ok {
			continue
		}

		switch f.Policy {
		case PolicyFees:
			fees := toFees(raw)
			if len(fees) == 0 || slices.Equal(fees, existing.ModificationFee) {
				continue
			}
			cs.Changes = append(cs.Changes, "Modification fee added: $"+fees[len(fees)-1].Charge)
			cs.Updates[f.Name] = fees

		case PolicyNumeric:
			oldVal := toNumber(f.get(&existing))
			newVal := toNumber(raw)
			if oldVal == newVal {
				continue
			}
			cs.Changes = append(cs.Changes, fmt.Sprintf("Change in %s: from %q to %q", f.Label, formatNumber(oldVal), formatNumber(newVal)))
			cs.Updates[f.Name] = newVal

		case PolicyTime:
			oldVal := canonicalTime(f.get(&existing))
			newVal := canonicalTime(raw)
			if oldVal == newVal {
				continue
			}
			cs.Changes = append(cs.Changes, describe(f.Label, oldVal, newVal))
			cs.Updates[f.Name] = normalize(raw)

		default:
			oldVal := normalize(f.get(&existing))
			newVal := normalize(raw)
			if oldVal == newVal {
				continue
			}
			cs.Changes = append(cs.Changes, describe(f.Label, oldVal, newVal))
			cs.Updates[f.Name] = newVal
		}
	}

	if len(cs.Changes) == 0 {
		return ChangeSet{}
	}

	records := make([]ChangeRecord, len(cs.Changes))
	for i, text := range cs.Changes {
		records[i] = ChangeRecord{Text: text}
	}
	cs.Entry = &TimelineEntry{
		Date:      t.now().UTC().Format(TimelineDateLayout),
		Message:   fmt.Sprintf("Updated %d field(s)", len(records)),
		AgentName: agentName,
		Changes:   records,
	}
	return cs
}

// NewEntry builds a timeline entry with no field changes, such as the one
// recorded when a booking is created.
func (t *Tracker) NewEntry(message, agentName string) TimelineEntry {
	return TimelineEntry{
		Date:      t.now().UTC().Format(TimelineDateLayout),
		Message:   message,
		AgentName: agentName,
		Changes:   []ChangeRecord{},
	}
}

func describe(label, oldVal, newVal string) string {
	if oldVal == "" {
		return fmt.Sprintf("Change in %s: to %q", label, newVal)
	}
	return fmt.Sprintf("Change in %s: from %q to %q", label, oldVal, newVal)
}

// normalize maps the treated-empty values (nil, "", "null") to "" and
// stringifies everything else.
func normalize(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		s = fmt.Sprint(v)
	}
	if s == "null" {
		return ""
	}
	return s
}

// toNumber coerces v to a finite float. Anything that is not a number becomes 0.
func toNumber(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil, bool:
		return 0
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = n
	default:
		n, err := cast.ToFloat64E(x)
		if err != nil {
			return 0
		}
		f = n
	}
	// f == 0 also folds -0 into 0.
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// canonicalTime renders H:MM or HH:MM on a 12-hour clock without a period,
// so "08:15" and "8:15" compare equal and "23:30" reads "11:30". Values that
// do not parse compare by their trimmed text.
func canonicalTime(v any) string {
	s := strings.TrimSpace(normalize(v))
	if s == "" {
		return ""
	}
	h, m, ok := strings.Cut(s, ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 {
		return s
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return s
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return s
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d", hour, minute)
}

// toFees coerces an incoming fee array. Elements without a charge are dropped.
func toFees(v any) []ModificationFee {
	var raw []any
	switch x := v.(type) {
	case []ModificationFee:
		for _, f := range x {
			raw = append(raw, f)
		}
	case []map[string]any:
		for _, m := range x {
			raw = append(raw, m)
		}
	case []any:
		raw = x
	default:
		return nil
	}

	fees := make([]ModificationFee, 0, len(raw))
	for _, e := range raw {
		var charge string
		switch el := e.(type) {
		case map[string]any:
			charge = normalize(el["charge"])
		case ModificationFee:
			charge = el.Charge
		default:
			charge = normalize(el)
		}
		if strings.TrimSpace(charge) == "" {
			continue
		}
		fees = append(fees, ModificationFee{Charge: charge})
	}
	return fees
}
