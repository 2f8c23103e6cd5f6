package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentUnpaid    PaymentStatus = "UNPAID"
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentPaid      PaymentStatus = "PAID"
)

// PatientInfo identifies the booking party. Guest bookings carry no account
// id, only these contact details.
type PatientInfo struct {
	Name  string
	Email string
	Phone string
}

type Appointment struct {
	ID              uuid.UUID
	DoctorID        uuid.UUID
	PatientID       *uuid.UUID // nil for guest bookings
	PatientInfo     PatientInfo
	Datetime        time.Time
	Status          Status
	PaymentStatus   PaymentStatus
	PaymentIntentID *string
	PaymentAmount   *float64
	Department      *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PaymentDue reports whether the booking still waits on a payment before the
// doctor is notified.
func (a *Appointment) PaymentDue() bool {
	return a.PaymentAmount != nil && *a.PaymentAmount > 0
}

// Snapshot renders the appointment for realtime event payloads.
func (a *Appointment) Snapshot() map[string]any {
	snap := map[string]any{
		"id":            a.ID.String(),
		"doctorId":      a.DoctorID.String(),
		"patientInfo":   map[string]any{"name": a.PatientInfo.Name, "email": a.PatientInfo.Email, "phone": a.PatientInfo.Phone},
		"datetime":      a.Datetime,
		"status":        string(a.Status),
		"paymentStatus": string(a.PaymentStatus),
	}
	if a.PatientID != nil {
		snap["patientId"] = a.PatientID.String()
	}
	if a.Department != nil {
		snap["department"] = *a.Department
	}
	return snap
}

// AvailabilitySlot is published availability metadata. Appointments are
// authoritative for booking conflicts; a slot may not exist for a booked time.
type AvailabilitySlot struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time // calendar day
	StartTime string    // HH:MM
	EndTime   string
	IsBooked  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlotKey decomposes an appointment datetime into the natural key of the slot
// that backs it.
func SlotKey(datetime time.Time) (date time.Time, startTime string) {
	y, m, d := datetime.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, datetime.Location()), datetime.Format("15:04")
}
