package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotNotFound        = errors.New("availability slot not found")
	ErrDuplicateBooking    = errors.New("appointment already exists for this doctor and time")
)

// Repository contains all DB interactions needed by the appointment and slot
// services.
type Repository interface {
	// Appointments
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// GetLiveAppointmentAt returns the non-cancelled appointment at the exact
	// doctor/datetime, or ErrAppointmentNotFound.
	GetLiveAppointmentAt(ctx context.Context, doctorID uuid.UUID, datetime time.Time) (*Appointment, error)
	InsertAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error)

	// Payment reconciliation. Conditional on the payment status not already
	// holding the target value; reports whether a row transitioned.
	ApplyPaymentOutcome(ctx context.Context, id uuid.UUID, paymentStatus PaymentStatus, status Status, intentID *string, amount *float64) (*Appointment, bool, error)

	// Availability slots
	InsertSlot(ctx context.Context, s *AvailabilitySlot) (*AvailabilitySlot, error)
	GetSlotByID(ctx context.Context, id uuid.UUID) (*AvailabilitySlot, error)
	ListSlotsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AvailabilitySlot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
	// SetSlotBooked flips is_booked on the slot with the given natural key.
	SetSlotBooked(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string, booked bool) (*AvailabilitySlot, error)
}

// AppointmentPatch is a partial update; nil fields are left untouched.
type AppointmentPatch struct {
	Datetime      *time.Time
	Status        *Status
	PaymentStatus *PaymentStatus
	Department    *string
	PatientInfo   *PatientInfo
}
