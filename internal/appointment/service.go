package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medisched/medisched/internal/advisory"
	"github.com/medisched/medisched/internal/realtime"
	redisclient "github.com/medisched/medisched/internal/redis"
)

const (
	NotifyKindBooked    = "APPOINTMENT_BOOKED"
	NotifyKindCancelled = "APPOINTMENT_CANCELLED"
	NotifyKindPaid      = "APPOINTMENT_PAID"
)

var (
	ErrValidation       = errors.New("invalid appointment request")
	ErrPastDatetime     = errors.New("appointment datetime must be in the future")
	ErrSlotTaken        = errors.New("this time slot is already booked")
	ErrBookingContended = errors.New("slot is currently being booked, please retry")
)

// Notifier is the slice of the notification dispatcher the booking flow needs.
type Notifier interface {
	NotifyDoctor(ctx context.Context, doctorID uuid.UUID, appt *Appointment, kind string) error
}

type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier Notifier
	events   realtime.Publisher
	log      zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, notifier Notifier, events realtime.Publisher, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		events:   events,
		log:      log,
	}
}

// CreateInput carries a booking request. PatientID is nil for guest bookings.
type CreateInput struct {
	DoctorID    uuid.UUID
	PatientID   *uuid.UUID
	PatientInfo PatientInfo
	Datetime    time.Time
	Amount      *float64
	Department  *string
}

// Create books an appointment. The conflict check and insert run inside a
// per-(doctor, datetime) Redis lock so concurrent requests for the same time
// serialize; the partial unique index on appointments backstops the check if
// the lock is ever bypassed.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	if !in.Datetime.After(time.Now()) {
		return nil, ErrPastDatetime
	}

	var created *Appointment

	err := s.locker.WithBookingLock(ctx, in.DoctorID, in.Datetime, func(lockCtx context.Context) error {
		existing, err := s.repo.GetLiveAppointmentAt(lockCtx, in.DoctorID, in.Datetime)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check booking conflict: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt, err := s.repo.InsertAppointment(lockCtx, &Appointment{
			DoctorID:      in.DoctorID,
			PatientID:     in.PatientID,
			PatientInfo:   in.PatientInfo,
			Datetime:      in.Datetime,
			Status:        StatusPending,
			PaymentStatus: PaymentUnpaid,
			PaymentAmount: in.Amount,
			Department:    in.Department,
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateBooking) {
				return ErrSlotTaken
			}
			return fmt.Errorf("insert appointment: %w", err)
		}

		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingContended
		}
		return nil, err
	}

	s.reserveSlot(ctx, created)

	// Payment-gated bookings notify the doctor only once the payment
	// reconciler confirms; free bookings notify right away.
	if !created.PaymentDue() {
		advisory.Log(s.log, "notify doctor of booking",
			s.notifier.NotifyDoctor(ctx, created.DoctorID, created, NotifyKindBooked))
	}

	return created, nil
}

func validateCreate(in CreateInput) error {
	switch {
	case in.DoctorID == uuid.Nil:
		return fmt.Errorf("%w: doctorId is required", ErrValidation)
	case in.PatientInfo.Name == "":
		return fmt.Errorf("%w: patient name is required", ErrValidation)
	case in.PatientInfo.Email == "":
		return fmt.Errorf("%w: patient email is required", ErrValidation)
	case in.Datetime.IsZero():
		return fmt.Errorf("%w: datetime is required", ErrValidation)
	}
	return nil
}

// Get returns an appointment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// ListByDoctor returns a doctor's appointments sorted by datetime ascending.
func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	return s.repo.ListAppointmentsByDoctor(ctx, doctorID)
}

// Update applies a partial update to an appointment.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (*Appointment, error) {
	if patch.Datetime != nil && !patch.Datetime.After(time.Now()) {
		return nil, ErrPastDatetime
	}
	return s.repo.UpdateAppointment(ctx, id, patch)
}

// Delete cancels a booking: the backing slot is released best-effort, then
// the appointment record is removed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return err
	}

	s.releaseSlot(ctx, appt)

	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		return err
	}

	advisory.Log(s.log, "notify doctor of cancellation",
		s.notifier.NotifyDoctor(ctx, appt.DoctorID, appt, NotifyKindCancelled))

	return nil
}

// reserveSlot flips the published slot matching the appointment to booked.
// An appointment may exist without a published slot, so absence is not an
// error.
func (s *Service) reserveSlot(ctx context.Context, appt *Appointment) {
	s.flipSlot(ctx, appt, true, "reserve availability slot")
}

func (s *Service) releaseSlot(ctx context.Context, appt *Appointment) {
	s.flipSlot(ctx, appt, false, "release availability slot")
}

func (s *Service) flipSlot(ctx context.Context, appt *Appointment, booked bool, op string) {
	date, startTime := SlotKey(appt.Datetime)

	slot, err := s.repo.SetSlotBooked(ctx, appt.DoctorID, date, startTime, booked)
	if err != nil {
		if !errors.Is(err, ErrSlotNotFound) {
			advisory.Log(s.log, op, err)
		}
		return
	}

	advisory.Log(s.log, "broadcast slot state",
		s.events.Publish(ctx, realtime.AvailabilityChannel(appt.DoctorID), realtime.Event{
			Type: "slot-updated",
			Data: map[string]any{
				"slotId":    slot.ID.String(),
				"date":      slot.Date.Format("2006-01-02"),
				"startTime": slot.StartTime,
				"isBooked":  slot.IsBooked,
			},
		}))
}
