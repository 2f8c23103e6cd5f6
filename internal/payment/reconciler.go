package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medisched/medisched/internal/advisory"
	"github.com/medisched/medisched/internal/appointment"
)

// Outcome is a terminal payment-provider result, delivered by webhook or by
// the manual update endpoint.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

var ErrUnknownOutcome = errors.New("unknown payment outcome")

// Appointments is the slice of the appointment store the reconciler writes
// through.
type Appointments interface {
	ApplyPaymentOutcome(ctx context.Context, id uuid.UUID, paymentStatus appointment.PaymentStatus, status appointment.Status, intentID *string, amount *float64) (*appointment.Appointment, bool, error)
}

type Notifier interface {
	NotifyDoctor(ctx context.Context, doctorID uuid.UUID, appt *appointment.Appointment, kind string) error
}

// Reconciler applies provider outcomes to appointments. Webhook delivery may
// repeat, so applying the same outcome twice is a successful no-op and never
// dispatches a second notification.
type Reconciler struct {
	appts    Appointments
	notifier Notifier
	log      zerolog.Logger
}

func NewReconciler(appts Appointments, notifier Notifier, log zerolog.Logger) *Reconciler {
	return &Reconciler{appts: appts, notifier: notifier, log: log}
}

type OutcomeInput struct {
	Outcome  Outcome
	IntentID *string
	Amount   *float64
}

func (r *Reconciler) ApplyOutcome(ctx context.Context, appointmentID uuid.UUID, in OutcomeInput) (*appointment.Appointment, error) {
	var (
		paymentStatus appointment.PaymentStatus
		status        appointment.Status
	)

	switch in.Outcome {
	case OutcomeCompleted:
		paymentStatus = appointment.PaymentCompleted
		status = appointment.StatusConfirmed
	case OutcomeFailed:
		paymentStatus = appointment.PaymentFailed
		status = appointment.StatusCancelled
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOutcome, in.Outcome)
	}

	appt, transitioned, err := r.appts.ApplyPaymentOutcome(ctx, appointmentID, paymentStatus, status, in.IntentID, in.Amount)
	if err != nil {
		return nil, err
	}

	// The payment fact is already durable; telling the doctor about it is
	// advisory. Only a real transition notifies, so repeats stay silent.
	if transitioned && in.Outcome == OutcomeCompleted {
		advisory.Log(r.log, "notify doctor of payment",
			r.notifier.NotifyDoctor(ctx, appt.DoctorID, appt, appointment.NotifyKindPaid))
	}

	return appt, nil
}
