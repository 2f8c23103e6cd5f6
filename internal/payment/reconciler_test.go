package payment

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisched/medisched/internal/appointment"
)

type memStore struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*appointment.Appointment
}

func newMemStore(appts ...*appointment.Appointment) *memStore {
	s := &memStore{appts: make(map[uuid.UUID]*appointment.Appointment)}
	for _, a := range appts {
		s.appts[a.ID] = a
	}
	return s
}

func (s *memStore) ApplyPaymentOutcome(_ context.Context, id uuid.UUID, paymentStatus appointment.PaymentStatus, status appointment.Status, intentID *string, amount *float64) (*appointment.Appointment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appts[id]
	if !ok {
		return nil, false, appointment.ErrAppointmentNotFound
	}
	if a.PaymentStatus == paymentStatus {
		cp := *a
		return &cp, false, nil
	}

	a.PaymentStatus = paymentStatus
	a.Status = status
	if intentID != nil {
		a.PaymentIntentID = intentID
	}
	if amount != nil {
		a.PaymentAmount = amount
	}
	cp := *a
	return &cp, true, nil
}

type countingNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *countingNotifier) NotifyDoctor(_ context.Context, _ uuid.UUID, _ *appointment.Appointment, kind string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	return nil
}

func pendingAppointment() *appointment.Appointment {
	amount := 80.0
	return &appointment.Appointment{
		ID:            uuid.New(),
		DoctorID:      uuid.New(),
		PatientInfo:   appointment.PatientInfo{Name: "Jane Roe", Email: "jane@example.com"},
		Status:        appointment.StatusPending,
		PaymentStatus: appointment.PaymentUnpaid,
		PaymentAmount: &amount,
	}
}

func TestApplyOutcomeCompleted(t *testing.T) {
	appt := pendingAppointment()
	store := newMemStore(appt)
	notifier := &countingNotifier{}
	rec := NewReconciler(store, notifier, zerolog.Nop())

	intentID := "pi_123"
	updated, err := rec.ApplyOutcome(context.Background(), appt.ID, OutcomeInput{
		Outcome:  OutcomeCompleted,
		IntentID: &intentID,
	})
	require.NoError(t, err)

	assert.Equal(t, appointment.PaymentCompleted, updated.PaymentStatus)
	assert.Equal(t, appointment.StatusConfirmed, updated.Status)
	require.NotNil(t, updated.PaymentIntentID)
	assert.Equal(t, "pi_123", *updated.PaymentIntentID)
	assert.Equal(t, []string{appointment.NotifyKindPaid}, notifier.kinds)
}

func TestApplyOutcomeFailed(t *testing.T) {
	appt := pendingAppointment()
	store := newMemStore(appt)
	notifier := &countingNotifier{}
	rec := NewReconciler(store, notifier, zerolog.Nop())

	updated, err := rec.ApplyOutcome(context.Background(), appt.ID, OutcomeInput{Outcome: OutcomeFailed})
	require.NoError(t, err)

	assert.Equal(t, appointment.PaymentFailed, updated.PaymentStatus)
	assert.Equal(t, appointment.StatusCancelled, updated.Status)

	// Failed payments do not congratulate the doctor.
	assert.Empty(t, notifier.kinds)
}

func TestApplyOutcomeIdempotent(t *testing.T) {
	appt := pendingAppointment()
	store := newMemStore(appt)
	notifier := &countingNotifier{}
	rec := NewReconciler(store, notifier, zerolog.Nop())

	in := OutcomeInput{Outcome: OutcomeCompleted}

	// Webhooks redeliver; applying the same outcome three times keeps the
	// record stable and notifies exactly once.
	for i := 0; i < 3; i++ {
		updated, err := rec.ApplyOutcome(context.Background(), appt.ID, in)
		require.NoError(t, err)
		assert.Equal(t, appointment.PaymentCompleted, updated.PaymentStatus)
		assert.Equal(t, appointment.StatusConfirmed, updated.Status)
	}

	assert.Len(t, notifier.kinds, 1)
}

func TestApplyOutcomeUnknown(t *testing.T) {
	appt := pendingAppointment()
	rec := NewReconciler(newMemStore(appt), &countingNotifier{}, zerolog.Nop())

	_, err := rec.ApplyOutcome(context.Background(), appt.ID, OutcomeInput{Outcome: Outcome("refunded")})
	assert.ErrorIs(t, err, ErrUnknownOutcome)
}

func TestApplyOutcomeUnknownAppointment(t *testing.T) {
	rec := NewReconciler(newMemStore(), &countingNotifier{}, zerolog.Nop())

	_, err := rec.ApplyOutcome(context.Background(), uuid.New(), OutcomeInput{Outcome: OutcomeCompleted})
	assert.ErrorIs(t, err, appointment.ErrAppointmentNotFound)
}
