package appointment

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisched/medisched/internal/realtime"
	redisclient "github.com/medisched/medisched/internal/redis"
)

type memRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
	slots map[string]*AvailabilitySlot

	slotFlipErr error
}

func newMemRepo() *memRepo {
	return &memRepo{
		appts: make(map[uuid.UUID]*Appointment),
		slots: make(map[string]*AvailabilitySlot),
	}
}

func slotMapKey(doctorID uuid.UUID, date time.Time, startTime string) string {
	return fmt.Sprintf("%s|%s|%s", doctorID, date.Format("2006-01-02"), startTime)
}

func (r *memRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) GetLiveAppointmentAt(_ context.Context, doctorID uuid.UUID, datetime time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appts {
		if a.DoctorID == doctorID && a.Datetime.Equal(datetime) && a.Status != StatusCancelled {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *memRepo) InsertAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.appts {
		if existing.DoctorID == a.DoctorID && existing.Datetime.Equal(a.Datetime) && existing.Status != StatusCancelled {
			return nil, ErrDuplicateBooking
		}
	}
	cp := *a
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.appts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *memRepo) UpdateAppointment(_ context.Context, id uuid.UUID, patch AppointmentPatch) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if patch.Datetime != nil {
		a.Datetime = *patch.Datetime
	}
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		a.PaymentStatus = *patch.PaymentStatus
	}
	if patch.Department != nil {
		a.Department = patch.Department
	}
	if patch.PatientInfo != nil {
		a.PatientInfo = *patch.PatientInfo
	}
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (r *memRepo) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appts[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(r.appts, id)
	return nil
}

func (r *memRepo) ListAppointmentsByDoctor(_ context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.DoctorID == doctorID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memRepo) ApplyPaymentOutcome(_ context.Context, id uuid.UUID, paymentStatus PaymentStatus, status Status, intentID *string, amount *float64) (*Appointment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, false, ErrAppointmentNotFound
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

func (r *memRepo) InsertSlot(_ context.Context, s *AvailabilitySlot) (*AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	r.slots[slotMapKey(cp.DoctorID, cp.Date, cp.StartTime)] = &cp
	out := cp
	return &out, nil
}

func (r *memRepo) GetSlotByID(_ context.Context, id uuid.UUID) (*AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSlotNotFound
}

func (r *memRepo) ListSlotsByDoctor(_ context.Context, doctorID uuid.UUID) ([]AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AvailabilitySlot
	for _, s := range r.slots {
		if s.DoctorID == doctorID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memRepo) DeleteSlot(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.slots {
		if s.ID == id {
			delete(r.slots, k)
			return nil
		}
	}
	return ErrSlotNotFound
}

func (r *memRepo) SetSlotBooked(_ context.Context, doctorID uuid.UUID, date time.Time, startTime string, booked bool) (*AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slotFlipErr != nil {
		return nil, r.slotFlipErr
	}
	s, ok := r.slots[slotMapKey(doctorID, date, startTime)]
	if !ok {
		return nil, ErrSlotNotFound
	}
	s.IsBooked = booked
	cp := *s
	return &cp, nil
}

// fakeLocker runs the critical section inline, mimicking an uncontended lock.
type fakeLocker struct {
	contended bool
	calls     int
}

func (l *fakeLocker) WithBookingLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	l.calls++
	if l.contended {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

type fakeNotifier struct {
	mu    sync.Mutex
	kinds []string
	err   error
}

func (n *fakeNotifier) NotifyDoctor(_ context.Context, _ uuid.UUID, _ *Appointment, kind string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
	return n.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

type publishedEvent struct {
	Channel string
	Event   realtime.Event
}

func (p *fakePublisher) Publish(_ context.Context, channel string, event realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Channel: channel, Event: event})
	return p.err
}

func (p *fakePublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Event.Type)
	}
	return types
}

func newTestService(repo *memRepo) (*Service, *fakeLocker, *fakeNotifier, *fakePublisher) {
	locker := &fakeLocker{}
	notifier := &fakeNotifier{}
	events := &fakePublisher{}
	svc := NewService(repo, locker, notifier, events, zerolog.Nop())
	return svc, locker, notifier, events
}

func validInput(doctorID uuid.UUID) CreateInput {
	return CreateInput{
		DoctorID: doctorID,
		PatientInfo: PatientInfo{
			Name:  "Jane Roe",
			Email: "jane@example.com",
		},
		Datetime: time.Now().Add(24 * time.Hour).Truncate(time.Minute),
	}
}

func TestCreateAppointment(t *testing.T) {
	repo := newMemRepo()
	svc, locker, notifier, _ := newTestService(repo)

	doctorID := uuid.New()
	appt, err := svc.Create(context.Background(), validInput(doctorID))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, PaymentUnpaid, appt.PaymentStatus)
	assert.Equal(t, doctorID, appt.DoctorID)
	assert.NotEqual(t, uuid.Nil, appt.ID)
	assert.Equal(t, 1, locker.calls)

	// A free booking notifies the doctor immediately.
	assert.Equal(t, []string{NotifyKindBooked}, notifier.kinds)
}

func TestCreateValidation(t *testing.T) {
	repo := newMemRepo()
	svc, _, _, _ := newTestService(repo)
	doctorID := uuid.New()

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing doctor", func(in *CreateInput) { in.DoctorID = uuid.Nil }},
		{"missing patient name", func(in *CreateInput) { in.PatientInfo.Name = "" }},
		{"missing patient email", func(in *CreateInput) { in.PatientInfo.Email = "" }},
		{"zero datetime", func(in *CreateInput) { in.Datetime = time.Time{} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput(doctorID)
			tc.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateRejectsPastDatetime(t *testing.T) {
	repo := newMemRepo()
	svc, _, _, _ := newTestService(repo)

	in := validInput(uuid.New())
	in.Datetime = time.Now().Add(-time.Hour)

	_, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrPastDatetime)
}

func TestCreateRejectsDoubleBooking(t *testing.T) {
	repo := newMemRepo()
	svc, _, notifier, _ := newTestService(repo)

	in := validInput(uuid.New())

	_, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	in.PatientInfo.Email = "someone.else@example.com"
	_, err = svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrSlotTaken)

	// Only the winning booking notified.
	assert.Len(t, notifier.kinds, 1)
}

func TestCreateAfterCancelSucceeds(t *testing.T) {
	repo := newMemRepo()
	svc, _, _, _ := newTestService(repo)

	in := validInput(uuid.New())

	first, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), first.ID))

	second, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateLockContended(t *testing.T) {
	repo := newMemRepo()
	svc, locker, _, _ := newTestService(repo)
	locker.contended = true

	_, err := svc.Create(context.Background(), validInput(uuid.New()))
	assert.ErrorIs(t, err, ErrBookingContended)
	assert.Empty(t, repo.appts)
}

func TestCreateSkipsNotifyWhenPaymentDue(t *testing.T) {
	repo := newMemRepo()
	svc, _, notifier, _ := newTestService(repo)

	amount := 150.0
	in := validInput(uuid.New())
	in.Amount = &amount

	appt, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, appt.PaymentDue())
	assert.Empty(t, notifier.kinds)
}

func TestCreateReservesMatchingSlot(t *testing.T) {
	repo := newMemRepo()
	svc, _, _, events := newTestService(repo)

	doctorID := uuid.New()
	in := validInput(doctorID)

	date, startTime := SlotKey(in.Datetime)
	_, err := repo.InsertSlot(context.Background(), &AvailabilitySlot{
		DoctorID:  doctorID,
		Date:      date,
		StartTime: startTime,
		EndTime:   "23:59",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), in)
	require.NoError(t, err)

	slot := repo.slots[slotMapKey(doctorID, date, startTime)]
	assert.True(t, slot.IsBooked)
	assert.Contains(t, events.eventTypes(), "slot-updated")
}

func TestCreateSucceedsWithoutSlot(t *testing.T) {
	repo := newMemRepo()
	svc, _, _, events := newTestService(repo)

	_, err := svc.Create(context.Background(), validInput(uuid.New()))
	require.NoError(t, err)
	assert.NotContains(t, events.eventTypes(), "slot-updated")
}

func TestDeleteReleasesSlotAndNotifies(t *testing.T) {
	repo := newMemRepo()
	svc, _, notifier, _ := newTestService(repo)

	doctorID := uuid.New()
	in := validInput(doctorID)

	date, startTime := SlotKey(in.Datetime)
	_, err := repo.InsertSlot(context.Background(), &AvailabilitySlot{
		DoctorID:  doctorID,
		Date:      date,
		StartTime: startTime,
		EndTime:   "23:59",
	})
	require.NoError(t, err)

	appt, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.True(t, repo.slots[slotMapKey(doctorID, date, startTime)].IsBooked)

	require.NoError(t, svc.Delete(context.Background(), appt.ID))

	assert.False(t, repo.slots[slotMapKey(doctorID, date, startTime)].IsBooked)
	assert.Equal(t, []string{NotifyKindBooked, NotifyKindCancelled}, notifier.kinds)

	_, err = svc.Get(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestDeleteSurvivesSlotReleaseFailure(t *testing.T) {
	repo := newMemRepo()
	svc, _, _, _ := newTestService(repo)

	appt, err := svc.Create(context.Background(), validInput(uuid.New()))
	require.NoError(t, err)

	repo.slotFlipErr = fmt.Errorf("slot store down")

	require.NoError(t, svc.Delete(context.Background(), appt.ID))

	_, err = svc.Get(context.Background(), appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestDeleteUnknownAppointment(t *testing.T) {
	repo := newMemRepo()
	svc, _, _, _ := newTestService(repo)

	err := svc.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestUpdateRejectsPastReschedule(t *testing.T) {
	repo := newMemRepo()
	svc, _, _, _ := newTestService(repo)

	appt, err := svc.Create(context.Background(), validInput(uuid.New()))
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	_, err = svc.Update(context.Background(), appt.ID, AppointmentPatch{Datetime: &past})
	assert.ErrorIs(t, err, ErrPastDatetime)
}

func TestUpdateAppliesPatch(t *testing.T) {
	repo := newMemRepo()
	svc, _, _, _ := newTestService(repo)

	appt, err := svc.Create(context.Background(), validInput(uuid.New()))
	require.NoError(t, err)

	status := StatusConfirmed
	dept := "Cardiology"
	updated, err := svc.Update(context.Background(), appt.ID, AppointmentPatch{
		Status:     &status,
		Department: &dept,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	require.NotNil(t, updated.Department)
	assert.Equal(t, "Cardiology", *updated.Department)

	// Untouched fields survive.
	assert.Equal(t, "Jane Roe", updated.PatientInfo.Name)
}
