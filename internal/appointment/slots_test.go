package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSlotService(repo *memRepo) (*SlotService, *fakePublisher) {
	events := &fakePublisher{}
	return NewSlotService(repo, events, zerolog.Nop()), events
}

func validSlotInput(doctorID uuid.UUID) SlotInput {
	return SlotInput{
		DoctorID:  doctorID,
		Date:      time.Now().AddDate(0, 0, 1),
		StartTime: "09:00",
		EndTime:   "09:30",
	}
}

func TestSlotCreate(t *testing.T) {
	repo := newMemRepo()
	svc, events := newTestSlotService(repo)

	slot, err := svc.Create(context.Background(), validSlotInput(uuid.New()))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, slot.ID)
	assert.False(t, slot.IsBooked)
	assert.Contains(t, events.eventTypes(), "slot-published")
}

func TestSlotCreateValidation(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestSlotService(repo)
	doctorID := uuid.New()

	cases := []struct {
		name   string
		mutate func(*SlotInput)
	}{
		{"missing doctor", func(in *SlotInput) { in.DoctorID = uuid.Nil }},
		{"zero date", func(in *SlotInput) { in.Date = time.Time{} }},
		{"missing start time", func(in *SlotInput) { in.StartTime = "" }},
		{"missing end time", func(in *SlotInput) { in.EndTime = "" }},
		{"malformed start time", func(in *SlotInput) { in.StartTime = "9am" }},
		{"malformed end time", func(in *SlotInput) { in.EndTime = "25:00" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validSlotInput(doctorID)
			tc.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSlotDelete(t *testing.T) {
	repo := newMemRepo()
	svc, events := newTestSlotService(repo)

	slot, err := svc.Create(context.Background(), validSlotInput(uuid.New()))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), slot.ID))
	assert.Contains(t, events.eventTypes(), "slot-withdrawn")

	_, err = svc.Get(context.Background(), slot.ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSlotDeleteUnknown(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestSlotService(repo)

	err := svc.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSlotKey(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	dt := time.Date(2026, 3, 14, 9, 30, 0, 0, loc)

	date, startTime := SlotKey(dt)
	assert.Equal(t, "2026-03-14", date.Format("2006-01-02"))
	assert.Equal(t, "09:30", startTime)
}
