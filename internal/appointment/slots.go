package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medisched/medisched/internal/advisory"
	"github.com/medisched/medisched/internal/realtime"
)

// SlotService covers the doctor-facing availability surface: publishing,
// listing and withdrawing slots. Booking flows flip is_booked through the
// appointment Service, never here.
type SlotService struct {
	repo   Repository
	events realtime.Publisher
	log    zerolog.Logger
}

func NewSlotService(repo Repository, events realtime.Publisher, log zerolog.Logger) *SlotService {
	return &SlotService{repo: repo, events: events, log: log}
}

type SlotInput struct {
	DoctorID  uuid.UUID
	Date      time.Time
	StartTime string // HH:MM
	EndTime   string
}

func (s *SlotService) Create(ctx context.Context, in SlotInput) (*AvailabilitySlot, error) {
	switch {
	case in.DoctorID == uuid.Nil:
		return nil, fmt.Errorf("%w: doctorId is required", ErrValidation)
	case in.Date.IsZero():
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	case in.StartTime == "" || in.EndTime == "":
		return nil, fmt.Errorf("%w: startTime and endTime are required", ErrValidation)
	}

	if _, err := time.Parse("15:04", in.StartTime); err != nil {
		return nil, fmt.Errorf("%w: startTime must be HH:MM", ErrValidation)
	}
	if _, err := time.Parse("15:04", in.EndTime); err != nil {
		return nil, fmt.Errorf("%w: endTime must be HH:MM", ErrValidation)
	}

	slot, err := s.repo.InsertSlot(ctx, &AvailabilitySlot{
		DoctorID:  in.DoctorID,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
	})
	if err != nil {
		return nil, fmt.Errorf("insert slot: %w", err)
	}

	advisory.Log(s.log, "broadcast slot published",
		s.events.Publish(ctx, realtime.AvailabilityChannel(slot.DoctorID), realtime.Event{
			Type: "slot-published",
			Data: map[string]any{
				"slotId":    slot.ID.String(),
				"date":      slot.Date.Format("2006-01-02"),
				"startTime": slot.StartTime,
				"endTime":   slot.EndTime,
			},
		}))

	return slot, nil
}

func (s *SlotService) Get(ctx context.Context, id uuid.UUID) (*AvailabilitySlot, error) {
	return s.repo.GetSlotByID(ctx, id)
}

func (s *SlotService) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AvailabilitySlot, error) {
	return s.repo.ListSlotsByDoctor(ctx, doctorID)
}

func (s *SlotService) Delete(ctx context.Context, id uuid.UUID) error {
	slot, err := s.repo.GetSlotByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteSlot(ctx, id); err != nil {
		return err
	}

	advisory.Log(s.log, "broadcast slot withdrawn",
		s.events.Publish(ctx, realtime.AvailabilityChannel(slot.DoctorID), realtime.Event{
			Type: "slot-withdrawn",
			Data: map[string]any{"slotId": slot.ID.String()},
		}))

	return nil
}
