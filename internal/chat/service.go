package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medisched/medisched/internal/advisory"
	"github.com/medisched/medisched/internal/realtime"
)

var (
	ErrNotParticipant = errors.New("not a participant of this chat room")
	ErrEmptyContent   = errors.New("message content is required")
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// Service coordinates chat rooms and messages. It is also the authorization
// anchor: every room operation, including video signaling, passes through
// isParticipant.
type Service struct {
	repo   Repository
	events realtime.Publisher
	log    zerolog.Logger
}

func NewService(repo Repository, events realtime.Publisher, log zerolog.Logger) *Service {
	return &Service{repo: repo, events: events, log: log}
}

// GetOrCreateRoom returns the room for an appointment, creating it on first
// access. Only the appointment's doctor or patient may open it.
func (s *Service) GetOrCreateRoom(ctx context.Context, appointmentID, requesterID uuid.UUID) (*ChatRoom, error) {
	room, err := s.repo.GetRoomByAppointment(ctx, appointmentID)
	if err == nil {
		if err := s.isParticipant(ctx, room, requesterID); err != nil {
			return nil, err
		}
		return room, nil
	}
	if !errors.Is(err, ErrRoomNotFound) {
		return nil, fmt.Errorf("load chat room: %w", err)
	}

	appt, err := s.repo.GetAppointmentRef(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeForAppointment(ctx, appt, requesterID); err != nil {
		return nil, err
	}

	created, err := s.repo.InsertRoom(ctx, &ChatRoom{
		AppointmentID: appt.ID,
		DoctorID:      appt.DoctorID,
		PatientID:     appt.PatientID,
		PatientInfo: PatientInfo{
			Name:  appt.PatientName,
			Email: appt.PatientEmail,
		},
	})
	if err != nil {
		// Someone else created the room first; the read is idempotent.
		if errors.Is(err, ErrRoomExists) {
			return s.repo.GetRoomByAppointment(ctx, appointmentID)
		}
		return nil, fmt.Errorf("create chat room: %w", err)
	}

	return created, nil
}

// isParticipant is the shared authorization predicate: the doctor by id, the
// registered patient by id, or the guest patient by account email.
func (s *Service) isParticipant(ctx context.Context, room *ChatRoom, userID uuid.UUID) error {
	if room.DoctorID == userID {
		return nil
	}

	actor := Identity{ID: userID}
	if room.Patient().Matches(actor) {
		return nil
	}

	// The guest variant matches on email, which needs a directory lookup.
	if user, err := s.repo.GetUserRef(ctx, userID); err == nil {
		actor.Email = user.Email
		if room.Patient().Matches(actor) {
			return nil
		}
	}

	return ErrNotParticipant
}

func (s *Service) authorizeForAppointment(ctx context.Context, appt *AppointmentRef, userID uuid.UUID) error {
	if appt.DoctorID == userID {
		return nil
	}
	if appt.PatientID != nil && *appt.PatientID == userID {
		return nil
	}
	if user, err := s.repo.GetUserRef(ctx, userID); err == nil {
		if (Guest{Email: appt.PatientEmail}).Matches(Identity{ID: userID, Email: user.Email}) {
			return nil
		}
	}
	return ErrNotParticipant
}

type MessagePage struct {
	Messages      []Message
	Page          int
	TotalPages    int
	TotalMessages int
}

// ListMessages returns one page of a room's messages in chronological order.
// An out-of-range page yields an empty page, not an error.
func (s *Service) ListMessages(ctx context.Context, roomID, userID uuid.UUID, page, pageSize int) (*MessagePage, error) {
	room, err := s.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.isParticipant(ctx, room, userID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	messages, total, err := s.repo.ListMessages(ctx, roomID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	// Repo pages newest-first; readers want oldest-first within the page.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return &MessagePage{
		Messages:      messages,
		Page:          page,
		TotalPages:    (total + pageSize - 1) / pageSize,
		TotalMessages: total,
	}, nil
}

type SendInput struct {
	RoomID      uuid.UUID
	SenderID    uuid.UUID
	Content     string
	Type        MessageType
	Attachments []Attachment
}

// Send persists a message, bumps the room's activity and fans the message out
// to the room channel plus the counterpart's personal channel.
func (s *Service) Send(ctx context.Context, in SendInput) (*Message, error) {
	room, err := s.repo.GetRoomByID(ctx, in.RoomID)
	if err != nil {
		return nil, err
	}
	if err := s.isParticipant(ctx, room, in.SenderID); err != nil {
		return nil, err
	}

	if in.Type == "" {
		in.Type = MessageText
	}
	if (in.Type == MessageText || in.Type == MessageSystem) && in.Content == "" {
		return nil, ErrEmptyContent
	}

	sender, err := s.repo.GetUserRef(ctx, in.SenderID)
	if err != nil {
		return nil, err
	}

	message, err := s.repo.InsertMessage(ctx, &Message{
		ChatRoomID:  in.RoomID,
		SenderID:    in.SenderID,
		SenderType:  senderTypeFor(sender, room),
		MessageType: in.Type,
		Content:     in.Content,
		Attachments: in.Attachments,
		Status:      StatusSent,
	})
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	advisory.Log(s.log, "bump room activity",
		s.repo.SetRoomActivity(ctx, room.ID, message.ID, message.CreatedAt))

	advisory.Log(s.log, "publish message to room",
		s.events.Publish(ctx, realtime.RoomChannel(room.ID), realtime.Event{
			Type: "new-message",
			Data: messagePayload(message),
		}))

	if recipient := s.counterpart(room, in.SenderID); recipient != nil {
		advisory.Log(s.log, "notify message recipient",
			s.events.Publish(ctx, realtime.UserChannel(*recipient), realtime.Event{
				Type: "message-notification",
				Data: map[string]any{
					"chatRoomId": room.ID.String(),
					"message":    messagePayload(message),
					"senderName": sender.Name,
				},
			}))
	}

	return message, nil
}

// counterpart resolves the non-sending participant's user id, if they have an
// account to deliver to.
func (s *Service) counterpart(room *ChatRoom, senderID uuid.UUID) *uuid.UUID {
	if room.DoctorID == senderID {
		return room.PatientID
	}
	doctorID := room.DoctorID
	return &doctorID
}

func senderTypeFor(sender *UserRef, room *ChatRoom) SenderType {
	if sender.ID == room.DoctorID {
		return SenderDoctor
	}
	return SenderPatient
}

// MarkRead receipts every message in the room not authored by userID.
// Reapplying is a no-op for already-receipted messages.
func (s *Service) MarkRead(ctx context.Context, roomID, userID uuid.UUID) error {
	room, err := s.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if err := s.isParticipant(ctx, room, userID); err != nil {
		return err
	}

	return s.repo.MarkMessagesRead(ctx, roomID, userID, time.Now())
}

// ListRooms returns the active rooms the user belongs to, most recent
// activity first.
func (s *Service) ListRooms(ctx context.Context, userID uuid.UUID, role string) ([]ChatRoom, error) {
	if role == string(SenderDoctor) {
		return s.repo.ListRoomsByDoctor(ctx, userID)
	}
	return s.repo.ListRoomsByPatient(ctx, userID)
}

func messagePayload(m *Message) map[string]any {
	return map[string]any{
		"id":          m.ID.String(),
		"chatRoomId":  m.ChatRoomID.String(),
		"senderId":    m.SenderID.String(),
		"senderType":  string(m.SenderType),
		"messageType": string(m.MessageType),
		"content":     m.Content,
		"createdAt":   m.CreatedAt,
	}
}
