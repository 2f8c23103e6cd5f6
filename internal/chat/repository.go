package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRoomNotFound        = errors.New("chat room not found")
	ErrRoomExists          = errors.New("chat room already exists for this appointment")
	ErrSessionNotFound     = errors.New("video call session not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrUserNotFound        = errors.New("user not found")
)

// AppointmentRef is the projection of an appointment the chat layer needs to
// derive a room's participants.
type AppointmentRef struct {
	ID           uuid.UUID
	DoctorID     uuid.UUID
	PatientID    *uuid.UUID
	PatientName  string
	PatientEmail string
}

// UserRef is the directory projection used for sender typing and guest email
// matching.
type UserRef struct {
	ID    uuid.UUID
	Name  string
	Email string
	Role  string
}

type Repository interface {
	// Rooms
	GetRoomByID(ctx context.Context, id uuid.UUID) (*ChatRoom, error)
	GetRoomByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ChatRoom, error)
	// GetRoomBySession finds the room whose embedded session carries the id;
	// with activeOnly the session must not have ended.
	GetRoomBySession(ctx context.Context, sessionID uuid.UUID, activeOnly bool) (*ChatRoom, error)
	InsertRoom(ctx context.Context, room *ChatRoom) (*ChatRoom, error)
	SetRoomActivity(ctx context.Context, roomID, lastMessageID uuid.UUID, at time.Time) error
	SetRoomSession(ctx context.Context, roomID uuid.UUID, session *CallSession) error
	ListRoomsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]ChatRoom, error)
	ListRoomsByPatient(ctx context.Context, patientID uuid.UUID) ([]ChatRoom, error)

	// Messages
	InsertMessage(ctx context.Context, m *Message) (*Message, error)
	// ListMessages returns a reverse-chronological page of non-deleted
	// messages plus the total count.
	ListMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]Message, int, error)
	// MarkMessagesRead appends a read receipt for readerID to every message
	// in the room not authored by readerID, skipping messages already
	// receipted by that reader.
	MarkMessagesRead(ctx context.Context, roomID, readerID uuid.UUID, at time.Time) error

	// Collaborator lookups
	GetAppointmentRef(ctx context.Context, appointmentID uuid.UUID) (*AppointmentRef, error)
	GetUserRef(ctx context.Context, userID uuid.UUID) (*UserRef, error)
}
