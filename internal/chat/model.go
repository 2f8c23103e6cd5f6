package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type RoomStatus string

const (
	RoomActive   RoomStatus = "ACTIVE"
	RoomArchived RoomStatus = "ARCHIVED"
	RoomClosed   RoomStatus = "CLOSED"
)

type SenderType string

const (
	SenderDoctor  SenderType = "DOCTOR"
	SenderPatient SenderType = "PATIENT"
)

type MessageType string

const (
	MessageText           MessageType = "TEXT"
	MessageImage          MessageType = "IMAGE"
	MessageFile           MessageType = "FILE"
	MessageSystem         MessageType = "SYSTEM"
	MessageVideoCallStart MessageType = "VIDEO_CALL_START"
	MessageVideoCallEnd   MessageType = "VIDEO_CALL_END"
)

type MessageStatus string

const (
	StatusSent      MessageStatus = "SENT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
)

// CallSession is the single call slot embedded in a chat room. A nil session
// means no call was ever started; EndedAt set means the last call is over.
// Active is derived, never stored, so an "inactive but started" flag
// combination cannot exist.
type CallSession struct {
	SessionID   uuid.UUID
	StartedAt   time.Time
	InitiatedBy uuid.UUID
	EndedAt     *time.Time
}

func (s *CallSession) Active() bool {
	return s != nil && s.EndedAt == nil
}

// Stale reports whether an active session has outlived the given threshold
// and may be reclaimed by the next initiate.
func (s *CallSession) Stale(threshold time.Duration) bool {
	return s.Active() && time.Since(s.StartedAt) > threshold
}

type PatientInfo struct {
	Name  string
	Email string
}

type ChatRoom struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	DoctorID      uuid.UUID
	PatientID     *uuid.UUID // nil for guest bookings
	PatientInfo   PatientInfo
	Status        RoomStatus
	LastMessageID *uuid.UUID
	LastActivity  time.Time
	Session       *CallSession
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Identity is the resolved actor on whose behalf an operation runs.
type Identity struct {
	ID    uuid.UUID
	Email string
}

// Participant is one legitimate side of a chat room.
type Participant interface {
	Matches(actor Identity) bool
}

// Registered is a participant identified by account id.
type Registered struct {
	UserID uuid.UUID
}

func (p Registered) Matches(actor Identity) bool {
	return p.UserID == actor.ID
}

// Guest is a booking party without an account, identified by email.
type Guest struct {
	Email string
}

func (p Guest) Matches(actor Identity) bool {
	return p.Email != "" && strings.EqualFold(p.Email, actor.Email)
}

// Patient returns the room's patient-side participant in whichever variant
// applies.
func (r *ChatRoom) Patient() Participant {
	if r.PatientID != nil {
		return Registered{UserID: *r.PatientID}
	}
	return Guest{Email: r.PatientInfo.Email}
}

type Attachment struct {
	FileName string  `json:"fileName"`
	FileURL  string  `json:"fileUrl"`
	FileType string  `json:"fileType"`
	FileSize float64 `json:"fileSize"`
}

type ReadReceipt struct {
	UserID uuid.UUID
	ReadAt time.Time
}

type Message struct {
	ID          uuid.UUID
	ChatRoomID  uuid.UUID
	SenderID    uuid.UUID
	SenderType  SenderType
	MessageType MessageType
	Content     string
	Attachments []Attachment
	Status      MessageStatus
	ReadBy      []ReadReceipt
	IsDeleted   bool
	CreatedAt   time.Time
}
