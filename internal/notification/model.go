package notification

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Type            string
	Title           string
	Content         string
	IsRead          bool
	AppointmentID   *uuid.UUID
	PatientName     *string
	PatientEmail    *string
	AppointmentDate *time.Time
	AppointmentTime *string // HH:MM
	CreatedAt       time.Time
}
