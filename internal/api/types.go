package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medisched/medisched/internal/appointment"
	"github.com/medisched/medisched/internal/chat"
	"github.com/medisched/medisched/internal/notification"
)

type PatientInfoBody struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type CreateAppointmentRequest struct {
	DoctorID      string          `json:"doctorId"`
	PatientID     string          `json:"patientId,omitempty"`
	PatientInfo   PatientInfoBody `json:"patientInfo"`
	Datetime      time.Time       `json:"datetime"`
	PaymentAmount *float64        `json:"paymentAmount,omitempty"`
	Department    *string         `json:"department,omitempty"`
}

type UpdateAppointmentRequest struct {
	Datetime      *time.Time       `json:"datetime,omitempty"`
	Status        *string          `json:"status,omitempty"`
	PaymentStatus *string          `json:"paymentStatus,omitempty"`
	Department    *string          `json:"department,omitempty"`
	PatientInfo   *PatientInfoBody `json:"patientInfo,omitempty"`
}

type AppointmentResponse struct {
	ID            uuid.UUID       `json:"id"`
	DoctorID      uuid.UUID       `json:"doctorId"`
	PatientID     *uuid.UUID      `json:"patientId,omitempty"`
	PatientInfo   PatientInfoBody `json:"patientInfo"`
	Datetime      time.Time       `json:"datetime"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	PaymentAmount *float64        `json:"paymentAmount,omitempty"`
	Department    *string         `json:"department,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:       a.ID,
		DoctorID: a.DoctorID,

		PatientID: a.PatientID,
		PatientInfo: PatientInfoBody{
			Name:  a.PatientInfo.Name,
			Email: a.PatientInfo.Email,
			Phone: a.PatientInfo.Phone,
		},
		Datetime:      a.Datetime,
		Status:        string(a.Status),
		PaymentStatus: string(a.PaymentStatus),
		PaymentAmount: a.PaymentAmount,
		Department:    a.Department,
		CreatedAt:     a.CreatedAt,
	}
}

type CreateSlotRequest struct {
	DoctorID  string `json:"doctorId"`
	Date      string `json:"date"` // YYYY-MM-DD
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type SlotResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctorId"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	IsBooked  bool      `json:"isBooked"`
}

func toSlotResponse(s *appointment.AvailabilitySlot) SlotResponse {
	return SlotResponse{
		ID:        s.ID,
		DoctorID:  s.DoctorID,
		Date:      s.Date.Format("2006-01-02"),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		IsBooked:  s.IsBooked,
	}
}

type UpdatePaymentStatusRequest struct {
	AppointmentID string   `json:"appointmentId"`
	PaymentStatus string   `json:"paymentStatus"`
	IntentID      *string  `json:"paymentIntentId,omitempty"`
	Amount        *float64 `json:"paymentAmount,omitempty"`
}

// StripeWebhookEvent mirrors the slice of the provider event the reconciler
// consumes; everything else in the payload is ignored.
type StripeWebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Amount   int64  `json:"amount"`
			Metadata struct {
				AppointmentID string `json:"appointmentId"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

type SendMessageRequest struct {
	ChatRoomID  string            `json:"chatRoomId"`
	Content     string            `json:"content"`
	MessageType string            `json:"messageType,omitempty"`
	Attachments []chat.Attachment `json:"attachments,omitempty"`
}

type MessageResponse struct {
	ID          uuid.UUID          `json:"id"`
	ChatRoomID  uuid.UUID          `json:"chatRoomId"`
	SenderID    uuid.UUID          `json:"senderId"`
	SenderType  string             `json:"senderType"`
	MessageType string             `json:"messageType"`
	Content     string             `json:"content,omitempty"`
	Attachments []chat.Attachment  `json:"attachments,omitempty"`
	Status      string             `json:"status"`
	ReadBy      []ReadReceiptBody  `json:"readBy,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type ReadReceiptBody struct {
	UserID uuid.UUID `json:"userId"`
	ReadAt time.Time `json:"readAt"`
}

func toMessageResponse(m *chat.Message) MessageResponse {
	resp := MessageResponse{
		ID:          m.ID,
		ChatRoomID:  m.ChatRoomID,
		SenderID:    m.SenderID,
		SenderType:  string(m.SenderType),
		MessageType: string(m.MessageType),
		Content:     m.Content,
		Attachments: m.Attachments,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt,
	}
	for _, receipt := range m.ReadBy {
		resp.ReadBy = append(resp.ReadBy, ReadReceiptBody{UserID: receipt.UserID, ReadAt: receipt.ReadAt})
	}
	return resp
}

type MessagePageResponse struct {
	Messages      []MessageResponse `json:"messages"`
	CurrentPage   int               `json:"currentPage"`
	TotalPages    int               `json:"totalPages"`
	TotalMessages int               `json:"totalMessages"`
}

type ChatRoomResponse struct {
	ID            uuid.UUID       `json:"id"`
	AppointmentID uuid.UUID       `json:"appointmentId"`
	DoctorID      uuid.UUID       `json:"doctorId"`
	PatientID     *uuid.UUID      `json:"patientId,omitempty"`
	PatientInfo   PatientInfoBody `json:"patientInfo"`
	Status        string          `json:"status"`
	LastActivity  time.Time       `json:"lastActivity"`
	VideoCall     *VideoCallBody  `json:"videoCallSession,omitempty"`
}

type VideoCallBody struct {
	SessionID   uuid.UUID  `json:"sessionId"`
	IsActive    bool       `json:"isActive"`
	StartedAt   time.Time  `json:"startedAt"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	InitiatedBy uuid.UUID  `json:"initiatedBy"`
}

func toChatRoomResponse(r *chat.ChatRoom) ChatRoomResponse {
	resp := ChatRoomResponse{
		ID:            r.ID,
		AppointmentID: r.AppointmentID,
		DoctorID:      r.DoctorID,
		PatientID:     r.PatientID,
		PatientInfo:   PatientInfoBody{Name: r.PatientInfo.Name, Email: r.PatientInfo.Email},
		Status:        string(r.Status),
		LastActivity:  r.LastActivity,
	}
	if r.Session != nil {
		resp.VideoCall = &VideoCallBody{
			SessionID:   r.Session.SessionID,
			IsActive:    r.Session.Active(),
			StartedAt:   r.Session.StartedAt,
			EndedAt:     r.Session.EndedAt,
			InitiatedBy: r.Session.InitiatedBy,
		}
	}
	return resp
}

type VideoCallRequest struct {
	ChatRoomID string `json:"chatRoomId,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
}

type NotificationResponse struct {
	ID            uuid.UUID  `json:"id"`
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	IsRead        bool       `json:"isRead"`
	AppointmentID *uuid.UUID `json:"appointmentId,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toNotificationResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		Type:          n.Type,
		Title:         n.Title,
		Content:       n.Content,
		IsRead:        n.IsRead,
		AppointmentID: n.AppointmentID,
		CreatedAt:     n.CreatedAt,
	}
}
