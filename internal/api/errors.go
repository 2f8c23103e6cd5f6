package api

import (
	"errors"
	"net/http"

	"github.com/medisched/medisched/internal/appointment"
	"github.com/medisched/medisched/internal/chat"
	"github.com/medisched/medisched/internal/notification"
	"github.com/medisched/medisched/internal/payment"
	redisclient "github.com/medisched/medisched/internal/redis"
)

// handleServiceError maps domain sentinel errors onto the HTTP surface.
// Anything unmapped is an internal error.
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, appointment.ErrPastDatetime):
		writeError(w, http.StatusBadRequest, "past_datetime", err.Error())
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, appointment.ErrBookingContended),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, chat.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, chat.ErrRoomNotFound):
		writeError(w, http.StatusNotFound, "chat_room_not_found", err.Error())
	case errors.Is(err, chat.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "call_session_not_found", err.Error())
	case errors.Is(err, chat.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, chat.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "not_a_participant", err.Error())
	case errors.Is(err, chat.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, "empty_content", err.Error())
	case errors.Is(err, chat.ErrCallInProgress):
		writeError(w, http.StatusConflict, "call_in_progress", err.Error())
	case errors.Is(err, notification.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
	case errors.Is(err, payment.ErrUnknownOutcome):
		writeError(w, http.StatusBadRequest, "unknown_payment_outcome", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
