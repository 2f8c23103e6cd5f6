package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medisched/medisched/internal/payment"
)

func updatePaymentStatusHandler(rec *payment.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdatePaymentStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appointmentID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointmentId must be a valid UUID")
			return
		}

		appt, err := rec.ApplyOutcome(r.Context(), appointmentID, payment.OutcomeInput{
			Outcome:  payment.Outcome(req.PaymentStatus),
			IntentID: req.IntentID,
			Amount:   req.Amount,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Payment status updated successfully",
			"appointment": toAppointmentResponse(appt),
		})
	}
}

// paymentWebhookHandler consumes provider callbacks. Signature verification
// happens at the gateway; here only the outcome is applied. Unhandled event
// types are acknowledged so the provider stops retrying them.
func paymentWebhookHandler(rec *payment.Reconciler, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var event StripeWebhookEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse webhook event")
			return
		}

		var outcome payment.Outcome
		switch event.Type {
		case "payment_intent.succeeded":
			outcome = payment.OutcomeCompleted
		case "payment_intent.payment_failed":
			outcome = payment.OutcomeFailed
		default:
			log.Debug().Str("event_type", event.Type).Msg("ignoring webhook event")
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}

		appointmentID, err := uuid.Parse(event.Data.Object.Metadata.AppointmentID)
		if err != nil {
			// Intents created outside the booking flow carry no appointment.
			log.Warn().Str("intent_id", event.Data.Object.ID).Msg("webhook without appointment id")
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
			return
		}

		intentID := event.Data.Object.ID
		amount := float64(event.Data.Object.Amount) / 100

		if _, err := rec.ApplyOutcome(r.Context(), appointmentID, payment.OutcomeInput{
			Outcome:  outcome,
			IntentID: &intentID,
			Amount:   &amount,
		}); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}
