package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medisched/medisched/internal/appointment"
	"github.com/medisched/medisched/internal/chat"
	"github.com/medisched/medisched/internal/notification"
	"github.com/medisched/medisched/internal/payment"
)

type RouterConfig struct {
	Appointments  *appointment.Service
	Slots         *appointment.SlotService
	Payments      *payment.Reconciler
	Chat          *chat.Service
	Calls         *chat.CallService
	Notifications *notification.Dispatcher
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Logger        zerolog.Logger
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(ActorMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(cfg.Appointments))
		r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
		r.Put("/{id}", updateAppointmentHandler(cfg.Appointments))
		r.Delete("/{id}", deleteAppointmentHandler(cfg.Appointments))
		r.Get("/doctor/{doctorId}", listDoctorAppointmentsHandler(cfg.Appointments))
	})

	r.Route("/availability-slots", func(r chi.Router) {
		r.Post("/", createSlotHandler(cfg.Slots))
		r.Get("/doctor/{doctorId}", listDoctorSlotsHandler(cfg.Slots))
		r.Delete("/{id}", deleteSlotHandler(cfg.Slots))
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/update-payment-status", updatePaymentStatusHandler(cfg.Payments))
		r.Post("/webhook", paymentWebhookHandler(cfg.Payments, cfg.Logger))
	})

	r.Route("/chat", func(r chi.Router) {
		r.Get("/chat-room/{appointmentId}", getChatRoomHandler(cfg.Chat))
		r.Get("/chat-rooms", listChatRoomsHandler(cfg.Chat))
		r.Get("/messages/{chatRoomId}", listMessagesHandler(cfg.Chat))
		r.Post("/messages", sendMessageHandler(cfg.Chat))
		r.Patch("/messages/{chatRoomId}/read", markMessagesReadHandler(cfg.Chat))
	})

	r.Route("/video-call", func(r chi.Router) {
		r.Post("/initiate", initiateCallHandler(cfg.Calls))
		r.Post("/join", joinCallHandler(cfg.Calls))
		r.Post("/end", endCallHandler(cfg.Calls))
		r.Get("/session/{sessionId}", getCallSessionHandler(cfg.Calls))
		r.Post("/clear-session", clearCallSessionHandler(cfg.Calls))
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", listNotificationsHandler(cfg.Notifications))
		r.Patch("/{id}/read", markNotificationReadHandler(cfg.Notifications))
		r.Post("/read-all", markAllNotificationsReadHandler(cfg.Notifications))
	})

	return r
}
