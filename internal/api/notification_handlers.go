package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medisched/medisched/internal/notification"
)

func listNotificationsHandler(svc *notification.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		opts := notification.ListOptions{
			Page:       queryInt(r, "page", 1),
			PageSize:   queryInt(r, "limit", 20),
			UnreadOnly: r.URL.Query().Get("unreadOnly") == "true",
		}

		result, err := svc.ListForUser(r.Context(), actor.ID, opts)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		items := make([]NotificationResponse, 0, len(result.Notifications))
		for i := range result.Notifications {
			items = append(items, toNotificationResponse(&result.Notifications[i]))
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"notifications": items,
			"total":         result.Total,
			"unreadCount":   result.UnreadCount,
		})
	}
}

func markNotificationReadHandler(svc *notification.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", "id must be a valid UUID")
			return
		}

		updated, err := svc.MarkRead(r.Context(), id, actor.ID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toNotificationResponse(updated))
	}
}

func markAllNotificationsReadHandler(svc *notification.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		count, err := svc.MarkAllRead(r.Context(), actor.ID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"updated": count})
	}
}
