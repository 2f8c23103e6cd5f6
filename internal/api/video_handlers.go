package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medisched/medisched/internal/chat"
)

func initiateCallHandler(svc *chat.CallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		var req VideoCallRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		roomID, err := uuid.Parse(req.ChatRoomID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_chat_room_id", "chatRoomId must be a valid UUID")
			return
		}

		info, err := svc.Initiate(r.Context(), roomID, actor.ID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"sessionId":  info.SessionID,
			"chatRoomId": info.RoomID,
			"status":     info.Status,
		})
	}
}

func joinCallHandler(svc *chat.CallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		var req VideoCallRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		sessionID, err := uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "sessionId must be a valid UUID")
			return
		}

		info, err := svc.Join(r.Context(), sessionID, actor.ID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"sessionId":  info.SessionID,
			"chatRoomId": info.RoomID,
			"status":     info.Status,
		})
	}
}

func endCallHandler(svc *chat.CallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		var req VideoCallRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		sessionID, err := uuid.Parse(req.SessionID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "sessionId must be a valid UUID")
			return
		}

		info, err := svc.End(r.Context(), sessionID, actor.ID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"sessionId": info.SessionID,
			"status":    info.Status,
			"duration":  info.DurationSeconds,
		})
	}
}

func getCallSessionHandler(svc *chat.CallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		sessionID, err := uuid.Parse(chi.URLParam(r, "sessionId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "sessionId must be a valid UUID")
			return
		}

		info, err := svc.GetSession(r.Context(), sessionID, actor.ID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"sessionId":   info.SessionID,
			"chatRoomId":  info.RoomID,
			"isActive":    info.IsActive,
			"startedAt":   info.StartedAt,
			"endedAt":     info.EndedAt,
			"initiatedBy": info.InitiatedBy,
		})
	}
}

func clearCallSessionHandler(svc *chat.CallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireActor(w, r); !ok {
			return
		}

		var req VideoCallRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		roomID, err := uuid.Parse(req.ChatRoomID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_chat_room_id", "chatRoomId must be a valid UUID")
			return
		}

		cleared, err := svc.ClearStuckSession(r.Context(), roomID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		message := "No active video call session found"
		if cleared {
			message = "Video call session cleared successfully"
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": message})
	}
}
