package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medisched/medisched/internal/chat"
)

func getChatRoomHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		appointmentID, err := uuid.Parse(chi.URLParam(r, "appointmentId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointmentId must be a valid UUID")
			return
		}

		room, err := svc.GetOrCreateRoom(r.Context(), appointmentID, actor.ID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toChatRoomResponse(room))
	}
}

func listChatRoomsHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		rooms, err := svc.ListRooms(r.Context(), actor.ID, actor.Role)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]ChatRoomResponse, 0, len(rooms))
		for i := range rooms {
			resp = append(resp, toChatRoomResponse(&rooms[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listMessagesHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		roomID, err := uuid.Parse(chi.URLParam(r, "chatRoomId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_chat_room_id", "chatRoomId must be a valid UUID")
			return
		}

		page := queryInt(r, "page", 1)
		pageSize := queryInt(r, "limit", 50)

		result, err := svc.ListMessages(r.Context(), roomID, actor.ID, page, pageSize)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := MessagePageResponse{
			Messages:      make([]MessageResponse, 0, len(result.Messages)),
			CurrentPage:   result.Page,
			TotalPages:    result.TotalPages,
			TotalMessages: result.TotalMessages,
		}
		for i := range result.Messages {
			resp.Messages = append(resp.Messages, toMessageResponse(&result.Messages[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func sendMessageHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		var req SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		roomID, err := uuid.Parse(req.ChatRoomID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_chat_room_id", "chatRoomId must be a valid UUID")
			return
		}

		message, err := svc.Send(r.Context(), chat.SendInput{
			RoomID:      roomID,
			SenderID:    actor.ID,
			Content:     req.Content,
			Type:        chat.MessageType(req.MessageType),
			Attachments: req.Attachments,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toMessageResponse(message))
	}
}

func markMessagesReadHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}

		roomID, err := uuid.Parse(chi.URLParam(r, "chatRoomId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_chat_room_id", "chatRoomId must be a valid UUID")
			return
		}

		if err := svc.MarkRead(r.Context(), roomID, actor.ID); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "Messages marked as read"})
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
