package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisched/medisched/internal/appointment"
	"github.com/medisched/medisched/internal/chat"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("passes through when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "req-42", seen)
		assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	})
}

func TestActorMiddleware(t *testing.T) {
	var (
		actor Actor
		found bool
	)
	handler := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, found = GetActor(r.Context())
	}))

	t.Run("attaches identity", func(t *testing.T) {
		id := uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User-ID", id.String())
		req.Header.Set("X-User-Role", "DOCTOR")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		require.True(t, found)
		assert.Equal(t, id, actor.ID)
		assert.Equal(t, "DOCTOR", actor.Role)
	})

	t.Run("anonymous passes through", func(t *testing.T) {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.False(t, found)
	})

	t.Run("malformed id rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User-ID", "not-a-uuid")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireActor(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := requireActor(w, r); !ok {
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("without identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-User-ID", uuid.NewString())
		rec := httptest.NewRecorder()
		ActorMiddleware(handler).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestHandleServiceError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{appointment.ErrValidation, http.StatusBadRequest},
		{appointment.ErrPastDatetime, http.StatusBadRequest},
		{appointment.ErrSlotTaken, http.StatusConflict},
		{appointment.ErrBookingContended, http.StatusConflict},
		{appointment.ErrAppointmentNotFound, http.StatusNotFound},
		{appointment.ErrSlotNotFound, http.StatusNotFound},
		{chat.ErrRoomNotFound, http.StatusNotFound},
		{chat.ErrSessionNotFound, http.StatusNotFound},
		{chat.ErrNotParticipant, http.StatusForbidden},
		{chat.ErrEmptyContent, http.StatusBadRequest},
		{chat.ErrCallInProgress, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", appointment.ErrSlotTaken), http.StatusConflict},
		{fmt.Errorf("something else broke"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
