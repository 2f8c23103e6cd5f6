package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCallFixture(t *testing.T, staleAfter time.Duration) (*fixture, *CallService) {
	t.Helper()
	f := newFixture(t)
	calls := NewCallService(f.svc, f.repo, f.events, staleAfter, zerolog.Nop())
	return f, calls
}

func TestCallLifecycle(t *testing.T) {
	f, calls := newCallFixture(t, 30*time.Minute)
	room := f.room(t)

	info, err := calls.Initiate(context.Background(), room.ID, f.doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, "initiated", info.Status)
	assert.Equal(t, room.ID, info.RoomID)
	assert.NotEqual(t, uuid.Nil, info.SessionID)

	joined, err := calls.Join(context.Background(), info.SessionID, f.patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "joined", joined.Status)

	ended, err := calls.End(context.Background(), info.SessionID, f.patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "ended", ended.Status)
	assert.GreaterOrEqual(t, ended.DurationSeconds, 0)

	// Lifecycle markers land in the room history.
	var types []MessageType
	for _, m := range f.repo.roomMessages(room.ID) {
		types = append(types, m.MessageType)
	}
	assert.Contains(t, types, MessageVideoCallStart)
	assert.Contains(t, types, MessageVideoCallEnd)

	assert.Contains(t, f.events.types(), "video-call-initiated")
	assert.Contains(t, f.events.types(), "video-call-participant-joined")
	assert.Contains(t, f.events.types(), "video-call-ended")
}

func TestInitiateRejectsActiveCall(t *testing.T) {
	f, calls := newCallFixture(t, 30*time.Minute)
	room := f.room(t)

	_, err := calls.Initiate(context.Background(), room.ID, f.doctor.ID)
	require.NoError(t, err)

	_, err = calls.Initiate(context.Background(), room.ID, f.patient.ID)
	assert.ErrorIs(t, err, ErrCallInProgress)
}

func TestInitiateReclaimsStaleSession(t *testing.T) {
	f, calls := newCallFixture(t, 30*time.Minute)
	room := f.room(t)

	// A session abandoned 31 minutes ago, never ended.
	stuck := &CallSession{
		SessionID:   uuid.New(),
		StartedAt:   time.Now().Add(-31 * time.Minute),
		InitiatedBy: f.doctor.ID,
	}
	require.NoError(t, f.repo.SetRoomSession(context.Background(), room.ID, stuck))

	info, err := calls.Initiate(context.Background(), room.ID, f.patient.ID)
	require.NoError(t, err)
	assert.NotEqual(t, stuck.SessionID, info.SessionID)

	// The old session is now terminal, not active.
	old, err := calls.GetSession(context.Background(), stuck.SessionID, f.doctor.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Nil(t, old)
}

func TestInitiateKeepsFreshSession(t *testing.T) {
	f, calls := newCallFixture(t, 30*time.Minute)
	room := f.room(t)

	fresh := &CallSession{
		SessionID:   uuid.New(),
		StartedAt:   time.Now().Add(-5 * time.Minute),
		InitiatedBy: f.doctor.ID,
	}
	require.NoError(t, f.repo.SetRoomSession(context.Background(), room.ID, fresh))

	_, err := calls.Initiate(context.Background(), room.ID, f.patient.ID)
	assert.ErrorIs(t, err, ErrCallInProgress)
}

func TestInitiateRejectsOutsider(t *testing.T) {
	f, calls := newCallFixture(t, 30*time.Minute)
	room := f.room(t)

	_, err := calls.Initiate(context.Background(), room.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestJoinEndedSession(t *testing.T) {
	f, calls := newCallFixture(t, 30*time.Minute)
	room := f.room(t)

	info, err := calls.Initiate(context.Background(), room.ID, f.doctor.ID)
	require.NoError(t, err)
	_, err = calls.End(context.Background(), info.SessionID, f.doctor.ID)
	require.NoError(t, err)

	_, err = calls.Join(context.Background(), info.SessionID, f.patient.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEndRejectsOutsider(t *testing.T) {
	f, calls := newCallFixture(t, 30*time.Minute)
	room := f.room(t)

	info, err := calls.Initiate(context.Background(), room.ID, f.doctor.ID)
	require.NoError(t, err)

	_, err = calls.End(context.Background(), info.SessionID, uuid.New())
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestGetSessionAfterEnd(t *testing.T) {
	f, calls := newCallFixture(t, 30*time.Minute)
	room := f.room(t)

	info, err := calls.Initiate(context.Background(), room.ID, f.doctor.ID)
	require.NoError(t, err)

	active, err := calls.GetSession(context.Background(), info.SessionID, f.patient.ID)
	require.NoError(t, err)
	assert.True(t, active.IsActive)
	assert.Equal(t, f.doctor.ID, active.InitiatedBy)

	_, err = calls.End(context.Background(), info.SessionID, f.doctor.ID)
	require.NoError(t, err)

	ended, err := calls.GetSession(context.Background(), info.SessionID, f.patient.ID)
	require.NoError(t, err)
	assert.False(t, ended.IsActive)
	require.NotNil(t, ended.EndedAt)
}

func TestClearStuckSession(t *testing.T) {
	f, calls := newCallFixture(t, 30*time.Minute)
	room := f.room(t)

	// Nothing to clear on an idle room.
	cleared, err := calls.ClearStuckSession(context.Background(), room.ID)
	require.NoError(t, err)
	assert.False(t, cleared)

	info, err := calls.Initiate(context.Background(), room.ID, f.doctor.ID)
	require.NoError(t, err)

	// Clears even a fresh session; the threshold only gates reclamation.
	cleared, err = calls.ClearStuckSession(context.Background(), room.ID)
	require.NoError(t, err)
	assert.True(t, cleared)

	// Repeating is a no-op.
	cleared, err = calls.ClearStuckSession(context.Background(), room.ID)
	require.NoError(t, err)
	assert.False(t, cleared)

	_, err = calls.Join(context.Background(), info.SessionID, f.patient.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestInitiateSurvivesPublishFailure(t *testing.T) {
	f, calls := newCallFixture(t, 30*time.Minute)
	room := f.room(t)
	f.events.err = fmt.Errorf("redis gone")

	info, err := calls.Initiate(context.Background(), room.ID, f.doctor.ID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, info.SessionID)
}

func TestInitiateFailsWhenSessionNotPersisted(t *testing.T) {
	f, calls := newCallFixture(t, 30*time.Minute)
	room := f.room(t)
	f.repo.sessionErr = fmt.Errorf("pg down")

	_, err := calls.Initiate(context.Background(), room.ID, f.doctor.ID)
	assert.Error(t, err)
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{5, "5s"},
		{65, "1m 5s"},
		{3600, "1h 0m 0s"},
		{3725, "1h 2m 5s"},
		{0, "0s"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatDuration(tc.seconds))
	}
}

func TestCallSessionActive(t *testing.T) {
	var none *CallSession
	assert.False(t, none.Active())

	now := time.Now()
	live := &CallSession{SessionID: uuid.New(), StartedAt: now}
	assert.True(t, live.Active())
	assert.False(t, live.Stale(30*time.Minute))

	over := &CallSession{SessionID: uuid.New(), StartedAt: now.Add(-time.Hour), EndedAt: &now}
	assert.False(t, over.Active())
	assert.False(t, over.Stale(30*time.Minute))
}
