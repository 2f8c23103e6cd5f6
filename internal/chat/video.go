package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medisched/medisched/internal/advisory"
	"github.com/medisched/medisched/internal/realtime"
)

var ErrCallInProgress = errors.New("there is already an active call in this room")

// CallService owns the single call session embedded in a chat room:
// initiate -> join -> end, with lazy reclamation of sessions that were never
// ended. Authorization rides on the room coordinator's participant check.
type CallService struct {
	rooms      *Service
	repo       Repository
	events     realtime.Publisher
	staleAfter time.Duration
	log        zerolog.Logger
}

func NewCallService(rooms *Service, repo Repository, events realtime.Publisher, staleAfter time.Duration, log zerolog.Logger) *CallService {
	return &CallService{
		rooms:      rooms,
		repo:       repo,
		events:     events,
		staleAfter: staleAfter,
		log:        log,
	}
}

type CallInfo struct {
	SessionID uuid.UUID
	RoomID    uuid.UUID
	Status    string
}

type CallEndInfo struct {
	SessionID       uuid.UUID
	Status          string
	DurationSeconds int
}

type SessionInfo struct {
	SessionID   uuid.UUID
	RoomID      uuid.UUID
	IsActive    bool
	StartedAt   time.Time
	EndedAt     *time.Time
	InitiatedBy uuid.UUID
}

// Initiate starts a call in the room. An active session blocks a new call
// unless it has outlived the staleness threshold, in which case it is
// reclaimed first.
func (s *CallService) Initiate(ctx context.Context, roomID, initiatorID uuid.UUID) (*CallInfo, error) {
	room, err := s.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.rooms.isParticipant(ctx, room, initiatorID); err != nil {
		return nil, err
	}

	if room.Session.Active() {
		if !room.Session.Stale(s.staleAfter) {
			return nil, ErrCallInProgress
		}

		s.log.Info().
			Str("room_id", room.ID.String()).
			Str("session_id", room.Session.SessionID.String()).
			Msg("reclaiming stale call session")

		now := time.Now()
		room.Session.EndedAt = &now
		if err := s.repo.SetRoomSession(ctx, room.ID, room.Session); err != nil {
			return nil, fmt.Errorf("reclaim stale session: %w", err)
		}
	}

	session := &CallSession{
		SessionID:   uuid.New(),
		StartedAt:   time.Now(),
		InitiatedBy: initiatorID,
	}
	if err := s.repo.SetRoomSession(ctx, room.ID, session); err != nil {
		return nil, fmt.Errorf("persist call session: %w", err)
	}

	initiatorName := s.participantName(ctx, room, initiatorID)

	s.appendSystemMessage(ctx, room, initiatorID, MessageVideoCallStart,
		fmt.Sprintf("%s started a video call", initiatorName))

	advisory.Log(s.log, "publish call initiated",
		s.events.Publish(ctx, realtime.RoomChannel(room.ID), realtime.Event{
			Type: "video-call-initiated",
			Data: map[string]any{
				"sessionId":     session.SessionID.String(),
				"initiatorId":   initiatorID.String(),
				"initiatorName": initiatorName,
				"chatRoomId":    room.ID.String(),
			},
		}))

	return &CallInfo{SessionID: session.SessionID, RoomID: room.ID, Status: "initiated"}, nil
}

// Join announces a participant on an active session. It does not change the
// session state.
func (s *CallService) Join(ctx context.Context, sessionID, participantID uuid.UUID) (*CallInfo, error) {
	room, err := s.repo.GetRoomBySession(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}
	if err := s.rooms.isParticipant(ctx, room, participantID); err != nil {
		return nil, err
	}

	advisory.Log(s.log, "publish participant joined",
		s.events.Publish(ctx, realtime.RoomChannel(room.ID), realtime.Event{
			Type: "video-call-participant-joined",
			Data: map[string]any{
				"sessionId":       sessionID.String(),
				"participantId":   participantID.String(),
				"participantName": s.participantName(ctx, room, participantID),
			},
		}))

	return &CallInfo{SessionID: sessionID, RoomID: room.ID, Status: "joined"}, nil
}

// End closes an active session and records its duration.
func (s *CallService) End(ctx context.Context, sessionID, participantID uuid.UUID) (*CallEndInfo, error) {
	room, err := s.repo.GetRoomBySession(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}
	if err := s.rooms.isParticipant(ctx, room, participantID); err != nil {
		return nil, err
	}

	now := time.Now()
	duration := int(now.Sub(room.Session.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}

	room.Session.EndedAt = &now
	if err := s.repo.SetRoomSession(ctx, room.ID, room.Session); err != nil {
		return nil, fmt.Errorf("end call session: %w", err)
	}

	s.appendSystemMessage(ctx, room, participantID, MessageVideoCallEnd,
		fmt.Sprintf("Video call ended (Duration: %s)", formatDuration(duration)))

	advisory.Log(s.log, "publish call ended",
		s.events.Publish(ctx, realtime.RoomChannel(room.ID), realtime.Event{
			Type: "video-call-ended",
			Data: map[string]any{
				"sessionId":   sessionID.String(),
				"endedBy":     participantID.String(),
				"endedByName": s.participantName(ctx, room, participantID),
				"duration":    duration,
			},
		}))

	return &CallEndInfo{SessionID: sessionID, Status: "ended", DurationSeconds: duration}, nil
}

// GetSession is a read-only projection of a room's session, active or ended.
func (s *CallService) GetSession(ctx context.Context, sessionID, userID uuid.UUID) (*SessionInfo, error) {
	room, err := s.repo.GetRoomBySession(ctx, sessionID, false)
	if err != nil {
		return nil, err
	}
	if err := s.rooms.isParticipant(ctx, room, userID); err != nil {
		return nil, err
	}

	return &SessionInfo{
		SessionID:   room.Session.SessionID,
		RoomID:      room.ID,
		IsActive:    room.Session.Active(),
		StartedAt:   room.Session.StartedAt,
		EndedAt:     room.Session.EndedAt,
		InitiatedBy: room.Session.InitiatedBy,
	}, nil
}

// ClearStuckSession unconditionally forces an active session back to idle,
// regardless of the staleness threshold. No-op when the room is already idle.
func (s *CallService) ClearStuckSession(ctx context.Context, roomID uuid.UUID) (bool, error) {
	room, err := s.repo.GetRoomByID(ctx, roomID)
	if err != nil {
		return false, err
	}

	if !room.Session.Active() {
		return false, nil
	}

	now := time.Now()
	room.Session.EndedAt = &now
	if err := s.repo.SetRoomSession(ctx, room.ID, room.Session); err != nil {
		return false, fmt.Errorf("clear call session: %w", err)
	}

	s.log.Info().Str("room_id", roomID.String()).Msg("cleared stuck call session")
	return true, nil
}

// appendSystemMessage records a call lifecycle marker in the room's history.
// The session transition is already persisted, so failures here are advisory.
func (s *CallService) appendSystemMessage(ctx context.Context, room *ChatRoom, actorID uuid.UUID, msgType MessageType, content string) {
	message, err := s.repo.InsertMessage(ctx, &Message{
		ChatRoomID:  room.ID,
		SenderID:    actorID,
		SenderType:  senderTypeForID(room, actorID),
		MessageType: msgType,
		Content:     content,
		Status:      StatusSent,
	})
	if err != nil {
		advisory.Log(s.log, "append call system message", err)
		return
	}

	advisory.Log(s.log, "bump room activity",
		s.repo.SetRoomActivity(ctx, room.ID, message.ID, message.CreatedAt))
}

func (s *CallService) participantName(ctx context.Context, room *ChatRoom, userID uuid.UUID) string {
	if user, err := s.repo.GetUserRef(ctx, userID); err == nil {
		return user.Name
	}
	// Guests have no directory entry; fall back to the room's patient info.
	return room.PatientInfo.Name
}

func senderTypeForID(room *ChatRoom, userID uuid.UUID) SenderType {
	if room.DoctorID == userID {
		return SenderDoctor
	}
	return SenderPatient
}

func formatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
