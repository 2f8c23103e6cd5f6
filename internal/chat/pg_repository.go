package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const roomColumns = `
	id, appointment_id, doctor_id, patient_id, patient_name, patient_email,
	status, last_message_id, last_activity,
	call_session_id, call_started_at, call_ended_at, call_initiated_by,
	created_at, updated_at`

// Helpers

func scanRoom(row pgx.Row) (*ChatRoom, error) {
	var r ChatRoom
	var sessionID, initiatedBy *uuid.UUID
	var startedAt, endedAt *time.Time

	err := row.Scan(
		&r.ID,
		&r.AppointmentID,
		&r.DoctorID,
		&r.PatientID,
		&r.PatientInfo.Name,
		&r.PatientInfo.Email,
		&r.Status,
		&r.LastMessageID,
		&r.LastActivity,
		&sessionID,
		&startedAt,
		&endedAt,
		&initiatedBy,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	if sessionID != nil && startedAt != nil && initiatedBy != nil {
		r.Session = &CallSession{
			SessionID:   *sessionID,
			StartedAt:   *startedAt,
			InitiatedBy: *initiatedBy,
			EndedAt:     endedAt,
		}
	}
	return &r, nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	var content *string
	var attachments []byte

	err := row.Scan(
		&m.ID,
		&m.ChatRoomID,
		&m.SenderID,
		&m.SenderType,
		&m.MessageType,
		&content,
		&attachments,
		&m.Status,
		&m.IsDeleted,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if content != nil {
		m.Content = *content
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &m.Attachments); err != nil {
			return nil, fmt.Errorf("decode attachments: %w", err)
		}
	}
	return &m, nil
}

// Rooms

func (r *PgRepository) GetRoomByID(ctx context.Context, id uuid.UUID) (*ChatRoom, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+roomColumns+`
		FROM chat_rooms
		WHERE id = $1
	`, id)
	return scanRoom(row)
}

func (r *PgRepository) GetRoomByAppointment(ctx context.Context, appointmentID uuid.UUID) (*ChatRoom, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+roomColumns+`
		FROM chat_rooms
		WHERE appointment_id = $1
	`, appointmentID)
	return scanRoom(row)
}

func (r *PgRepository) GetRoomBySession(ctx context.Context, sessionID uuid.UUID, activeOnly bool) (*ChatRoom, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM chat_rooms
		WHERE call_session_id = $1`
	if activeOnly {
		query += ` AND call_ended_at IS NULL`
	}

	room, err := scanRoom(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return room, nil
}

func (r *PgRepository) InsertRoom(ctx context.Context, room *ChatRoom) (*ChatRoom, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO chat_rooms (
			id, appointment_id, doctor_id, patient_id, patient_name, patient_email,
			status, last_activity, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now(), now())
		RETURNING `+roomColumns+`
	`, id, room.AppointmentID, room.DoctorID, room.PatientID,
		room.PatientInfo.Name, room.PatientInfo.Email, RoomActive)

	created, err := scanRoom(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrRoomExists
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) SetRoomActivity(ctx context.Context, roomID, lastMessageID uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE chat_rooms
		SET last_message_id = $2,
		    last_activity   = $3,
		    updated_at      = now()
		WHERE id = $1
	`, roomID, lastMessageID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *PgRepository) SetRoomSession(ctx context.Context, roomID uuid.UUID, session *CallSession) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE chat_rooms
		SET call_session_id   = $2,
		    call_started_at   = $3,
		    call_ended_at     = $4,
		    call_initiated_by = $5,
		    updated_at        = now()
		WHERE id = $1
	`, roomID, session.SessionID, session.StartedAt, session.EndedAt, session.InitiatedBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

func (r *PgRepository) ListRoomsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]ChatRoom, error) {
	return r.listRooms(ctx, `doctor_id`, doctorID)
}

func (r *PgRepository) ListRoomsByPatient(ctx context.Context, patientID uuid.UUID) ([]ChatRoom, error) {
	return r.listRooms(ctx, `patient_id`, patientID)
}

func (r *PgRepository) listRooms(ctx context.Context, column string, userID uuid.UUID) ([]ChatRoom, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+roomColumns+`
		FROM chat_rooms
		WHERE `+column+` = $1
		  AND status = 'ACTIVE'
		ORDER BY last_activity DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ChatRoom
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *room)
	}
	return result, rows.Err()
}

// Messages

func (r *PgRepository) InsertMessage(ctx context.Context, m *Message) (*Message, error) {
	id := uuid.New()

	attachments := []byte(`[]`)
	if len(m.Attachments) > 0 {
		var err error
		attachments, err = json.Marshal(m.Attachments)
		if err != nil {
			return nil, fmt.Errorf("encode attachments: %w", err)
		}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO messages (
			id, chat_room_id, sender_id, sender_type, message_type, content,
			attachments, status, is_deleted, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, now())
		RETURNING id, chat_room_id, sender_id, sender_type, message_type, content,
		          attachments, status, is_deleted, created_at
	`, id, m.ChatRoomID, m.SenderID, m.SenderType, m.MessageType,
		m.Content, attachments, m.Status)

	return scanMessage(row)
}

func (r *PgRepository) ListMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]Message, int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, chat_room_id, sender_id, sender_type, message_type, content,
		       attachments, status, is_deleted, created_at
		FROM messages
		WHERE chat_room_id = $1
		  AND is_deleted = false
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, roomID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages []Message
	var ids []uuid.UUID
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		messages = append(messages, *m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadReceipts(ctx, messages, ids); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `
		SELECT count(*) FROM messages WHERE chat_room_id = $1 AND is_deleted = false
	`, roomID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

func (r *PgRepository) loadReceipts(ctx context.Context, messages []Message, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT message_id, user_id, read_at
		FROM message_reads
		WHERE message_id = ANY($1)
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	byMessage := make(map[uuid.UUID][]ReadReceipt)
	for rows.Next() {
		var messageID uuid.UUID
		var receipt ReadReceipt
		if err := rows.Scan(&messageID, &receipt.UserID, &receipt.ReadAt); err != nil {
			return err
		}
		byMessage[messageID] = append(byMessage[messageID], receipt)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range messages {
		messages[i].ReadBy = byMessage[messages[i].ID]
	}
	return nil
}

func (r *PgRepository) MarkMessagesRead(ctx context.Context, roomID, readerID uuid.UUID, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Insert-if-absent keeps the receipt set idempotent under repeated calls.
	_, err = tx.Exec(ctx, `
		INSERT INTO message_reads (message_id, user_id, read_at)
		SELECT id, $2, $3
		FROM messages
		WHERE chat_room_id = $1
		  AND sender_id <> $2
		  AND is_deleted = false
		ON CONFLICT (message_id, user_id) DO NOTHING
	`, roomID, readerID, at)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE messages
		SET status = 'READ'
		WHERE chat_room_id = $1
		  AND sender_id <> $2
		  AND is_deleted = false
	`, roomID, readerID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Collaborator lookups

func (r *PgRepository) GetAppointmentRef(ctx context.Context, appointmentID uuid.UUID) (*AppointmentRef, error) {
	var ref AppointmentRef

	err := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, patient_id, patient_name, patient_email
		FROM appointments
		WHERE id = $1
	`, appointmentID).Scan(&ref.ID, &ref.DoctorID, &ref.PatientID, &ref.PatientName, &ref.PatientEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &ref, nil
}

func (r *PgRepository) GetUserRef(ctx context.Context, userID uuid.UUID) (*UserRef, error) {
	var ref UserRef

	err := r.pool.QueryRow(ctx, `
		SELECT id, name, email, role
		FROM users
		WHERE id = $1
	`, userID).Scan(&ref.ID, &ref.Name, &ref.Email, &ref.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &ref, nil
}
