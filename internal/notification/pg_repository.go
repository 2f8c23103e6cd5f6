package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const notificationColumns = `
	id, user_id, type, title, content, is_read, appointment_id,
	patient_name, patient_email, appointment_date, appointment_time, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification

	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Content,
		&n.IsRead,
		&n.AppointmentID,
		&n.PatientName,
		&n.PatientEmail,
		&n.AppointmentDate,
		&n.AppointmentTime,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	return &n, nil
}

func (r *PgRepository) Insert(ctx context.Context, n *Notification) (*Notification, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (
			id, user_id, type, title, content, is_read, appointment_id,
			patient_name, patient_email, appointment_date, appointment_time, created_at
		)
		VALUES ($1, $2, $3, $4, $5, false, $6, $7, $8, $9, $10, now())
		RETURNING `+notificationColumns+`
	`, id, n.UserID, n.Type, n.Title, n.Content, n.AppointmentID,
		n.PatientName, n.PatientEmail, n.AppointmentDate, n.AppointmentTime)

	return scanNotification(row)
}

func (r *PgRepository) ListByUser(ctx context.Context, userID uuid.UUID, opts ListOptions) (*ListResult, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}
	offset := (opts.Page - 1) * opts.PageSize

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1`
	if opts.UnreadOnly {
		query += ` AND is_read = false`
	}
	query += `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, opts.PageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := &ListResult{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result.Notifications = append(result.Notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	countQuery := `SELECT count(*) FROM notifications WHERE user_id = $1`
	if opts.UnreadOnly {
		countQuery += ` AND is_read = false`
	}
	if err := r.pool.QueryRow(ctx, countQuery, userID).Scan(&result.Total); err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications WHERE user_id = $1 AND is_read = false
	`, userID).Scan(&result.UnreadCount)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE notifications
		SET is_read = true
		WHERE id = $1
		  AND user_id = $2
		RETURNING `+notificationColumns+`
	`, id, userID)
	return scanNotification(row)
}

func (r *PgRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET is_read = true
		WHERE user_id = $1
		  AND is_read = false
	`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) ListAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE role = 'ADMIN'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
