package appointment

import (
	"context"
	"errors"
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

const appointmentColumns = `
	id, doctor_id, patient_id, patient_name, patient_email, patient_phone,
	datetime, status, payment_status, payment_intent_id, payment_amount,
	department, created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var phone *string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.PatientInfo.Name,
		&a.PatientInfo.Email,
		&phone,
		&a.Datetime,
		&a.Status,
		&a.PaymentStatus,
		&a.PaymentIntentID,
		&a.PaymentAmount,
		&a.Department,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if phone != nil {
		a.PatientInfo.Phone = *phone
	}
	return &a, nil
}

func scanSlot(row pgx.Row) (*AvailabilitySlot, error) {
	var s AvailabilitySlot

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.IsBooked,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Appointments

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetLiveAppointmentAt(ctx context.Context, doctorID uuid.UUID, datetime time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND datetime = $2
		  AND status <> 'CANCELLED'
	`, doctorID, datetime)
	return scanAppointment(row)
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, doctor_id, patient_id, patient_name, patient_email, patient_phone,
			datetime, status, payment_status, payment_amount, department,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING `+appointmentColumns+`
	`, id, a.DoctorID, a.PatientID, a.PatientInfo.Name, a.PatientInfo.Email,
		nullable(a.PatientInfo.Phone), a.Datetime, a.Status, a.PaymentStatus,
		a.PaymentAmount, a.Department)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateBooking
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, id uuid.UUID, patch AppointmentPatch) (*Appointment, error) {
	var name, email, phone *string
	if patch.PatientInfo != nil {
		name = nullable(patch.PatientInfo.Name)
		email = nullable(patch.PatientInfo.Email)
		phone = nullable(patch.PatientInfo.Phone)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET datetime       = COALESCE($2, datetime),
		    status         = COALESCE($3, status),
		    payment_status = COALESCE($4, payment_status),
		    department     = COALESCE($5, department),
		    patient_name   = COALESCE($6, patient_name),
		    patient_email  = COALESCE($7, patient_email),
		    patient_phone  = COALESCE($8, patient_phone),
		    updated_at     = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, patch.Datetime, patch.Status, patch.PaymentStatus, patch.Department,
		name, email, phone)

	return scanAppointment(row)
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY datetime ASC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ApplyPaymentOutcome(ctx context.Context, id uuid.UUID, paymentStatus PaymentStatus, status Status, intentID *string, amount *float64) (*Appointment, bool, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET payment_status    = $2,
		    status            = $3,
		    payment_intent_id = COALESCE($4, payment_intent_id),
		    payment_amount    = COALESCE($5, payment_amount),
		    updated_at        = now()
		WHERE id = $1
		  AND payment_status <> $2
		RETURNING `+appointmentColumns+`
	`, id, paymentStatus, status, intentID, amount)

	updated, err := scanAppointment(row)
	if err == nil {
		return updated, true, nil
	}
	if !errors.Is(err, ErrAppointmentNotFound) {
		return nil, false, err
	}

	// No transition happened: either the outcome was already applied
	// (repeated webhook) or the appointment does not exist.
	existing, getErr := r.GetAppointmentByID(ctx, id)
	if getErr != nil {
		return nil, false, getErr
	}
	return existing, false, nil
}

// Availability slots

func (r *PgRepository) InsertSlot(ctx context.Context, s *AvailabilitySlot) (*AvailabilitySlot, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_slots (id, doctor_id, slot_date, start_time, end_time, is_booked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, false, now(), now())
		RETURNING id, doctor_id, slot_date, start_time, end_time, is_booked, created_at, updated_at
	`, id, s.DoctorID, s.Date, s.StartTime, s.EndTime)

	return scanSlot(row)
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*AvailabilitySlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, slot_date, start_time, end_time, is_booked, created_at, updated_at
		FROM availability_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListSlotsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AvailabilitySlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, slot_date, start_time, end_time, is_booked, created_at, updated_at
		FROM availability_slots
		WHERE doctor_id = $1
		ORDER BY slot_date ASC, start_time ASC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilitySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM availability_slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) SetSlotBooked(ctx context.Context, doctorID uuid.UUID, date time.Time, startTime string, booked bool) (*AvailabilitySlot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE availability_slots
		SET is_booked  = $4,
		    updated_at = now()
		WHERE doctor_id = $1
		  AND slot_date = $2
		  AND start_time = $3
		RETURNING id, doctor_id, slot_date, start_time, end_time, is_booked, created_at, updated_at
	`, doctorID, date, startTime, booked)
	return scanSlot(row)
}
