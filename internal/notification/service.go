package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medisched/medisched/internal/advisory"
	"github.com/medisched/medisched/internal/appointment"
	"github.com/medisched/medisched/internal/realtime"
)

// Dispatcher persists notification records and pushes the matching realtime
// events. Callers treat dispatch as advisory: a failure here never fails the
// booking or payment that triggered it.
type Dispatcher struct {
	repo   Repository
	events realtime.Publisher
	log    zerolog.Logger
}

func NewDispatcher(repo Repository, events realtime.Publisher, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, events: events, log: log}
}

// NotifyDoctor records a notification for the doctor and publishes it to the
// doctor's channel.
func (d *Dispatcher) NotifyDoctor(ctx context.Context, doctorID uuid.UUID, appt *appointment.Appointment, kind string) error {
	title, content := renderAppointment(appt, kind)

	apptID := appt.ID
	apptTime := appt.Datetime.Format("15:04")
	apptDate := appt.Datetime

	_, err := d.repo.Insert(ctx, &Notification{
		UserID:          doctorID,
		Type:            kind,
		Title:           title,
		Content:         content,
		AppointmentID:   &apptID,
		PatientName:     &appt.PatientInfo.Name,
		PatientEmail:    &appt.PatientInfo.Email,
		AppointmentDate: &apptDate,
		AppointmentTime: &apptTime,
	})
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	advisory.Log(d.log, "publish doctor notification",
		d.events.Publish(ctx, realtime.DoctorChannel(doctorID), realtime.Event{
			Type: "new-appointment-notification",
			Data: map[string]any{
				"kind":        kind,
				"message":     content,
				"appointment": appt.Snapshot(),
			},
		}))

	return nil
}

// NotifyAdmins fans a notification out to every admin account.
func (d *Dispatcher) NotifyAdmins(ctx context.Context, kind, title, content string) error {
	adminIDs, err := d.repo.ListAdminIDs(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}

	for _, adminID := range adminIDs {
		_, err := d.repo.Insert(ctx, &Notification{
			UserID:  adminID,
			Type:    kind,
			Title:   title,
			Content: content,
		})
		if err != nil {
			return fmt.Errorf("insert admin notification: %w", err)
		}

		advisory.Log(d.log, "publish admin notification",
			d.events.Publish(ctx, realtime.UserChannel(adminID), realtime.Event{
				Type: "admin-notification",
				Data: map[string]any{"kind": kind, "message": content},
			}))
	}

	return nil
}

func (d *Dispatcher) ListForUser(ctx context.Context, userID uuid.UUID, opts ListOptions) (*ListResult, error) {
	return d.repo.ListByUser(ctx, userID, opts)
}

func (d *Dispatcher) MarkRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error) {
	return d.repo.MarkRead(ctx, id, userID)
}

func (d *Dispatcher) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return d.repo.MarkAllRead(ctx, userID)
}

func renderAppointment(appt *appointment.Appointment, kind string) (title, content string) {
	when := appt.Datetime
	switch kind {
	case appointment.NotifyKindBooked:
		return "New Appointment Booked",
			fmt.Sprintf("New appointment booked by %s for %s at %s",
				appt.PatientInfo.Name, when.Format("Jan 2, 2006"), when.Format("15:04"))
	case appointment.NotifyKindCancelled:
		return "Appointment Cancelled",
			fmt.Sprintf("Appointment with %s has been cancelled", appt.PatientInfo.Name)
	case appointment.NotifyKindPaid:
		return "Payment Completed",
			fmt.Sprintf("Payment completed for appointment by %s", appt.PatientInfo.Name)
	default:
		return "Appointment Update",
			fmt.Sprintf("Appointment update for %s", appt.PatientInfo.Name)
	}
}
