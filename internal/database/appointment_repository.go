package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
)

// AppointmentRepository persists appointments in Postgres.
type AppointmentRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentRepository creates an appointment repository.
func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

const appointmentColumns = `id, patient_id, patient_name, doctor_name, scheduled_at,
	consultation_type, status, notes, meeting_reference, created_at, updated_at, cancelled_at`

func scanAppointment(row pgx.Row) (domain.Appointment, error) {
	var a domain.Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.PatientName, &a.DoctorName, &a.ScheduledAt,
		&a.ConsultationType, &a.Status, &a.Notes, &a.MeetingReference,
		&a.CreatedAt, &a.UpdatedAt, &a.CancelledAt)
	return a, err
}

// Create inserts a new appointment.
func (r *AppointmentRepository) Create(ctx context.Context, a *domain.Appointment) error {
	query := `
		INSERT INTO appointments (id, patient_id, patient_name, doctor_name, scheduled_at,
			consultation_type, status, notes, meeting_reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	_, err := r.pool.Exec(ctx, query, a.ID, a.PatientID, a.PatientName, a.DoctorName,
		a.ScheduledAt, a.ConsultationType, a.Status, a.Notes, a.MeetingReference, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// GetByID fetches an appointment by id.
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	a, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Appointment{}, domain.ErrAppointmentNotFound
	}
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

// List returns appointments ordered by scheduled time, newest first.
func (r *AppointmentRepository) List(ctx context.Context, limit int) ([]domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments ORDER BY scheduled_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	appointments := make([]domain.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

// ListByPatient returns a patient's appointments, newest first.
func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE patient_id = $1 ORDER BY scheduled_at DESC`
	rows, err := r.pool.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	defer rows.Close()

	appointments := make([]domain.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

// Update rewrites an appointment's mutable fields.
func (r *AppointmentRepository) Update(ctx context.Context, a domain.Appointment, now time.Time) (domain.Appointment, error) {
	query := `
		UPDATE appointments
		SET doctor_name = $2,
		    scheduled_at = $3,
		    consultation_type = $4,
		    notes = $5,
		    meeting_reference = $6,
		    updated_at = $7
		WHERE id = $1
		RETURNING ` + appointmentColumns
	updated, err := scanAppointment(r.pool.QueryRow(ctx, query, a.ID, a.DoctorName,
		a.ScheduledAt, a.ConsultationType, a.Notes, a.MeetingReference, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Appointment{}, domain.ErrAppointmentNotFound
	}
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("failed to update appointment: %w", err)
	}
	return updated, nil
}

// UpdateStatus transitions an appointment's status.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, now time.Time) (domain.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2,
		    updated_at = $3,
		    cancelled_at = CASE WHEN $2 = 'cancelled' THEN $3 ELSE cancelled_at END
		WHERE id = $1
		RETURNING ` + appointmentColumns
	a, err := scanAppointment(r.pool.QueryRow(ctx, query, id, status, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Appointment{}, domain.ErrAppointmentNotFound
	}
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("failed to update appointment status: %w", err)
	}
	return a, nil
}

// SlotTaken reports whether another non-cancelled appointment already
// occupies the doctor's slot.
func (r *AppointmentRepository) SlotTaken(ctx context.Context, doctorName string, scheduledAt time.Time) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM appointments
		WHERE doctor_name = $1 AND scheduled_at = $2 AND status <> 'cancelled'
	)`
	var taken bool
	if err := r.pool.QueryRow(ctx, query, doctorName, scheduledAt).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return taken, nil
}

// BookedSlots returns the occupied doctor slots scheduled in [from, to).
func (r *AppointmentRepository) BookedSlots(ctx context.Context, from, to time.Time) ([]domain.BookedSlot, error) {
	query := `SELECT doctor_name, scheduled_at FROM appointments
		WHERE scheduled_at >= $1 AND scheduled_at < $2 AND status <> 'cancelled'
		ORDER BY scheduled_at`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list booked slots: %w", err)
	}
	defer rows.Close()

	slots := make([]domain.BookedSlot, 0)
	for rows.Next() {
		var s domain.BookedSlot
		if err := rows.Scan(&s.DoctorName, &s.ScheduledAt); err != nil {
			return nil, fmt.Errorf("failed to scan booked slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// CountCreatedBetween counts appointments created in [from, to).
func (r *AppointmentRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM appointments WHERE created_at >= $1 AND created_at < $2`
	var n int64
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return n, nil
}

// CountVideoCreatedBetween counts video consultations created in [from, to).
func (r *AppointmentRepository) CountVideoCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM appointments
		WHERE consultation_type = 'video' AND created_at >= $1 AND created_at < $2`
	var n int64
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count video consultations: %w", err)
	}
	return n, nil
}

// CountPendingCreatedBetween counts pending appointments created in [from, to).
func (r *AppointmentRepository) CountPendingCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM appointments
		WHERE status = 'pending' AND created_at >= $1 AND created_at < $2`
	var n int64
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending appointments: %w", err)
	}
	return n, nil
}
