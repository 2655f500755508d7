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

// PaymentRepository persists payments in Postgres.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a payment repository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, appointment_id, patient_id, amount_cents, currency,
	status, reference, created_at, updated_at`

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.AppointmentID, &p.PatientID, &p.AmountCents, &p.Currency,
		&p.Status, &p.Reference, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a new payment.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, appointment_id, patient_id, amount_cents, currency,
			status, reference, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`
	_, err := r.pool.Exec(ctx, query, p.ID, p.AppointmentID, p.PatientID, p.AmountCents,
		p.Currency, p.Status, p.Reference, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByID fetches a payment by id.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// List returns the newest payments across all appointments.
func (r *PaymentRepository) List(ctx context.Context, limit int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ListByAppointment returns the payments for an appointment.
func (r *PaymentRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE appointment_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// UpdateStatus transitions a payment's status.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, now time.Time) (domain.Payment, error) {
	query := `
		UPDATE payments SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + paymentColumns
	p, err := scanPayment(r.pool.QueryRow(ctx, query, id, status, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	if err != nil {
		return domain.Payment{}, fmt.Errorf("failed to update payment status: %w", err)
	}
	return p, nil
}
