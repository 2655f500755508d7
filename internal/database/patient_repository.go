package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
)

// PatientRepository persists patients in Postgres.
type PatientRepository struct {
	pool *pgxpool.Pool
}

// NewPatientRepository creates a patient repository.
func NewPatientRepository(pool *pgxpool.Pool) *PatientRepository {
	return &PatientRepository{pool: pool}
}

const patientColumns = `id, full_name, email, phone, created_at, updated_at`

func scanPatient(row pgx.Row) (domain.Patient, error) {
	var p domain.Patient
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a new patient. Duplicate emails map to
// domain.ErrDuplicateEmail.
func (r *PatientRepository) Create(ctx context.Context, p *domain.Patient) error {
	query := `
		INSERT INTO patients (id, full_name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`
	_, err := r.pool.Exec(ctx, query, p.ID, p.FullName, p.Email, p.Phone, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

// GetByID fetches a patient by id.
func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	p, err := scanPatient(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Patient{}, domain.ErrPatientNotFound
	}
	if err != nil {
		return domain.Patient{}, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// GetByEmail fetches a patient by email.
func (r *PatientRepository) GetByEmail(ctx context.Context, email string) (domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE email = $1`
	p, err := scanPatient(r.pool.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Patient{}, domain.ErrPatientNotFound
	}
	if err != nil {
		return domain.Patient{}, fmt.Errorf("failed to get patient by email: %w", err)
	}
	return p, nil
}

// List returns all patients, newest first.
func (r *PatientRepository) List(ctx context.Context, limit int) ([]domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	patients := make([]domain.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

// Update changes a patient's profile fields.
func (r *PatientRepository) Update(ctx context.Context, id uuid.UUID, fullName, phone string, now time.Time) (domain.Patient, error) {
	query := `
		UPDATE patients SET full_name = $2, phone = $3, updated_at = $4
		WHERE id = $1
		RETURNING ` + patientColumns
	p, err := scanPatient(r.pool.QueryRow(ctx, query, id, fullName, phone, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Patient{}, domain.ErrPatientNotFound
	}
	if err != nil {
		return domain.Patient{}, fmt.Errorf("failed to update patient: %w", err)
	}
	return p, nil
}

// CountCreatedBetween counts patients registered in [from, to).
func (r *PatientRepository) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM patients WHERE created_at >= $1 AND created_at < $2`
	var n int64
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return n, nil
}
