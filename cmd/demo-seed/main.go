// Command demo-seed populates the database with a small set of demo
// patients, appointments and payments so a fresh instance has data to
// show on the dashboard.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/database"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/provider"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.New(ctx, databaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	if err := seed(ctx, pool); err != nil {
		slog.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	slog.Info("demo data seeded")
}

func seed(ctx context.Context, pool *pgxpool.Pool) error {
	patients := database.NewPatientRepository(pool)
	appointments := database.NewAppointmentRepository(pool)
	payments := database.NewPaymentRepository(pool)
	issuer := provider.NewStub()
	now := time.Now().UTC()

	demoPatients := []domain.Patient{
		{FullName: "Ada Lovelace", Email: "ada@demo.healthconnect.test", Phone: "+1 555 0101"},
		{FullName: "Grace Hopper", Email: "grace@demo.healthconnect.test", Phone: "+1 555 0102"},
		{FullName: "Alan Turing", Email: "alan@demo.healthconnect.test", Phone: "+1 555 0103"},
	}

	doctors := []string{"Dr. Crusher", "Dr. McCoy", "Dr. Bashir"}
	consultations := []string{domain.ConsultationVideo, domain.ConsultationInPerson, domain.ConsultationVideo}
	statuses := []string{domain.AppointmentStatusPending, domain.AppointmentStatusConfirmed, domain.AppointmentStatusCompleted}

	for i := range demoPatients {
		patient := demoPatients[i]
		patient.ID = uuid.New()
		patient.CreatedAt = now
		patient.UpdatedAt = now

		err := patients.Create(ctx, &patient)
		if errors.Is(err, domain.ErrDuplicateEmail) {
			existing, lookupErr := patients.GetByEmail(ctx, patient.Email)
			if lookupErr != nil {
				return lookupErr
			}
			patient = existing
		} else if err != nil {
			return err
		}

		appointment := domain.Appointment{
			ID:               uuid.New(),
			PatientID:        patient.ID,
			PatientName:      patient.FullName,
			DoctorName:       doctors[i],
			ScheduledAt:      now.Add(time.Duration(i+1) * 24 * time.Hour),
			ConsultationType: consultations[i],
			Status:           statuses[i],
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if appointment.ConsultationType == domain.ConsultationVideo {
			appointment.MeetingReference = issuer.MeetingReference()
		}
		if err := appointments.Create(ctx, &appointment); err != nil {
			return err
		}

		payment := domain.Payment{
			ID:            uuid.New(),
			AppointmentID: appointment.ID,
			PatientID:     patient.ID,
			AmountCents:   provider.DemoAmountCents,
			Currency:      "USD",
			Status:        domain.PaymentStatusCompleted,
			Reference:     issuer.PaymentReference(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := payments.Create(ctx, &payment); err != nil {
			return err
		}

		slog.Info("seeded patient",
			"patient", patient.FullName,
			"appointment", appointment.ID,
			"meeting_reference", appointment.MeetingReference,
		)
	}

	return nil
}
