// Package stats computes the dashboard statistics snapshot.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
)

// AppointmentCounter reads appointment counts over creation windows.
type AppointmentCounter interface {
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountVideoCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountPendingCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// PatientCounter reads patient registration counts over creation windows.
type PatientCounter interface {
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
}

// Aggregator computes month-over-month dashboard statistics. The eight
// underlying counts are independent point-in-time reads; no
// transactional consistency across them is required.
type Aggregator struct {
	appointments AppointmentCounter
	patients     PatientCounter
	clock        clockwork.Clock
}

// NewAggregator creates a stats aggregator.
func NewAggregator(appointments AppointmentCounter, patients PatientCounter, clock clockwork.Clock) *Aggregator {
	return &Aggregator{
		appointments: appointments,
		patients:     patients,
		clock:        clock,
	}
}

// Snapshot computes the statistics for the current calendar month and
// the trend against the immediately preceding calendar month.
func (a *Aggregator) Snapshot(ctx context.Context) (domain.Stats, error) {
	now := a.clock.Now().UTC()
	currentStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	nextStart := currentStart.AddDate(0, 1, 0)
	priorStart := currentStart.AddDate(0, -1, 0)

	type window struct{ from, to time.Time }
	current := window{currentStart, nextStart}
	prior := window{priorStart, currentStart}

	curAppointments, err := a.appointments.CountCreatedBetween(ctx, current.from, current.to)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count appointments: %w", err)
	}
	priorAppointments, err := a.appointments.CountCreatedBetween(ctx, prior.from, prior.to)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count prior appointments: %w", err)
	}

	curPatients, err := a.patients.CountCreatedBetween(ctx, current.from, current.to)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count patients: %w", err)
	}
	priorPatients, err := a.patients.CountCreatedBetween(ctx, prior.from, prior.to)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count prior patients: %w", err)
	}

	curVideo, err := a.appointments.CountVideoCreatedBetween(ctx, current.from, current.to)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count video consultations: %w", err)
	}
	priorVideo, err := a.appointments.CountVideoCreatedBetween(ctx, prior.from, prior.to)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count prior video consultations: %w", err)
	}

	curPending, err := a.appointments.CountPendingCreatedBetween(ctx, current.from, current.to)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count pending appointments: %w", err)
	}
	priorPending, err := a.appointments.CountPendingCreatedBetween(ctx, prior.from, prior.to)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to count prior pending appointments: %w", err)
	}

	return domain.Stats{
		TotalAppointments:   curAppointments,
		TotalPatients:       curPatients,
		VideoConsultations:  curVideo,
		PendingAppointments: curPending,
		Trends: domain.Trends{
			Appointments:        trend(curAppointments, priorAppointments),
			Patients:            trend(curPatients, priorPatients),
			VideoConsultations:  trend(curVideo, priorVideo),
			PendingAppointments: trend(curPending, priorPending),
		},
	}, nil
}

// trend computes the signed month-over-month percentage change. A prior
// count of zero yields 100 when the current count is positive, else 0.
func trend(current, prior int64) float64 {
	if prior == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-prior) / float64(prior) * 100
}
