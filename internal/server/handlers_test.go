package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/app"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/auth"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/provider"
)

type stubAppointments struct {
	byID  map[uuid.UUID]domain.Appointment
	slots []domain.BookedSlot
}

func newStubAppointments() *stubAppointments {
	return &stubAppointments{byID: make(map[uuid.UUID]domain.Appointment)}
}

func (s *stubAppointments) Create(_ context.Context, a *domain.Appointment) error {
	s.byID[a.ID] = *a
	return nil
}

func (s *stubAppointments) GetByID(_ context.Context, id uuid.UUID) (domain.Appointment, error) {
	a, ok := s.byID[id]
	if !ok {
		return domain.Appointment{}, domain.ErrAppointmentNotFound
	}
	return a, nil
}

func (s *stubAppointments) List(_ context.Context, _ int) ([]domain.Appointment, error) {
	out := make([]domain.Appointment, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, a)
	}
	return out, nil
}

func (s *stubAppointments) ListByPatient(_ context.Context, _ uuid.UUID) ([]domain.Appointment, error) {
	return nil, nil
}

func (s *stubAppointments) Update(_ context.Context, a domain.Appointment, now time.Time) (domain.Appointment, error) {
	if _, ok := s.byID[a.ID]; !ok {
		return domain.Appointment{}, domain.ErrAppointmentNotFound
	}
	a.UpdatedAt = now
	s.byID[a.ID] = a
	return a, nil
}

func (s *stubAppointments) UpdateStatus(_ context.Context, id uuid.UUID, status string, now time.Time) (domain.Appointment, error) {
	a, ok := s.byID[id]
	if !ok {
		return domain.Appointment{}, domain.ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = now
	s.byID[id] = a
	return a, nil
}

func (s *stubAppointments) SlotTaken(_ context.Context, doctorName string, scheduledAt time.Time) (bool, error) {
	for _, a := range s.byID {
		if a.DoctorName == doctorName && a.ScheduledAt.Equal(scheduledAt) && a.Status != domain.AppointmentStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubAppointments) BookedSlots(_ context.Context, _, _ time.Time) ([]domain.BookedSlot, error) {
	return s.slots, nil
}

type stubPayments struct {
	byID map[uuid.UUID]domain.Payment
}

func newStubPayments() *stubPayments {
	return &stubPayments{byID: make(map[uuid.UUID]domain.Payment)}
}

func (s *stubPayments) Create(_ context.Context, p *domain.Payment) error {
	s.byID[p.ID] = *p
	return nil
}

func (s *stubPayments) GetByID(_ context.Context, id uuid.UUID) (domain.Payment, error) {
	p, ok := s.byID[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (s *stubPayments) List(_ context.Context, _ int) ([]domain.Payment, error) {
	out := make([]domain.Payment, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubPayments) ListByAppointment(_ context.Context, _ uuid.UUID) ([]domain.Payment, error) {
	return nil, nil
}

func (s *stubPayments) UpdateStatus(_ context.Context, id uuid.UUID, status string, now time.Time) (domain.Payment, error) {
	p, ok := s.byID[id]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	p.Status = status
	p.UpdatedAt = now
	s.byID[id] = p
	return p, nil
}

type capturingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *capturingPublisher) Publish(eventType string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
}

func (p *capturingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}

type noopNotifier struct{}

func (noopNotifier) AppointmentChanged(context.Context, string, time.Time) {}

type apiFixture struct {
	srv          *Server
	authSvc      *auth.Service
	appointments *stubAppointments
	payments     *stubPayments
	publisher    *capturingPublisher
	adminToken   string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	srv, authSvc := newTestServer(t)

	appointments := newStubAppointments()
	payments := newStubPayments()
	publisher := &capturingPublisher{}
	srv.svc = app.NewService(appointments, nil, payments, nil,
		publisher, noopNotifier{}, provider.NewStub(), false, clockwork.NewRealClock())

	token, err := authSvc.Issue("admin@clinic.test", auth.RoleAdmin)
	require.NoError(t, err)

	return &apiFixture{
		srv:          srv,
		authSvc:      authSvc,
		appointments: appointments,
		payments:     payments,
		publisher:    publisher,
		adminToken:   token,
	}
}

func TestBookedSlotsEndpoint(t *testing.T) {
	fx := newAPIFixture(t)
	fx.appointments.slots = []domain.BookedSlot{{
		DoctorName:  "Dr. Crusher",
		ScheduledAt: time.Date(2025, time.June, 20, 9, 0, 0, 0, time.UTC),
	}}

	rec := doRequest(t, fx.srv, http.MethodGet, "/api/appointments/slots?date=2025-06-20", fx.adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		BookedSlots []domain.BookedSlot `json:"booked_slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.BookedSlots, 1)
	assert.Equal(t, "Dr. Crusher", resp.BookedSlots[0].DoctorName)
}

func TestBookedSlotsEndpointEmptyDay(t *testing.T) {
	fx := newAPIFixture(t)

	rec := doRequest(t, fx.srv, http.MethodGet, "/api/appointments/slots?date=2025-06-20", fx.adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"booked_slots":[]`)
}

func TestBookedSlotsEndpointRequiresDate(t *testing.T) {
	fx := newAPIFixture(t)

	rec := doRequest(t, fx.srv, http.MethodGet, "/api/appointments/slots", fx.adminToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, fx.srv, http.MethodGet, "/api/appointments/slots?date=tomorrow", fx.adminToken, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAppointmentEndpoint(t *testing.T) {
	fx := newAPIFixture(t)

	id := uuid.New()
	fx.appointments.byID[id] = domain.Appointment{
		ID:               id,
		DoctorName:       "Dr. Crusher",
		ScheduledAt:      time.Date(2025, time.June, 20, 9, 0, 0, 0, time.UTC),
		ConsultationType: domain.ConsultationInPerson,
		Status:           domain.AppointmentStatusConfirmed,
	}

	rec := doRequest(t, fx.srv, http.MethodPatch, "/api/appointments/"+id.String(), fx.adminToken,
		`{"notes":"bring the referral letter"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated domain.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "bring the referral letter", updated.Notes)
	assert.Equal(t, "Dr. Crusher", updated.DoctorName)

	assert.Contains(t, fx.publisher.published(), domain.EventAppointmentUpdate)
}

func TestUpdateAppointmentEndpointUnknownID(t *testing.T) {
	fx := newAPIFixture(t)

	rec := doRequest(t, fx.srv, http.MethodPatch, "/api/appointments/"+uuid.NewString(), fx.adminToken,
		`{"notes":"anything"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPaymentEndpoint(t *testing.T) {
	fx := newAPIFixture(t)

	payment := domain.Payment{
		ID:          uuid.New(),
		AmountCents: 7500,
		Currency:    "USD",
		Status:      domain.PaymentStatusCompleted,
	}
	fx.payments.byID[payment.ID] = payment

	rec := doRequest(t, fx.srv, http.MethodGet, "/api/payments/"+payment.ID.String(), fx.adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, payment.ID, got.ID)
	assert.Equal(t, int64(7500), got.AmountCents)

	rec = doRequest(t, fx.srv, http.MethodGet, "/api/payments/"+uuid.NewString(), fx.adminToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPaymentsEndpointIsAdminOnly(t *testing.T) {
	fx := newAPIFixture(t)

	payment := domain.Payment{ID: uuid.New(), AmountCents: 500}
	fx.payments.byID[payment.ID] = payment

	patientToken, err := fx.authSvc.Issue("patient-7", auth.RolePatient)
	require.NoError(t, err)

	rec := doRequest(t, fx.srv, http.MethodGet, "/api/payments", patientToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, fx.srv, http.MethodGet, "/api/payments", fx.adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var payments []domain.Payment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payments))
	require.Len(t, payments, 1)
	assert.Equal(t, payment.ID, payments[0].ID)
}
