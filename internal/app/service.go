// Package app implements the write-path operations of the clinic
// platform. Every mutation broadcasts its event through the hub and
// announces the change on the changefeed.
package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
	apperrors "github.com/RajeshKalidandi/healthconnect-platform/internal/errors"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/provider"
)

// AppointmentStore persists appointments.
type AppointmentStore interface {
	Create(ctx context.Context, a *domain.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	List(ctx context.Context, limit int) ([]domain.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error)
	Update(ctx context.Context, a domain.Appointment, now time.Time) (domain.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, now time.Time) (domain.Appointment, error)
	SlotTaken(ctx context.Context, doctorName string, scheduledAt time.Time) (bool, error)
	BookedSlots(ctx context.Context, from, to time.Time) ([]domain.BookedSlot, error)
}

// PatientStore persists patients.
type PatientStore interface {
	Create(ctx context.Context, p *domain.Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Patient, error)
	List(ctx context.Context, limit int) ([]domain.Patient, error)
	Update(ctx context.Context, id uuid.UUID, fullName, phone string, now time.Time) (domain.Patient, error)
}

// PaymentStore persists payments.
type PaymentStore interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Payment, error)
	List(ctx context.Context, limit int) ([]domain.Payment, error)
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]domain.Payment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, now time.Time) (domain.Payment, error)
}

// MessageStore persists conversations and messages.
type MessageStore interface {
	CreateConversation(ctx context.Context, c *domain.Conversation) error
	GetConversation(ctx context.Context, id uuid.UUID) (domain.Conversation, error)
	ListConversationsByPatient(ctx context.Context, patientID uuid.UUID) ([]domain.Conversation, error)
	CreateMessage(ctx context.Context, m *domain.Message, now time.Time) error
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
}

// Publisher fans an event out to all live dashboard connections.
type Publisher interface {
	Publish(eventType string, event any)
}

// ChangeNotifier announces store changes on the changefeed.
type ChangeNotifier interface {
	AppointmentChanged(ctx context.Context, operation string, at time.Time)
}

// Service is the write-path application service.
type Service struct {
	appointments AppointmentStore
	patients     PatientStore
	payments     PaymentStore
	messages     MessageStore
	publisher    Publisher
	notifier     ChangeNotifier
	issuer       provider.Issuer
	demoMode     bool
	clock        clockwork.Clock
}

// NewService wires the application service.
func NewService(
	appointments AppointmentStore,
	patients PatientStore,
	payments PaymentStore,
	messages MessageStore,
	publisher Publisher,
	notifier ChangeNotifier,
	issuer provider.Issuer,
	demoMode bool,
	clock clockwork.Clock,
) *Service {
	return &Service{
		appointments: appointments,
		patients:     patients,
		payments:     payments,
		messages:     messages,
		publisher:    publisher,
		notifier:     notifier,
		issuer:       issuer,
		demoMode:     demoMode,
		clock:        clock,
	}
}

// BookAppointmentInput is a patient booking request.
type BookAppointmentInput struct {
	PatientID        uuid.UUID
	DoctorName       string
	ScheduledAt      time.Time
	ConsultationType string
	Notes            string
}

func (in *BookAppointmentInput) validate() error {
	if in.PatientID == uuid.Nil {
		return apperrors.New(apperrors.KindInvalidInput, "patient_id is required")
	}
	if strings.TrimSpace(in.DoctorName) == "" {
		return apperrors.New(apperrors.KindInvalidInput, "doctor_name is required")
	}
	if in.ScheduledAt.IsZero() {
		return apperrors.New(apperrors.KindInvalidInput, "scheduled_at is required")
	}
	switch in.ConsultationType {
	case domain.ConsultationInPerson, domain.ConsultationVideo:
	default:
		return apperrors.New(apperrors.KindInvalidInput, "consultation_type must be in-person or video")
	}
	return nil
}

// BookAppointment books a slot for a patient. In demo mode a video
// consultation gets a placeholder meeting reference and a flat demo
// payment is recorded alongside the booking.
func (s *Service) BookAppointment(ctx context.Context, in BookAppointmentInput) (domain.Appointment, error) {
	if err := in.validate(); err != nil {
		return domain.Appointment{}, err
	}

	patient, err := s.patients.GetByID(ctx, in.PatientID)
	if err != nil {
		return domain.Appointment{}, err
	}

	taken, err := s.appointments.SlotTaken(ctx, in.DoctorName, in.ScheduledAt)
	if err != nil {
		return domain.Appointment{}, err
	}
	if taken {
		return domain.Appointment{}, domain.ErrSlotTaken
	}

	now := s.clock.Now().UTC()
	appointment := domain.Appointment{
		ID:               uuid.New(),
		PatientID:        patient.ID,
		PatientName:      patient.FullName,
		DoctorName:       in.DoctorName,
		ScheduledAt:      in.ScheduledAt,
		ConsultationType: in.ConsultationType,
		Status:           domain.AppointmentStatusPending,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if s.demoMode && in.ConsultationType == domain.ConsultationVideo {
		appointment.MeetingReference = s.issuer.MeetingReference()
	}

	if err := s.appointments.Create(ctx, &appointment); err != nil {
		return domain.Appointment{}, err
	}

	s.publisher.Publish(domain.EventNewAppointment, domain.NewAppointmentEvent{
		Type:      domain.EventNewAppointment,
		Data:      appointment,
		Timestamp: now,
	})
	s.notifier.AppointmentChanged(ctx, domain.ChangeInsert, now)

	if s.demoMode {
		if _, err := s.recordDemoPayment(ctx, appointment, now); err != nil {
			return appointment, err
		}
	}

	return appointment, nil
}

// recordDemoPayment attaches the flat demo charge to a booking.
func (s *Service) recordDemoPayment(ctx context.Context, appointment domain.Appointment, now time.Time) (domain.Payment, error) {
	payment := domain.Payment{
		ID:            uuid.New(),
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		AmountCents:   provider.DemoAmountCents,
		Currency:      "USD",
		Status:        domain.PaymentStatusCompleted,
		Reference:     s.issuer.PaymentReference(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.payments.Create(ctx, &payment); err != nil {
		return domain.Payment{}, err
	}

	s.publisher.Publish(domain.EventNewPayment, domain.PaymentEvent{
		Type:      domain.EventNewPayment,
		Payment:   payment,
		Timestamp: now,
	})
	return payment, nil
}

// CreateAppointment creates an appointment on behalf of the clinic
// (admin path).
func (s *Service) CreateAppointment(ctx context.Context, in BookAppointmentInput) (domain.Appointment, error) {
	if err := in.validate(); err != nil {
		return domain.Appointment{}, err
	}

	patient, err := s.patients.GetByID(ctx, in.PatientID)
	if err != nil {
		return domain.Appointment{}, err
	}

	now := s.clock.Now().UTC()
	appointment := domain.Appointment{
		ID:               uuid.New(),
		PatientID:        patient.ID,
		PatientName:      patient.FullName,
		DoctorName:       in.DoctorName,
		ScheduledAt:      in.ScheduledAt,
		ConsultationType: in.ConsultationType,
		Status:           domain.AppointmentStatusConfirmed,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.appointments.Create(ctx, &appointment); err != nil {
		return domain.Appointment{}, err
	}

	s.publisher.Publish(domain.EventAppointmentCreated, domain.AppointmentEvent{
		Type:        domain.EventAppointmentCreated,
		Appointment: appointment,
		Timestamp:   now,
	})
	s.notifier.AppointmentChanged(ctx, domain.ChangeInsert, now)

	return appointment, nil
}

// UpdateAppointmentInput is a partial appointment edit; nil fields are
// left unchanged.
type UpdateAppointmentInput struct {
	DoctorName       *string
	ScheduledAt      *time.Time
	ConsultationType *string
	Notes            *string
}

// UpdateAppointment applies a partial edit such as a reschedule or a
// note change. Moving the appointment to an occupied slot is rejected.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, in UpdateAppointmentInput) (domain.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	priorDoctor, priorTime := appointment.DoctorName, appointment.ScheduledAt

	if in.DoctorName != nil {
		if strings.TrimSpace(*in.DoctorName) == "" {
			return domain.Appointment{}, apperrors.New(apperrors.KindInvalidInput, "doctor_name must not be empty")
		}
		appointment.DoctorName = *in.DoctorName
	}
	if in.ScheduledAt != nil {
		if in.ScheduledAt.IsZero() {
			return domain.Appointment{}, apperrors.New(apperrors.KindInvalidInput, "scheduled_at must not be zero")
		}
		appointment.ScheduledAt = *in.ScheduledAt
	}
	if in.ConsultationType != nil {
		switch *in.ConsultationType {
		case domain.ConsultationInPerson, domain.ConsultationVideo:
		default:
			return domain.Appointment{}, apperrors.New(apperrors.KindInvalidInput, "consultation_type must be in-person or video")
		}
		appointment.ConsultationType = *in.ConsultationType
	}
	if in.Notes != nil {
		appointment.Notes = *in.Notes
	}

	// Echoing back the current slot must not conflict with itself.
	slotMoved := appointment.DoctorName != priorDoctor || !appointment.ScheduledAt.Equal(priorTime)
	if slotMoved {
		taken, err := s.appointments.SlotTaken(ctx, appointment.DoctorName, appointment.ScheduledAt)
		if err != nil {
			return domain.Appointment{}, err
		}
		if taken {
			return domain.Appointment{}, domain.ErrSlotTaken
		}
	}

	if s.demoMode && appointment.ConsultationType == domain.ConsultationVideo && appointment.MeetingReference == "" {
		appointment.MeetingReference = s.issuer.MeetingReference()
	}

	now := s.clock.Now().UTC()
	updated, err := s.appointments.Update(ctx, appointment, now)
	if err != nil {
		return domain.Appointment{}, err
	}

	s.publisher.Publish(domain.EventAppointmentUpdate, domain.AppointmentEvent{
		Type:        domain.EventAppointmentUpdate,
		Appointment: updated,
		Timestamp:   now,
	})
	s.notifier.AppointmentChanged(ctx, domain.ChangeUpdate, now)

	return updated, nil
}

// UpdateAppointmentStatus transitions an appointment.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status string) (domain.Appointment, error) {
	switch status {
	case domain.AppointmentStatusPending, domain.AppointmentStatusConfirmed,
		domain.AppointmentStatusCompleted, domain.AppointmentStatusCancelled:
	default:
		return domain.Appointment{}, apperrors.Newf(apperrors.KindInvalidInput, "unknown status %q", status)
	}

	now := s.clock.Now().UTC()
	appointment, err := s.appointments.UpdateStatus(ctx, id, status, now)
	if err != nil {
		return domain.Appointment{}, err
	}

	s.publisher.Publish(domain.EventAppointmentUpdate, domain.AppointmentEvent{
		Type:        domain.EventAppointmentUpdate,
		Appointment: appointment,
		Timestamp:   now,
	})
	s.notifier.AppointmentChanged(ctx, domain.ChangeUpdate, now)

	return appointment, nil
}

// GetAppointment fetches one appointment.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// ListAppointments returns the newest appointments.
func (s *Service) ListAppointments(ctx context.Context, limit int) ([]domain.Appointment, error) {
	return s.appointments.List(ctx, limit)
}

// BookedSlots returns the occupied doctor slots for one calendar day,
// so a booking page can grey out times that are already taken.
func (s *Service) BookedSlots(ctx context.Context, day time.Time) ([]domain.BookedSlot, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return s.appointments.BookedSlots(ctx, from, from.AddDate(0, 0, 1))
}

// ListPatientAppointments returns a patient's appointments.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID uuid.UUID) ([]domain.Appointment, error) {
	return s.appointments.ListByPatient(ctx, patientID)
}

// RegisterPatientInput is a patient registration request.
type RegisterPatientInput struct {
	FullName string
	Email    string
	Phone    string
}

// RegisterPatient creates a patient record.
func (s *Service) RegisterPatient(ctx context.Context, in RegisterPatientInput) (domain.Patient, error) {
	if strings.TrimSpace(in.FullName) == "" {
		return domain.Patient{}, apperrors.New(apperrors.KindInvalidInput, "full_name is required")
	}
	if !strings.Contains(in.Email, "@") {
		return domain.Patient{}, apperrors.New(apperrors.KindInvalidInput, "a valid email is required")
	}

	now := s.clock.Now().UTC()
	patient := domain.Patient{
		ID:        uuid.New(),
		FullName:  in.FullName,
		Email:     strings.ToLower(in.Email),
		Phone:     in.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.patients.Create(ctx, &patient); err != nil {
		return domain.Patient{}, err
	}
	return patient, nil
}

// UpdatePatient changes a patient's profile and broadcasts the update.
func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, fullName, phone string) (domain.Patient, error) {
	if strings.TrimSpace(fullName) == "" {
		return domain.Patient{}, apperrors.New(apperrors.KindInvalidInput, "full_name is required")
	}

	now := s.clock.Now().UTC()
	patient, err := s.patients.Update(ctx, id, fullName, phone, now)
	if err != nil {
		return domain.Patient{}, err
	}

	s.publisher.Publish(domain.EventPatientUpdated, domain.PatientEvent{
		Type:      domain.EventPatientUpdated,
		Patient:   patient,
		Timestamp: now,
	})
	return patient, nil
}

// GetPatient fetches one patient.
func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (domain.Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// ListPatients returns the newest patients.
func (s *Service) ListPatients(ctx context.Context, limit int) ([]domain.Patient, error) {
	return s.patients.List(ctx, limit)
}

// CreatePaymentInput is a payment creation request.
type CreatePaymentInput struct {
	AppointmentID uuid.UUID
	AmountCents   int64
	Currency      string
}

// CreatePayment records a payment against an appointment.
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput) (domain.Payment, error) {
	if in.AmountCents <= 0 {
		return domain.Payment{}, apperrors.New(apperrors.KindInvalidInput, "amount_cents must be positive")
	}
	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	appointment, err := s.appointments.GetByID(ctx, in.AppointmentID)
	if err != nil {
		return domain.Payment{}, err
	}

	now := s.clock.Now().UTC()
	payment := domain.Payment{
		ID:            uuid.New(),
		AppointmentID: appointment.ID,
		PatientID:     appointment.PatientID,
		AmountCents:   in.AmountCents,
		Currency:      currency,
		Status:        domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.demoMode {
		payment.Reference = s.issuer.PaymentReference()
		payment.Status = domain.PaymentStatusCompleted
	}

	if err := s.payments.Create(ctx, &payment); err != nil {
		return domain.Payment{}, err
	}

	s.publisher.Publish(domain.EventNewPayment, domain.PaymentEvent{
		Type:      domain.EventNewPayment,
		Payment:   payment,
		Timestamp: now,
	})
	return payment, nil
}

// UpdatePaymentStatus transitions a payment and broadcasts the update.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status string) (domain.Payment, error) {
	switch status {
	case domain.PaymentStatusPending, domain.PaymentStatusCompleted,
		domain.PaymentStatusFailed, domain.PaymentStatusRefunded:
	default:
		return domain.Payment{}, apperrors.Newf(apperrors.KindInvalidInput, "unknown status %q", status)
	}

	now := s.clock.Now().UTC()
	payment, err := s.payments.UpdateStatus(ctx, id, status, now)
	if err != nil {
		return domain.Payment{}, err
	}

	s.publisher.Publish(domain.EventPaymentUpdated, domain.PaymentEvent{
		Type:      domain.EventPaymentUpdated,
		Payment:   payment,
		Timestamp: now,
	})
	return payment, nil
}

// GetPayment fetches one payment.
func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

// ListPayments returns the newest payments.
func (s *Service) ListPayments(ctx context.Context, limit int) ([]domain.Payment, error) {
	return s.payments.List(ctx, limit)
}

// ListAppointmentPayments returns the payments for an appointment.
func (s *Service) ListAppointmentPayments(ctx context.Context, appointmentID uuid.UUID) ([]domain.Payment, error) {
	return s.payments.ListByAppointment(ctx, appointmentID)
}

// StartConversation opens a conversation for a patient.
func (s *Service) StartConversation(ctx context.Context, patientID uuid.UUID, subject string) (domain.Conversation, error) {
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return domain.Conversation{}, err
	}

	now := s.clock.Now().UTC()
	conversation := domain.Conversation{
		ID:        uuid.New(),
		PatientID: patientID,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.messages.CreateConversation(ctx, &conversation); err != nil {
		return domain.Conversation{}, err
	}
	return conversation, nil
}

// SendMessage appends a message to a conversation and broadcasts it.
func (s *Service) SendMessage(ctx context.Context, conversationID uuid.UUID, senderRole, body string) (domain.Message, error) {
	if strings.TrimSpace(body) == "" {
		return domain.Message{}, apperrors.New(apperrors.KindInvalidInput, "message body is required")
	}

	now := s.clock.Now().UTC()
	message := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderRole:     senderRole,
		Body:           body,
		CreatedAt:      now,
	}
	if err := s.messages.CreateMessage(ctx, &message, now); err != nil {
		return domain.Message{}, err
	}

	s.publisher.Publish(domain.EventNewMessage, domain.MessageEvent{
		Type:      domain.EventNewMessage,
		Message:   message,
		Timestamp: now,
	})
	return message, nil
}

// ListConversations returns a patient's conversations.
func (s *Service) ListConversations(ctx context.Context, patientID uuid.UUID) ([]domain.Conversation, error) {
	return s.messages.ListConversationsByPatient(ctx, patientID)
}

// ListMessages returns a conversation's messages.
func (s *Service) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	if _, err := s.messages.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.messages.ListMessages(ctx, conversationID)
}
