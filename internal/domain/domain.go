package domain

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	AppointmentStatusPending   = "pending"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)

// Consultation types.
const (
	ConsultationInPerson = "in-person"
	ConsultationVideo    = "video"
)

// Payment statuses.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Appointment is a booked consultation slot.
type Appointment struct {
	ID               uuid.UUID  `json:"id"`
	PatientID        uuid.UUID  `json:"patient_id"`
	PatientName      string     `json:"patient_name"`
	DoctorName       string     `json:"doctor_name"`
	ScheduledAt      time.Time  `json:"scheduled_at"`
	ConsultationType string     `json:"consultation_type"`
	Status           string     `json:"status"`
	Notes            string     `json:"notes,omitempty"`
	MeetingReference string     `json:"meeting_reference,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
}

// BookedSlot marks a doctor's slot as occupied on a given day. The
// public booking page uses these to grey out unavailable times.
type BookedSlot struct {
	DoctorName  string    `json:"doctor_name"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Patient is a registered clinic patient.
type Patient struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Payment records a charge tied to an appointment.
type Payment struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	Reference     string    `json:"reference,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Conversation groups messages between the clinic and a patient.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	Subject   string    `json:"subject,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single entry in a conversation.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderRole     string    `json:"sender_role"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// Trends holds month-over-month percentage changes for the dashboard.
type Trends struct {
	Appointments        float64 `json:"appointments"`
	Patients            float64 `json:"patients"`
	VideoConsultations  float64 `json:"videoConsultations"`
	PendingAppointments float64 `json:"pendingAppointments"`
}

// Stats is the dashboard statistics snapshot.
type Stats struct {
	TotalAppointments   int64  `json:"totalAppointments"`
	TotalPatients       int64  `json:"totalPatients"`
	VideoConsultations  int64  `json:"videoConsultations"`
	PendingAppointments int64  `json:"pendingAppointments"`
	Trends              Trends `json:"trends"`
}

// Change operations carried on the changefeed.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// Change is a notification that appointment data changed.
type Change struct {
	Table     string    `json:"table"`
	Operation string    `json:"operation"`
	At        time.Time `json:"at"`
}
