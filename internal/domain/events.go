package domain

import (
	"encoding/json"
	"time"
)

// Event types sent to dashboard clients.
const (
	EventInitialData        = "INITIAL_DATA"
	EventRealtimeUpdate     = "REALTIME_UPDATE"
	EventNewAppointment     = "NEW_APPOINTMENT"
	EventAppointmentCreated = "APPOINTMENT_CREATED"
	EventAppointmentUpdate  = "APPOINTMENT_UPDATE"
	EventNewPayment         = "NEW_PAYMENT"
	EventPaymentUpdated     = "PAYMENT_UPDATED"
	EventPatientUpdated     = "PATIENT_UPDATED"
	EventNewMessage         = "NEW_MESSAGE"
)

// Request types received from dashboard clients.
const (
	RequestFetchInitialData = "FETCH_INITIAL_DATA"
)

// CloseUnauthorized is the websocket close code sent when a connection
// presents a missing, invalid or expired credential.
const CloseUnauthorized = 4401

// ClientRequest is an inbound message from a dashboard client.
type ClientRequest struct {
	Type string `json:"type"`
}

// InitialDataEvent carries the full dashboard snapshot sent on connect
// and on explicit refetch.
type InitialDataEvent struct {
	Type         string        `json:"type"`
	Appointments []Appointment `json:"appointments"`
	Stats        Stats         `json:"stats"`
	Timestamp    time.Time     `json:"timestamp"`
}

// RealtimeUpdateEvent is pushed when the changefeed reports a data
// change; it carries a fresh snapshot tagged with the triggering
// operation kind (INSERT, UPDATE or DELETE).
type RealtimeUpdateEvent struct {
	Type         string        `json:"type"`
	Event        string        `json:"event"`
	Appointments []Appointment `json:"appointments"`
	Stats        Stats         `json:"stats"`
	Timestamp    time.Time     `json:"timestamp"`
}

// AppointmentEvent carries a single appointment under the "appointment"
// key. Used for APPOINTMENT_CREATED and APPOINTMENT_UPDATE.
type AppointmentEvent struct {
	Type        string      `json:"type"`
	Appointment Appointment `json:"appointment"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewAppointmentEvent carries a freshly booked appointment under the
// "data" key.
type NewAppointmentEvent struct {
	Type      string      `json:"type"`
	Data      Appointment `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// PaymentEvent carries a payment under the "payment" key. Used for
// NEW_PAYMENT and PAYMENT_UPDATED.
type PaymentEvent struct {
	Type      string    `json:"type"`
	Payment   Payment   `json:"payment"`
	Timestamp time.Time `json:"timestamp"`
}

// PatientEvent carries a patient under the "patient" key.
type PatientEvent struct {
	Type      string    `json:"type"`
	Patient   Patient   `json:"patient"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageEvent carries a conversation message under the "message" key.
type MessageEvent struct {
	Type      string    `json:"type"`
	Message   Message   `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope is the minimal decode target for routing inbound and
// outbound events by type.
type Envelope struct {
	Type string `json:"type"`
}

// EventType extracts the type field from a raw event payload.
func EventType(raw []byte) string {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ""
	}
	return env.Type
}
