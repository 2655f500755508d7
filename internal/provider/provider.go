// Package provider abstracts external reference issuers (payments,
// video meetings). In demo mode a stub issuer generates deterministic
// placeholder references so the platform runs without external accounts.
package provider

import (
	"fmt"

	"github.com/google/uuid"
)

// Reference prefixes issued by the stub provider.
const (
	PrefixPayment = "demo_pay_"
	PrefixMeeting = "demo_meeting_"
)

// DemoAmountCents is the flat charge applied to demo-mode payments.
const DemoAmountCents int64 = 500

// Issuer hands out external references for payments and meetings.
type Issuer interface {
	PaymentReference() string
	MeetingReference() string
}

// Stub issues demo-mode references with recognizable prefixes.
type Stub struct{}

// NewStub returns a demo reference issuer.
func NewStub() *Stub {
	return &Stub{}
}

// PaymentReference returns a unique demo payment reference.
func (s *Stub) PaymentReference() string {
	return fmt.Sprintf("%s%s", PrefixPayment, uuid.NewString())
}

// MeetingReference returns a unique demo meeting reference.
func (s *Stub) MeetingReference() string {
	return fmt.Sprintf("%s%s", PrefixMeeting, uuid.NewString())
}
