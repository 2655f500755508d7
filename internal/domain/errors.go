package domain

import "errors"

// Sentinel errors returned by repositories and services.
var (
	ErrAppointmentNotFound  = errors.New("appointment not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrSlotTaken            = errors.New("appointment slot already taken")
)
