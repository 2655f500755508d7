package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/app"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
	apperrors "github.com/RajeshKalidandi/healthconnect-platform/internal/errors"
)

const defaultListLimit = 100

type appointmentRequest struct {
	PatientID        uuid.UUID `json:"patient_id"`
	DoctorName       string    `json:"doctor_name"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	ConsultationType string    `json:"consultation_type"`
	Notes            string    `json:"notes"`
}

func (r *appointmentRequest) toInput() app.BookAppointmentInput {
	return app.BookAppointmentInput{
		PatientID:        r.PatientID,
		DoctorName:       r.DoctorName,
		ScheduledAt:      r.ScheduledAt,
		ConsultationType: r.ConsultationType,
		Notes:            r.Notes,
	}
}

func (s *Server) handleListAppointments(c echo.Context) error {
	appointments, err := s.svc.ListAppointments(c.Request().Context(), defaultListLimit)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, appointments)
}

func (s *Server) handleBookAppointment(c echo.Context) error {
	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.New(apperrors.KindInvalidInput, "invalid request body")
	}

	appointment, err := s.svc.BookAppointment(c.Request().Context(), req.toInput())
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, appointment)
}

func (s *Server) handleCreateAppointment(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}

	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.New(apperrors.KindInvalidInput, "invalid request body")
	}

	appointment, err := s.svc.CreateAppointment(c.Request().Context(), req.toInput())
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, appointment)
}

func (s *Server) handleGetAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	appointment, err := s.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, appointment)
}

type bookedSlotsResponse struct {
	BookedSlots []domain.BookedSlot `json:"booked_slots"`
}

func (s *Server) handleBookedSlots(c echo.Context) error {
	raw := c.QueryParam("date")
	if raw == "" {
		return apperrors.New(apperrors.KindInvalidInput, "date is required")
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return apperrors.New(apperrors.KindInvalidInput, "date must be YYYY-MM-DD")
	}

	slots, err := s.svc.BookedSlots(c.Request().Context(), day)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, bookedSlotsResponse{BookedSlots: slots})
}

type updateAppointmentRequest struct {
	DoctorName       *string    `json:"doctor_name"`
	ScheduledAt      *time.Time `json:"scheduled_at"`
	ConsultationType *string    `json:"consultation_type"`
	Notes            *string    `json:"notes"`
}

func (s *Server) handleUpdateAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req updateAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.New(apperrors.KindInvalidInput, "invalid request body")
	}

	appointment, err := s.svc.UpdateAppointment(c.Request().Context(), id, app.UpdateAppointmentInput{
		DoctorName:       req.DoctorName,
		ScheduledAt:      req.ScheduledAt,
		ConsultationType: req.ConsultationType,
		Notes:            req.Notes,
	})
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, appointment)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateAppointmentStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.New(apperrors.KindInvalidInput, "invalid request body")
	}

	appointment, err := s.svc.UpdateAppointmentStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, appointment)
}

func (s *Server) handleListAppointmentPayments(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	payments, err := s.svc.ListAppointmentPayments(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, payments)
}
