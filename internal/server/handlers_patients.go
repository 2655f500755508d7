package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/app"
	apperrors "github.com/RajeshKalidandi/healthconnect-platform/internal/errors"
)

type registerPatientRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (s *Server) handleRegisterPatient(c echo.Context) error {
	var req registerPatientRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.New(apperrors.KindInvalidInput, "invalid request body")
	}

	patient, err := s.svc.RegisterPatient(c.Request().Context(), app.RegisterPatientInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, patient)
}

func (s *Server) handleListPatients(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}

	patients, err := s.svc.ListPatients(c.Request().Context(), defaultListLimit)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, patients)
}

func (s *Server) handleGetPatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	patient, err := s.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, patient)
}

type updatePatientRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

func (s *Server) handleUpdatePatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req updatePatientRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.New(apperrors.KindInvalidInput, "invalid request body")
	}

	patient, err := s.svc.UpdatePatient(c.Request().Context(), id, req.FullName, req.Phone)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, patient)
}

func (s *Server) handleListPatientAppointments(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	appointments, err := s.svc.ListPatientAppointments(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, appointments)
}
