package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/app"
	apperrors "github.com/RajeshKalidandi/healthconnect-platform/internal/errors"
)

func (s *Server) handleListPayments(c echo.Context) error {
	if err := requireAdmin(c); err != nil {
		return err
	}

	payments, err := s.svc.ListPayments(c.Request().Context(), defaultListLimit)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, payments)
}

func (s *Server) handleGetPayment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	payment, err := s.svc.GetPayment(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

type createPaymentRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
}

func (s *Server) handleCreatePayment(c echo.Context) error {
	var req createPaymentRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.New(apperrors.KindInvalidInput, "invalid request body")
	}

	payment, err := s.svc.CreatePayment(c.Request().Context(), app.CreatePaymentInput{
		AppointmentID: req.AppointmentID,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
	})
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, payment)
}

func (s *Server) handleUpdatePaymentStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.New(apperrors.KindInvalidInput, "invalid request body")
	}

	payment, err := s.svc.UpdatePaymentStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, payment)
}
