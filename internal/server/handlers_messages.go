package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/RajeshKalidandi/healthconnect-platform/internal/errors"
)

type startConversationRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	Subject   string    `json:"subject"`
}

func (s *Server) handleStartConversation(c echo.Context) error {
	var req startConversationRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.New(apperrors.KindInvalidInput, "invalid request body")
	}

	conversation, err := s.svc.StartConversation(c.Request().Context(), req.PatientID, req.Subject)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, conversation)
}

func (s *Server) handleListConversations(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	conversations, err := s.svc.ListConversations(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, conversations)
}

type sendMessageRequest struct {
	SenderRole string `json:"sender_role"`
	Body       string `json:"body"`
}

func (s *Server) handleSendMessage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.New(apperrors.KindInvalidInput, "invalid request body")
	}
	if req.SenderRole == "" {
		req.SenderRole = "patient"
	}

	message, err := s.svc.SendMessage(c.Request().Context(), id, req.SenderRole, req.Body)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusCreated, message)
}

func (s *Server) handleListMessages(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	messages, err := s.svc.ListMessages(c.Request().Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, messages)
}
