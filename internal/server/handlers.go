package server

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
	apperrors "github.com/RajeshKalidandi/healthconnect-platform/internal/errors"
)

// mapDomainError translates domain sentinels into transport-mapped
// application errors. Already-classified errors pass through.
func mapDomainError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, domain.ErrAppointmentNotFound),
		errors.Is(err, domain.ErrPatientNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrConversationNotFound):
		return apperrors.Wrap(err, apperrors.KindNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrSlotTaken):
		return apperrors.Wrap(err, apperrors.KindConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperrors.Wrap(err, apperrors.KindUnauthorized, "invalid credentials")
	case apperrors.KindOf(err) != apperrors.KindUnknown:
		return err
	default:
		return apperrors.Wrap(err, apperrors.KindInternal, "operation failed")
	}
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperrors.New(apperrors.KindInvalidInput, "invalid id")
	}
	return id, nil
}
