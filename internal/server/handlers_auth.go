package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/auth"
	apperrors "github.com/RajeshKalidandi/healthconnect-platform/internal/errors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.New(apperrors.KindInvalidInput, "invalid request body")
	}

	token, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token})
}

type meResponse struct {
	User *auth.Claims `json:"user"`
}

// handleMe echoes the verified claims back to the caller.
func (s *Server) handleMe(c echo.Context) error {
	claims, ok := c.Get(claimsContextKey).(*auth.Claims)
	if !ok {
		return apperrors.New(apperrors.KindUnauthorized, "missing bearer token")
	}
	return c.JSON(http.StatusOK, meResponse{User: claims})
}
