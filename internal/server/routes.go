package server

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/auth"
	apperrors "github.com/RajeshKalidandi/healthconnect-platform/internal/errors"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/health/ready", s.handleReady)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.GET("/ws", s.handleWebSocket)

	api := s.echo.Group("/api")
	api.POST("/auth/login", s.handleLogin)
	api.POST("/patients", s.handleRegisterPatient)

	authed := api.Group("", s.requireAuth)
	authed.GET("/auth/me", s.handleMe)

	authed.GET("/appointments", s.handleListAppointments)
	authed.POST("/appointments", s.handleCreateAppointment)
	authed.POST("/appointments/book", s.handleBookAppointment)
	authed.GET("/appointments/slots", s.handleBookedSlots)
	authed.GET("/appointments/:id", s.handleGetAppointment)
	authed.PATCH("/appointments/:id", s.handleUpdateAppointment)
	authed.PATCH("/appointments/:id/status", s.handleUpdateAppointmentStatus)
	authed.GET("/appointments/:id/payments", s.handleListAppointmentPayments)

	authed.GET("/patients", s.handleListPatients)
	authed.GET("/patients/:id", s.handleGetPatient)
	authed.PATCH("/patients/:id", s.handleUpdatePatient)
	authed.GET("/patients/:id/appointments", s.handleListPatientAppointments)
	authed.GET("/patients/:id/conversations", s.handleListConversations)

	authed.GET("/payments", s.handleListPayments)
	authed.POST("/payments", s.handleCreatePayment)
	authed.GET("/payments/:id", s.handleGetPayment)
	authed.PATCH("/payments/:id/status", s.handleUpdatePaymentStatus)

	authed.POST("/conversations", s.handleStartConversation)
	authed.GET("/conversations/:id/messages", s.handleListMessages)
	authed.POST("/conversations/:id/messages", s.handleSendMessage)

	authed.GET("/dashboard/stats", s.handleDashboardStats)
}

const claimsContextKey = "auth.claims"

// requireAuth verifies the bearer token and stashes its claims on the
// request context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return apperrors.New(apperrors.KindUnauthorized, "missing bearer token")
		}

		claims, err := s.auth.Verify(token)
		if err != nil {
			return apperrors.Wrap(err, apperrors.KindUnauthorized, "invalid or expired token")
		}

		c.Set(claimsContextKey, claims)
		return next(c)
	}
}

// requireAdmin is stacked on routes reserved for clinic staff.
func requireAdmin(c echo.Context) error {
	claims, ok := c.Get(claimsContextKey).(*auth.Claims)
	if !ok || claims.Role != auth.RoleAdmin {
		return apperrors.New(apperrors.KindForbidden, "admin access required")
	}
	return nil
}
