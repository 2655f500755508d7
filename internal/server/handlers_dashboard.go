package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleDashboardStats(c echo.Context) error {
	snapshot, err := s.stats.Snapshot(c.Request().Context())
	if err != nil {
		return mapDomainError(err)
	}
	return c.JSON(http.StatusOK, snapshot)
}
