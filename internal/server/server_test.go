package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/auth"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/config"
	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
)

type staticStats struct {
	stats domain.Stats
}

func (s *staticStats) Snapshot(_ context.Context) (domain.Stats, error) {
	return s.stats, nil
}

func newTestServer(t *testing.T) (*Server, *auth.Service) {
	t.Helper()

	cfg := &config.Config{
		Port:                    "0",
		JWTSecret:               "test-secret-key-0123456789-abcdefghij",
		AdminEmail:              "admin@clinic.test",
		AdminPassword:           "s3cret",
		TokenTTL:                time.Hour,
		MaxWebSocketConnections: 10,
		MaxConnectionsPerIP:     2,
		ConnectionRatePerSecond: 1000,
		ConnectionRateBurst:     1000,
	}

	clock := clockwork.NewRealClock()
	authSvc := auth.NewService(cfg.JWTSecret, cfg.AdminEmail, cfg.AdminPassword, cfg.TokenTTL, clock)
	stats := &staticStats{stats: domain.Stats{TotalAppointments: 7}}

	srv := New(cfg, slog.Default(), nil, authSvc, nil, stats, nil, nil, clock)
	return srv, authSvc
}

func doRequest(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVersionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/version", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_version")
}

func TestLoginIssuesToken(t *testing.T) {
	srv, authSvc := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/auth/login", "",
		`{"email":"admin@clinic.test","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	claims, err := authSvc.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/auth/login", "",
		`{"email":"admin@clinic.test","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/dashboard/stats", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/dashboard/stats", "garbage-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardStatsWithValidToken(t *testing.T) {
	srv, authSvc := newTestServer(t)

	token, err := authSvc.Issue("admin@clinic.test", auth.RoleAdmin)
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodGet, "/api/dashboard/stats", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats domain.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(7), stats.TotalAppointments)
}

func TestAuthMeReturnsClaims(t *testing.T) {
	srv, authSvc := newTestServer(t)

	token, err := authSvc.Issue("admin@clinic.test", auth.RoleAdmin)
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodGet, "/api/auth/me", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User struct {
			Role    string `json:"role"`
			Subject string `json:"sub"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, auth.RoleAdmin, resp.User.Role)
	assert.Equal(t, "admin@clinic.test", resp.User.Subject)

	rec = doRequest(t, srv, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOnlyRouteRejectsPatientRole(t *testing.T) {
	srv, authSvc := newTestServer(t)

	token, err := authSvc.Issue("patient-7", auth.RolePatient)
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodGet, "/api/patients", token, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
