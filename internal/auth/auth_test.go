package auth

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
)

const testSecret = "test-secret-key-0123456789-abcdefghij"

func newTestService(clock clockwork.Clock) *Service {
	return NewService(testSecret, "admin@clinic.test", "s3cret", 24*time.Hour, clock)
}

func TestLoginIssuesAdminToken(t *testing.T) {
	svc := newTestService(clockwork.NewFakeClock())

	token, err := svc.Login("admin@clinic.test", "s3cret")
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "admin@clinic.test", claims.Subject)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(clockwork.NewFakeClock())

	_, err := svc.Login("admin@clinic.test", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login("stranger@clinic.test", "s3cret")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := newTestService(clock)

	token, err := svc.Issue("admin@clinic.test", RoleAdmin)
	require.NoError(t, err)

	clock.Advance(25 * time.Hour)

	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := newTestService(clock)
	other := NewService("another-secret-key-9876543210-zyxwvut", "admin@clinic.test", "s3cret", time.Hour, clock)

	token, err := other.Issue("admin@clinic.test", RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestIssuePatientToken(t *testing.T) {
	svc := newTestService(clockwork.NewFakeClock())

	token, err := svc.Issue("patient-42", RolePatient)
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, RolePatient, claims.Role)
	assert.Equal(t, "patient-42", claims.Subject)
}
