// Package auth issues and verifies the bearer tokens used by the
// dashboard and patient APIs.
package auth

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/RajeshKalidandi/healthconnect-platform/internal/domain"
)

// Roles embedded in issued tokens.
const (
	RoleAdmin   = "admin"
	RolePatient = "patient"
)

// Claims is the JWT claim set carried by platform tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 tokens.
type Service struct {
	secret        []byte
	adminEmail    string
	adminPassword string
	ttl           time.Duration
	clock         clockwork.Clock
}

// NewService creates a token service. The clock is injectable so expiry
// behaviour is testable.
func NewService(secret, adminEmail, adminPassword string, ttl time.Duration, clock clockwork.Clock) *Service {
	return &Service{
		secret:        []byte(secret),
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
		ttl:           ttl,
		clock:         clock,
	}
}

// Login checks admin credentials and issues an admin token.
func (s *Service) Login(email, password string) (string, error) {
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.adminEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
	if !emailOK || !passOK {
		return "", domain.ErrInvalidCredentials
	}
	return s.Issue(s.adminEmail, RoleAdmin)
}

// Issue signs a token for the given subject and role.
func (s *Service) Issue(subject, role string) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}
