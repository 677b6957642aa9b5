package jwt

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewJWTService("test-secret", "15m")
	require.NoError(t, err)
	return svc
}

func TestNewJWTService_InvalidExpiration(t *testing.T) {
	_, err := NewJWTService("secret", "soon")
	assert.Error(t, err)
}

func TestJWTService_SSEToken_RoundTrip(t *testing.T) {
	// Arrange
	svc := newTestService(t)
	principal := user.Principal{UserID: "u-1", EmployeeID: "emp-1", Role: user.RoleEmployee}

	// Act
	token, expiresIn, err := svc.GenerateSSEToken(principal)
	require.NoError(t, err)
	got, err := svc.ValidateSSEToken(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)
	assert.Equal(t, principal, got)
}

func TestJWTService_ValidateSSEToken_RejectsAccessToken(t *testing.T) {
	svc := newTestService(t)
	token, _, err := svc.GenerateAccessToken(user.Principal{UserID: "u-1", Role: user.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateSSEToken(token)

	assert.Error(t, err)
}

func TestJWTService_ValidateSSEToken_RejectsForeignSignature(t *testing.T) {
	svc := newTestService(t)
	other, err := NewJWTService("another-secret", "15m")
	require.NoError(t, err)
	token, _, err := other.GenerateSSEToken(user.Principal{UserID: "u-1", Role: user.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateSSEToken(token)

	assert.Error(t, err)
}

func TestJWTService_GenerateAccessToken_Claims(t *testing.T) {
	svc := newTestService(t)

	token, expiresAt, err := svc.GenerateAccessToken(user.Principal{UserID: "u-9", EmployeeID: "emp-9", Role: user.RoleEmployee})
	require.NoError(t, err)

	decoded, err := jwtauth.VerifyToken(svc.JWTAuth(), token)
	require.NoError(t, err)
	role, _ := decoded.Get("role")
	employeeID, _ := decoded.Get("employee_id")
	assert.Equal(t, "employee", role)
	assert.Equal(t, "emp-9", employeeID)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), time.Unix(expiresAt, 0), 5*time.Second)
}
