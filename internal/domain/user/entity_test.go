package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalFromClaims(t *testing.T) {
	p, err := PrincipalFromClaims(map[string]interface{}{"user_id": "u1", "employee_id": "e1", "role": "employee"})
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: "u1", EmployeeID: "e1", Role: RoleEmployee}, p)
	assert.False(t, p.IsAdmin())

	p, err = PrincipalFromClaims(map[string]interface{}{"user_id": "u2", "role": "admin"})
	require.NoError(t, err)
	assert.True(t, p.IsAdmin())
}

func TestPrincipalFromClaims_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		claims map[string]interface{}
		want   error
	}{
		{"no user", map[string]interface{}{"role": "admin"}, ErrMissingClaims},
		{"unknown role", map[string]interface{}{"user_id": "u", "role": "owner"}, ErrInsufficientPermissions},
		{"employee without id", map[string]interface{}{"user_id": "u", "role": "employee"}, ErrEmployeeIDRequired},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := PrincipalFromClaims(c.claims)
			assert.ErrorIs(t, err, c.want)
		})
	}
}
