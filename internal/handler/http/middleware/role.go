package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/payroll-ledger/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// RequireAdmin requires admin role
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.HandleError(w, user.ErrAdminAccessRequired)
			return
		}

		role, _ := claims["role"].(string)
		if user.Role(role) != user.RoleAdmin {
			response.HandleError(w, user.ErrAdminAccessRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
