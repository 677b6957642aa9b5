package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-ledger/internal/domain/auth"
	"github.com/cmlabs-hris/payroll-ledger/internal/domain/user"
	"github.com/cmlabs-hris/payroll-ledger/internal/handler/http/response"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired rejects requests without a verified access token carrying a valid principal.
// It runs after jwtauth.Verifier.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}
		if token == nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		if tokenType, _ := claims["type"].(string); tokenType != "access" {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}
		if _, err := user.PrincipalFromClaims(claims); err != nil {
			response.HandleError(w, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}
