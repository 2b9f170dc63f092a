package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/payroll-engine/internal/domain/auth"
	"github.com/cmlabs-hris/payroll-engine/internal/handler/http/response"
)

// RequireCompany rejects tokens that are not bound to a company. Every payroll query is tenant scoped.
func RequireCompany(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}
		if claims.TenantID == "" {
			response.HandleError(w, auth.ErrTenantRequired)
			return
		}

		next.ServeHTTP(w, r)
	})
}
