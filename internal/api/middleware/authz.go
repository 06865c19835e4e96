package middleware

import (
	"context"
	"net/http"

	"github.com/edvin/backupd/internal/api/response"
	"github.com/edvin/backupd/internal/model"
)

// GetIdentity extracts the APIKeyIdentity from the request context.
func GetIdentity(ctx context.Context) *APIKeyIdentity {
	identity, _ := ctx.Value(APIKeyIdentityKey).(*APIKeyIdentity)
	return identity
}

// IsAdmin is the single administrative capability check.
func IsAdmin(identity *APIKeyIdentity) bool {
	return identity != nil && identity.Admin
}

// RequireAdmin rejects authenticated non-admins with 403 FORBIDDEN.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdmin(GetIdentity(r.Context())) {
				response.WriteError(w, http.StatusForbidden, model.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
