package auth

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/mind-engage/drivequiz/internal/auth"
	"github.com/mind-engage/drivequiz/internal/rbac"
)

// RoleSource looks up the authoritative role for a user id.
type RoleSource interface {
	Role(ctx context.Context, id string) (string, error)
}

// AttachRoleFromDB replaces the token's role claim with the stored one, so role
// changes apply before the token expires. allowClaimFallback keeps the claim when
// the lookup fails for reasons other than an unknown user (dev/offline).
func AttachRoleFromDB(src RoleSource, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := rbac.SubjectFromContext(ctx)

			role, err := src.Role(ctx, sub)
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case errors.Is(err, auth.ErrUnknownUser):
				http.Error(w, "forbidden", http.StatusForbidden)
			case allowClaimFallback && rbac.RoleFromContext(ctx) != "":
				log.Printf("role lookup for %s failed, using token claim: %v", sub, err)
				next.ServeHTTP(w, r)
			default:
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}
