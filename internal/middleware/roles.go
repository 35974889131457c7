package middleware

import (
	"net/http"

	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/pkg/jwt"
)

// RequireModerator must run after Auth. Admins pass as well.
func RequireModerator(next http.Handler) http.Handler {
	return requireClaims(next, (*jwt.Claims).IsModerator, "moderator access required")
}

// RequireAdmin must run after Auth
func RequireAdmin(next http.Handler) http.Handler {
	return requireClaims(next, (*jwt.Claims).IsAdmin, "admin access required")
}

func requireClaims(next http.Handler, allowed func(*jwt.Claims) bool, detail string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims == nil {
			model.NewUnauthorizedError("authentication required").WriteJSON(w)
			return
		}
		if !allowed(claims) {
			model.NewForbiddenError(detail).WriteJSON(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
