package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hygiapro/bookings/internal/http/response"
	"github.com/hygiapro/bookings/pkg/auth"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireAdmin accepts only bearer tokens signed with secret that carry the
// admin role.
func RequireAdmin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				response.Unauthorized(w, "invalid authorization header")
				return
			}
			raw := strings.TrimPrefix(authz, "Bearer ")
			claims, err := auth.Parse(raw, secret)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					response.WriteError(w, http.StatusUnauthorized, "token expired", response.CodeExpiredToken)
					return
				}
				response.WriteError(w, http.StatusUnauthorized, "invalid authorization token", response.CodeInvalidToken)
				return
			}
			if claims.Role != auth.RoleAdmin {
				response.Forbidden(w, "admin access required")
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Claims returns the admin claims RequireAdmin stored, or nil.
func Claims(r *http.Request) *auth.Claims {
	c, _ := r.Context().Value(CtxClaims).(*auth.Claims)
	return c
}
