// Package middleware provides HTTP middleware for the VaultFS API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/marmos91/vaultfs/pkg/api/auth"
)

// Context key type for storing claims
type contextKey string

const claimsContextKey contextKey = "claims"

// GetClaimsFromContext retrieves JWT claims from the request context.
// Returns nil if no claims are present.
//
// This function should only be called within API handler code that runs
// after the JWTAuth middleware has processed the request. If called before
// authentication, or in routes without JWTAuth middleware, it will return nil.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// WithClaims returns a context carrying the given claims. Intended for
// tests and for internal callers that bypass the HTTP middleware.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// extractBearerToken extracts the token from a Bearer Authorization header.
// Returns the token string and true if successful, or empty string and false if not.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

// JWTAuth is a middleware that validates Bearer tokens in the Authorization header.
// If valid, the claims are stored in the request context.
// If invalid or missing, returns 401 Unauthorized.
func JWTAuth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractBearerToken(r)
			if !ok {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateAccessToken(tokenString)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequirePermission is a middleware that blocks users whose role does
// not grant the given catalog permission.
// Must be used after JWTAuth middleware.
func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			if !claims.Role.Allows(permission) {
				http.Error(w, "Insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is a middleware that blocks non-admin users.
// Must be used after JWTAuth middleware.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaimsFromContext(r.Context())
			if claims == nil {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			if !claims.IsAdmin() {
				http.Error(w, "Admin access required", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
