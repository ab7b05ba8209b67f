package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"newsroom/internal/models"
	"newsroom/internal/security"
	"newsroom/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const PrincipalContextKey ContextKey = "principal"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(authService *service.AuthService) *Middleware {
	return &Middleware{authService: authService}
}

// RequireAuth is middleware that requires a valid session
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "Authentication required", "", nil)
			return
		}

		principal, err := m.authService.ValidateSession(cookie.Value)
		if err != nil {
			// Clear invalid cookie
			http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
			respondWithError(w, http.StatusUnauthorized, "Authentication required", "", nil)
			return
		}

		ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
		next(w, r.WithContext(ctx))
	}
}

// RequireSuperuser requires an authenticated superuser. The authentication
// check runs first so anonymous callers always see 401, not 403.
func (m *Middleware) RequireSuperuser(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		principal := GetPrincipalFromContext(r.Context())
		if principal == nil || !principal.IsSuperuser {
			respondWithError(w, http.StatusForbidden, "Superuser access required", "", nil)
			return
		}
		next(w, r)
	})
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetPrincipalFromContext retrieves the principal from the request context
func GetPrincipalFromContext(ctx context.Context) *models.Principal {
	principal, ok := ctx.Value(PrincipalContextKey).(*models.Principal)
	if !ok {
		return nil
	}
	return principal
}
