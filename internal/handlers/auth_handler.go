package handlers

import (
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	"newsroom/internal/security"
	"newsroom/internal/service"
	"newsroom/internal/validation"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService  *service.AuthService
	emailService *service.EmailService

	googleOAuth          *oauth2.Config
	oauthRedirectBaseURL string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, emailService *service.EmailService, googleOAuth *oauth2.Config, oauthRedirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		emailService:         emailService,
		googleOAuth:          googleOAuth,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
	}
}

// statusForAuthError maps service errors to HTTP status codes.
func statusForAuthError(err error) int {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrInvalidResetToken):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountLocked),
		errors.Is(err, service.ErrAccountNowLocked):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrEmailDelivery):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *AuthHandler) respondAuthError(w http.ResponseWriter, err error) {
	status := statusForAuthError(err)
	if status == http.StatusInternalServerError {
		respondWithError(w, status, "Internal server error", "auth error", err)
		return
	}
	respondWithError(w, status, err.Error(), "", nil)
}

// Signup handles new account registration
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	session, principal, err := h.authService.Signup(
		r.FormValue("username"),
		r.FormValue("email"),
		r.FormValue("password"),
		r.FormValue("confirm_password"),
	)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"username": principal.Username,
	})
}

// Login handles local login with a username or email
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	session, principal, err := h.authService.Login(
		r.FormValue("identifier"),
		r.FormValue("password"),
	)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"username": principal.Username,
	})
}

// SuperuserLogin handles the separate superuser login flow
func (h *AuthHandler) SuperuserLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	session, principal, err := h.authService.SuperuserLogin(
		r.FormValue("username"),
		r.FormValue("password"),
	)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, session.ID, session.ExpiresAt))
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"username": principal.Username,
	})
}

// Logout handles logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		_ = h.authService.Logout(cookie.Value)
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName))
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ForgotPassword issues a reset token and emails the reset link
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	_, err := h.authService.RequestPasswordReset(r.Context(), h.emailService, r.FormValue("identifier"))
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password reset link sent",
	})
}

// CheckResetToken reports whether a reset token is still valid
func (h *AuthHandler) CheckResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	valid, err := h.authService.ValidateResetToken(token)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error", "reset token check", err)
		return
	}
	if !valid {
		respondWithError(w, http.StatusBadRequest, service.ErrInvalidResetToken.Error(), "", nil)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// ResetPassword consumes a reset token and sets a new password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid form data", "", nil)
		return
	}

	err := h.authService.ResetPassword(
		r.PathValue("token"),
		r.FormValue("password"),
		r.FormValue("confirm_password"),
	)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password updated",
	})
}
