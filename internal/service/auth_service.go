package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsroom/internal/models"
	"newsroom/internal/repository"
	"newsroom/internal/security"
	"newsroom/internal/validation"
)

var (
	ErrUsernameTaken      = errors.New("Username already exists")
	ErrEmailTaken         = errors.New("Email already registered")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrAccountLocked      = errors.New("Too many failed login attempts. Try again after 1 hour.")
	ErrAccountNowLocked   = errors.New("Account locked due to multiple failed login attempts. Try again after 1 hour.")
	ErrInvalidResetToken  = errors.New("Invalid or expired reset link")
	ErrPasswordMismatch   = errors.New("Passwords do not match")
	ErrEmailDelivery      = errors.New("Failed to send email")
	ErrUserNotFound       = errors.New("User not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

const resetTokenTTL = time.Hour

// AuthService handles authentication business logic: signup, local and
// superuser login, sessions and the password-reset flow. Local users live in
// the credential store and are reconciled into principals; superusers are
// principals only and never touch the credential store.
type AuthService struct {
	credRepo        *repository.CredentialRepository
	principalRepo   *repository.PrincipalRepository
	identity        *IdentityService
	limiter         *security.LoginLimiter
	sessionDuration time.Duration
	now             func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	credRepo *repository.CredentialRepository,
	principalRepo *repository.PrincipalRepository,
	identity *IdentityService,
	limiter *security.LoginLimiter,
	sessionDuration time.Duration,
) *AuthService {
	return &AuthService{
		credRepo:        credRepo,
		principalRepo:   principalRepo,
		identity:        identity,
		limiter:         limiter,
		sessionDuration: sessionDuration,
		now:             time.Now,
	}
}

// Signup registers a new local account: credential first, then the
// reconciled principal and profile, then a fresh session. Validation runs
// before any write, so a failed signup leaves no partial credential behind.
func (s *AuthService) Signup(username, email, password, confirm string) (*models.Session, *models.Principal, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}
	if password != confirm {
		return nil, nil, ErrPasswordMismatch
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	// Pre-check duplicates for distinct messages; the unique constraints
	// still decide races.
	if existing, err := s.credRepo.GetByUsername(username); err != nil {
		return nil, nil, fmt.Errorf("failed to check username: %w", err)
	} else if existing != nil {
		return nil, nil, ErrUsernameTaken
	}
	if existing, err := s.credRepo.GetByEmail(email); err != nil {
		return nil, nil, fmt.Errorf("failed to check email: %w", err)
	} else if existing != nil {
		return nil, nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	cred, err := s.credRepo.Create(username, email, passwordHash)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost a concurrent signup race for the same identifier
		if taken, checkErr := s.credRepo.GetByUsername(username); checkErr == nil && taken != nil {
			return nil, nil, ErrUsernameTaken
		}
		return nil, nil, ErrEmailTaken
	}
	if err != nil {
		return nil, nil, err
	}

	principal, _, err := s.identity.EnsurePrincipalAndProfile(cred, password)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.createSession(principal)
	if err != nil {
		return nil, nil, err
	}
	return session, principal, nil
}

// Login authenticates a local user by username or email. The lockout check
// runs before any credential lookup, and the failure message never says
// whether the user exists.
func (s *AuthService) Login(identifier, password string) (*models.Session, *models.Principal, error) {
	if err := validation.ValidateLoginIdentifier(identifier); err != nil {
		return nil, nil, err
	}
	if password == "" || len(password) > validation.MaxPasswordLength {
		return nil, nil, ErrInvalidCredentials
	}

	if s.limiter.IsBlocked(identifier) {
		return nil, nil, ErrAccountLocked
	}

	cred, err := s.credRepo.GetByUsernameOrEmail(identifier)
	if err != nil {
		return nil, nil, err
	}
	if cred == nil || !security.CheckPassword(password, cred.PasswordHash) {
		if s.limiter.RecordFailure(identifier) == 0 {
			return nil, nil, ErrAccountNowLocked
		}
		return nil, nil, ErrInvalidCredentials
	}

	s.limiter.RecordSuccess(identifier)

	// Lazily create the framework-side identity for credentials that have
	// never logged in before.
	principal, _, err := s.identity.EnsurePrincipalAndProfile(cred, password)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.createSession(principal)
	if err != nil {
		return nil, nil, err
	}
	return session, principal, nil
}

// SuperuserLogin authenticates directly against the principal store and
// requires the superuser flag. The limiter is keyed by the raw submitted
// username, same as the local flow.
func (s *AuthService) SuperuserLogin(username, password string) (*models.Session, *models.Principal, error) {
	if err := validation.ValidateSuperuserField("username", username); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidateSuperuserField("password", password); err != nil {
		return nil, nil, err
	}

	if s.limiter.IsBlocked(username) {
		return nil, nil, ErrAccountLocked
	}

	principal, err := s.principalRepo.GetByUsername(username)
	if err != nil {
		return nil, nil, err
	}

	if principal == nil || !principal.IsSuperuser || !security.CheckPassword(password, principal.PasswordHash) {
		remaining := s.limiter.RecordFailure(username)
		if remaining == 0 {
			return nil, nil, ErrAccountNowLocked
		}
		return nil, nil, fmt.Errorf("%w. %d attempt(s) remaining.", ErrInvalidCredentials, remaining)
	}

	s.limiter.RecordSuccess(username)

	session, err := s.createSession(principal)
	if err != nil {
		return nil, nil, err
	}
	return session, principal, nil
}

// SocialLogin signs in a social identity delivered by the OAuth integration.
// Social identities live as principals keyed by their email and never touch
// the credential store; the profile is overwritten from the payload on every
// login.
func (s *AuthService) SocialLogin(provider string, payload SocialPayload) (*models.Session, *models.Principal, error) {
	if payload.Email == "" {
		return nil, nil, validation.ValidationError{Field: "email", Message: "email is required"}
	}

	principal, err := s.principalRepo.GetByUsername(payload.Email)
	if err != nil {
		return nil, nil, err
	}
	if principal == nil {
		// No local password exists for a social identity; seed the
		// framework hash from random material.
		random, err := security.GenerateToken(32)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate password: %w", err)
		}
		passwordHash, err := security.HashPassword(random)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to hash password: %w", err)
		}
		principal, err = s.principalRepo.Create(payload.Email, payload.Email, passwordHash, false)
		if errors.Is(err, repository.ErrDuplicate) {
			principal, err = s.principalRepo.GetByUsername(payload.Email)
		}
		if err != nil {
			return nil, nil, err
		}
	}

	if _, err := s.identity.SyncFromSocialPayload(principal, provider, payload); err != nil {
		return nil, nil, err
	}

	session, err := s.createSession(principal)
	if err != nil {
		return nil, nil, err
	}
	return session, principal, nil
}

// ValidateSession checks if a session is valid and returns the associated principal
func (s *AuthService) ValidateSession(sessionID string) (*models.Principal, error) {
	session, err := s.principalRepo.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if session.IsExpired() {
		// Clean up expired session
		_ = s.principalRepo.DeleteSession(sessionID)
		return nil, ErrSessionExpired
	}

	principal, err := s.principalRepo.GetByID(session.PrincipalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}
	if principal == nil {
		return nil, ErrSessionNotFound
	}

	return principal, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(sessionID string) error {
	if err := s.principalRepo.DeleteSession(sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions() error {
	if err := s.principalRepo.DeleteExpiredSessions(); err != nil {
		return fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return nil
}

// CleanupExpiredResetTokens clears reset tokens whose window has passed
func (s *AuthService) CleanupExpiredResetTokens() error {
	if err := s.credRepo.ClearExpiredResetTokens(s.now()); err != nil {
		return fmt.Errorf("failed to cleanup reset tokens: %w", err)
	}
	return nil
}

// RequestPasswordReset issues a reset token for the credential matching the
// identifier and emails the reset link. The token stays valid and persisted
// even when the email fails; the failure is surfaced, not swallowed.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailService *EmailService, identifier string) (string, error) {
	if err := validation.ValidateLoginIdentifier(identifier); err != nil {
		return "", err
	}

	cred, err := s.credRepo.GetByUsernameOrEmail(identifier)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", ErrUserNotFound
	}

	token, err := security.GenerateToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	expiry := s.now().Add(resetTokenTTL)
	if err := s.credRepo.SetResetToken(cred.ID, token, expiry); err != nil {
		return "", err
	}

	if err := emailService.SendPasswordResetEmail(ctx, cred.Email, cred.Username, token); err != nil {
		return token, fmt.Errorf("%w: %v", ErrEmailDelivery, err)
	}

	return token, nil
}

// ValidateResetToken checks whether a reset token exists and is unexpired
func (s *AuthService) ValidateResetToken(token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	cred, err := s.credRepo.GetByResetToken(token)
	if err != nil {
		return false, err
	}
	if cred == nil {
		return false, nil
	}
	return cred.HasValidResetToken(token, s.now()), nil
}

// ResetPassword consumes a reset token: re-hashes the password and clears
// the token so it cannot be used again. The user logs in again afterwards;
// no session is created here.
func (s *AuthService) ResetPassword(token, password, confirm string) error {
	cred, err := s.credRepo.GetByResetToken(token)
	if err != nil {
		return err
	}
	if cred == nil || !cred.HasValidResetToken(token, s.now()) {
		return ErrInvalidResetToken
	}

	if password == "" || password != confirm {
		return ErrPasswordMismatch
	}
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.credRepo.UpdatePasswordAndClearToken(cred.ID, passwordHash)
}

func (s *AuthService) createSession(principal *models.Principal) (*models.Session, error) {
	if err := s.principalRepo.UpdateLastLogin(principal.ID, s.now()); err != nil {
		return nil, err
	}

	sessionID := security.GenerateSessionID()
	expiresAt := s.now().Add(s.sessionDuration)
	session, err := s.principalRepo.CreateSession(sessionID, principal.ID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}
