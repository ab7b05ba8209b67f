package models

import "time"

// Credential is the durable signup record: username, email and password hash
// kept independently of the session-facing principal. Reset token fields are
// both set while a password reset is pending and both null otherwise.
type Credential struct {
	ID               int64
	Username         string
	Email            string
	PasswordHash     string
	CreatedAt        time.Time
	ResetToken       string
	ResetTokenExpiry *time.Time
}

// HasValidResetToken reports whether token matches the pending reset token
// and the expiry has not passed.
func (c *Credential) HasValidResetToken(token string, now time.Time) bool {
	if c.ResetToken == "" || c.ResetTokenExpiry == nil {
		return false
	}
	return c.ResetToken == token && now.Before(*c.ResetTokenExpiry)
}

// Principal is the session-facing identity used for login and authorization.
// Superuser principals are provisioned out of band and have no credential.
type Principal struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsSuperuser  bool
	LastLogin    *time.Time
	CreatedAt    time.Time
}

// Profile is the display identity attached one-to-one to a principal.
type Profile struct {
	ID          string // UUID
	PrincipalID int64
	FullName    string
	Email       string
	Avatar      string
	Provider    string // "local" or "google"
	CreatedAt   time.Time
}

// Session represents an authenticated session
type Session struct {
	ID          string
	PrincipalID int64
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
