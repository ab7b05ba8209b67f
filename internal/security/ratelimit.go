package security

import (
	"time"

	"newsroom/internal/cache"
)

// LoginLimiter tracks failed login attempts per submitted identifier and
// enforces a temporary lockout. Counters live in the ephemeral cache, so a
// restart clears all lockout state.
//
// The window is sliding: every failure refreshes the TTL on the counter, and
// reaching the threshold sets a block flag with the same TTL.
type LoginLimiter struct {
	store       *cache.Store
	maxAttempts int64
	window      time.Duration
}

// NewLoginLimiter creates a limiter allowing maxAttempts failures per window.
func NewLoginLimiter(store *cache.Store, maxAttempts int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{
		store:       store,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

// IsBlocked reports whether identifier is currently locked out. The check is
// made before any credential lookup, so a locked identifier is rejected even
// with a correct password.
func (l *LoginLimiter) IsBlocked(identifier string) bool {
	return l.store.GetFlag(blockKey(identifier))
}

// RecordFailure registers a failed attempt for identifier and returns the
// number of attempts remaining before lockout (0 when now locked).
func (l *LoginLimiter) RecordFailure(identifier string) int64 {
	attempts := l.store.Increment(attemptsKey(identifier), l.window)
	if attempts >= l.maxAttempts {
		l.store.SetFlag(blockKey(identifier), true, l.window)
		return 0
	}
	return l.maxAttempts - attempts
}

// RecordSuccess clears all rate-limit state for identifier.
func (l *LoginLimiter) RecordSuccess(identifier string) {
	l.store.Delete(attemptsKey(identifier))
	l.store.Delete(blockKey(identifier))
}

func attemptsKey(identifier string) string {
	return "login_attempts_" + identifier
}

func blockKey(identifier string) string {
	return "login_block_" + identifier
}
