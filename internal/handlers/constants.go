package handlers

// Cookie names shared across handlers.
const (
	SessionCookieName = "session_id"

	oauthStateCookie = "oauth_state"
	oauthNonceCookie = "oauth_nonce"
)
