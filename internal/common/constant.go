package common

// Header and cookie names shared by the client and the server.
const (
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "
	AccessTokenCookieName   = "access_token_cookie"
)

// Keys of the client's durable local store.
const (
	// SessionExpiresAtKey holds the server-issued session expiry in epoch milliseconds.
	SessionExpiresAtKey = "session_expires_at"

	// CookiesKey holds the persisted credential cookies (cookie mode).
	CookiesKey = "auth_cookies"

	// GuestKey marks client-only guest mode.
	GuestKey = "guest"

	// TokenKey holds the bearer token (bearer mode). Older clients stored it
	// regardless of mode, so cookie-mode clients treat it as legacy.
	TokenKey = "token"

	// Legacy identity keys written by older clients; never read.
	LegacyUsernameKey = "username"
	LegacyUserIDKey   = "userId"
)
