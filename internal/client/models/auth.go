package models

import "time"

// Credentials is the body of POST /login. Identifier is a username or email.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Registration is the body of POST /register.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TwoFactorCode is the body of POST /verify-2fa.
type TwoFactorCode struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// PasswordChange is the body of POST /change-password.
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PasswordReset is the body of POST /reset-password. Token is the code
// mailed by POST /forgot-password.
type PasswordReset struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type PasswordForgot struct {
	Email string `json:"email"`
}

type VerificationResend struct {
	Identifier string `json:"identifier"`
}

type TwoFactorToggle struct {
	Enable bool `json:"enable"`
}

// TwoFactorStatus answers POST /toggle-2fa.
type TwoFactorStatus struct {
	Message string `json:"message"`
	Enabled bool   `json:"twofa_enabled"`
}

// AuthResponse covers every endpoint that may open or extend a session.
//
// When Requires2FA is set no session was opened yet: User is empty and the
// code sent to Email must be submitted to /verify-2fa.
type AuthResponse struct {
	User             *User  `json:"user,omitempty"`
	Message          string `json:"message,omitempty"`
	SessionExpiresAt int64  `json:"sessionExpiresAt,omitempty"`
	AccessToken      string `json:"access_token,omitempty"`
	Requires2FA      bool   `json:"requires_2fa,omitempty"`
	Email            string `json:"email,omitempty"`
}

// ExpiresAt converts the server's Unix seconds to a time. Zero means the
// server did not issue an expiry.
func (r *AuthResponse) ExpiresAt() time.Time {
	if r == nil || r.SessionExpiresAt <= 0 {
		return time.Time{}
	}
	return time.Unix(r.SessionExpiresAt, 0)
}

// MessageResponse is the generic {message} / {msg} acknowledgement.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
	Msg     string `json:"msg,omitempty"`
}

// Text returns whichever of the two message fields is set.
func (m MessageResponse) Text() string {
	if m.Message != "" {
		return m.Message
	}
	return m.Msg
}
