// Package common defines shared constants and sentinel errors used across
// the client and the development auth server. Callers should use errors.Is
// to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Token errors.
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrSessionRevoked = errors.New("session revoked")
)

// MessageError pairs a sentinel with the text shown to API users.
type MessageError struct {
	Kind error
	Msg  string
}

func (e *MessageError) Error() string { return e.Msg }

func (e *MessageError) Unwrap() error { return e.Kind }

// WithMessage returns an error that matches kind under errors.Is and
// carries msg for the caller.
func WithMessage(kind error, msg string) error {
	return &MessageError{Kind: kind, Msg: msg}
}

// MessageOf returns the user-facing message attached by WithMessage, or "".
func MessageOf(err error) string {
	var me *MessageError
	if errors.As(err, &me) {
		return me.Msg
	}
	return ""
}
