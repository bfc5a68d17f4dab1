package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnavailable           = errors.New("server unavailable")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrSessionExpired        = errors.New("session expired")
	ErrCredentialsReplaced   = errors.New("credentials were replaced by another client, try again")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrBadRequest            = errors.New("bad request")
	ErrLocalDataNotAvailable = errors.New("local data unavailable")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (%d)", e.kind, e.Status)
	}
	return fmt.Sprintf("%s (%d): %s", e.kind, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

// errorBody accepts the three shapes the backend uses for error messages.
type errorBody struct {
	Msg     string `json:"msg"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.Msg, b.Error, b.Message} {
		if s != "" {
			return s
		}
	}
	return ""
}

func mapError(status int, body []byte) error {
	var eb errorBody
	msg := ""
	if json.Unmarshal(body, &eb) == nil {
		msg = eb.text()
	} else {
		msg = strings.TrimSpace(string(body))
	}

	return &APIError{Status: status, Message: msg, kind: kindOf(status)}
}

func kindOf(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return ErrBadRequest
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout, status == http.StatusTooManyRequests:
		return ErrUnavailable
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}

// Message extracts a human-readable reason from err, preferring the
// server's own message.
func Message(err error) string {
	var ae *APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return err.Error()
}
