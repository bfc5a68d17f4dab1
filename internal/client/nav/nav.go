// Package nav models client-side navigation. A Target is a route with an
// optional status indicator in its query string, e.g.
// "/?banner=session-expired". The Navigator decides how a target is shown.
package nav

import (
	"net/url"
	"strings"
)

// Banner is the status indicator carried by a navigation target.
type Banner string

const (
	BannerNone           Banner = ""
	BannerSessionExpired Banner = "session-expired"
	BannerLoggedOut      Banner = "logged-out"
)

const (
	DefaultLanding = "/"

	// LoginPromptMessage accompanies a login prompt raised after the session
	// ran out in the middle of an action.
	LoginPromptMessage = "Session expired. Please log in to continue"

	// PasswordChangedMessage accompanies the login prompt shown after a
	// password change ended every session.
	PasswordChangedMessage = "Password changed. Please log in with your new password"
)

type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(target string)

func (f NavigatorFunc) Navigate(target string) { f(target) }

// WithBanner returns landing with the banner query parameter set.
func WithBanner(landing string, b Banner) string {
	u := parseOrRoot(landing)
	q := u.Query()
	if b == BannerNone {
		q.Del("banner")
	} else {
		q.Set("banner", string(b))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// LoginPrompt returns landing asking the user to log in with message.
func LoginPrompt(landing, message string) string {
	u := parseOrRoot(landing)
	q := u.Query()
	q.Set("login", "true")
	if message != "" {
		q.Set("message", message)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func SessionExpired(landing string) string { return WithBanner(landing, BannerSessionExpired) }

func LoggedOut(landing string) string { return WithBanner(landing, BannerLoggedOut) }

// Signal is the parsed form of a target.
type Signal struct {
	Path        string
	Banner      Banner
	LoginPrompt bool
	Message     string
}

func Parse(target string) Signal {
	u := parseOrRoot(target)
	q := u.Query()
	path := u.Path
	if path == "" {
		path = DefaultLanding
	}
	return Signal{
		Path:        path,
		Banner:      Banner(q.Get("banner")),
		LoginPrompt: q.Get("login") == "true",
		Message:     q.Get("message"),
	}
}

// Text renders the signal as a one-line status message, or "" when there is
// nothing to tell the user.
func (s Signal) Text() string {
	var parts []string
	switch s.Banner {
	case BannerSessionExpired:
		parts = append(parts, "Your session has expired. Please log in again.")
	case BannerLoggedOut:
		parts = append(parts, "You have been logged out.")
	case BannerNone:
	default:
		parts = append(parts, string(s.Banner))
	}
	if s.Message != "" {
		parts = append(parts, s.Message)
	} else if s.LoginPrompt {
		parts = append(parts, "Please log in to continue.")
	}
	return strings.Join(parts, " ")
}

// IsSessionEnd reports whether the target means the session is gone and the
// user must authenticate again.
func (s Signal) IsSessionEnd() bool {
	return s.Banner == BannerSessionExpired || s.LoginPrompt
}

func parseOrRoot(target string) *url.URL {
	if target == "" {
		target = DefaultLanding
	}
	u, err := url.Parse(target)
	if err != nil {
		return &url.URL{Path: DefaultLanding}
	}
	return u
}
