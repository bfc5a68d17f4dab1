// Package services contains the application services of the blog client.
// This file defines the auth state holder: the process-wide record of who is
// logged in, kept in step with the server's profile check, the session
// timer and the HTTP interceptor.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/client"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/models"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/nav"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/session"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/logging"
)

const cleanupTimeout = 5 * time.Second

var ErrNoSessionExpiry = errors.New("server did not return a session expiry")

// State is a snapshot of the auth state. User is a copy.
type State struct {
	User            *models.User
	IsAuthenticated bool
	IsGuest         bool
	Loading         bool
}

// SignInResult is the outcome of a credential check. When Requires2FA is
// set no session exists yet and the code sent to Email must be verified.
type SignInResult struct {
	User        *models.User
	Requires2FA bool
	Email       string
}

// SessionTimer is implemented by session.Timer.
type SessionTimer interface {
	SetCallbacks(cb session.Callbacks)
	Start(ctx context.Context, expiresAt time.Time) error
	Clear(ctx context.Context) error
	Recover(ctx context.Context) (bool, error)
	Sync(ctx context.Context) error
	Snapshot() session.Snapshot
	Close()
}

// KVStore is the durable local store.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// AuthService owns the auth state.
//
// Contract:
//   - Init: profile check on startup. 401 means logged out, silently; any
//     other failure is logged and also means logged out. Loading is false
//     afterwards in every case.
//   - Login: records an authenticated user and starts the session timer
//     when an expiry is given.
//   - Logout: ends the session, best-effort server logout, navigates to the
//     landing route unless skipRedirect. Idempotent.
//   - HandleUnauthorized: reaction to a 401 seen by the interceptor. At
//     most one navigation per session.
//   - Revalidate: re-check after the user comes back; a 401 ends the
//     session the same way the interceptor would.
//   - ExtendSession: asks the server for a new expiry; errors propagate.
//   - ChangePassword: the server revokes every session of the account, so
//     a success ends the local session and prompts for a new login.
//
// None of the methods call the timer, the API or the navigator while
// holding the internal lock.
type AuthService interface {
	Init(ctx context.Context) State
	Dispose()
	State() State

	SignIn(ctx context.Context, identifier, password string) (*SignInResult, error)
	Verify2FA(ctx context.Context, email, code string) (*models.User, error)
	Register(ctx context.Context, in models.Registration) (string, error)
	VerifyRegistration(ctx context.Context, email, code string) (*models.User, error)
	Login(ctx context.Context, user models.User, expiresAt time.Time)
	ContinueAsGuest(ctx context.Context) error

	Logout(ctx context.Context, skipRedirect bool)
	HandleUnauthorized(ctx context.Context)
	Revalidate(ctx context.Context) error
	ExtendSession(ctx context.Context) (time.Time, error)

	UpdateUser(user models.User)
	UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*models.User, error)
	DeleteAccount(ctx context.Context) error
	ChangePassword(ctx context.Context, current, next string) error
	SetTwoFactor(ctx context.Context, enable bool) (bool, error)

	ResendVerification(ctx context.Context, identifier string) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, password string) (string, error)

	Session() session.Snapshot
	OnSessionWarning(fn func(remaining time.Duration))
	Ping(ctx context.Context) error
}

// AuthDeps are the collaborators of NewAuthService.
type AuthDeps struct {
	API         client.AuthAPI
	Credentials client.Credentials
	Store       KVStore
	Timer       SessionTimer
	Navigator   nav.Navigator
	Logger      logging.Logger
	// Landing is the route navigations go to. Defaults to "/".
	Landing string
}

type authService struct {
	api     client.AuthAPI
	creds   client.Credentials
	store   KVStore
	timer   SessionTimer
	nav     nav.Navigator
	log     logging.Logger
	landing string

	mu           sync.Mutex
	state        State
	disposed     bool
	sessionEnded bool
	onWarning    func(time.Duration)
}

func NewAuthService(d AuthDeps) AuthService {
	a := &authService{
		api:     d.API,
		creds:   d.Credentials,
		store:   d.Store,
		timer:   d.Timer,
		nav:     d.Navigator,
		log:     d.Logger,
		landing: d.Landing,
	}
	if a.log == nil {
		a.log = logging.Discard()
	}
	a.log = a.log.With("module", "auth")
	if a.landing == "" {
		a.landing = nav.DefaultLanding
	}
	if a.nav == nil {
		a.nav = nav.NavigatorFunc(func(string) {})
	}
	a.state.Loading = true

	a.timer.SetCallbacks(session.Callbacks{
		OnWarning:   a.handleWarning,
		OnExpire:    a.handleExpire,
		OnPeerClear: a.handlePeerClear,
	})
	return a
}

func (a *authService) Init(ctx context.Context) State {
	a.mu.Lock()
	a.state.Loading = true
	a.mu.Unlock()

	a.dropLegacyKeys(ctx)
	guest := a.guestFlag(ctx)

	user, err := a.api.Profile(ctx)

	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return State{}
	}
	switch {
	case err == nil:
		a.state = State{User: user, IsAuthenticated: true}
	case errors.Is(err, client.ErrUnauthorized):
		a.log.Debug(ctx, "no active session")
		a.state = State{IsGuest: guest}
	default:
		a.log.Warn(ctx, "profile check failed, continuing logged out", "error", err)
		a.state = State{IsGuest: guest}
	}
	authenticated := a.state.IsAuthenticated
	a.mu.Unlock()

	switch {
	case authenticated:
		if guest {
			a.forget(ctx, common.GuestKey)
		}
		if _, rerr := a.timer.Recover(ctx); rerr != nil {
			a.log.Warn(ctx, "failed to recover session timer", "error", rerr)
		}
	case errors.Is(err, client.ErrUnauthorized):
		// leftovers of a session the server no longer knows about
		if cerr := a.timer.Clear(ctx); cerr != nil {
			a.log.Warn(ctx, "failed to clear stale session expiry", "error", cerr)
		}
		if cerr := a.creds.Forget(ctx); cerr != nil {
			a.log.Warn(ctx, "failed to clear stale credentials", "error", cerr)
		}
	}

	return a.State()
}

func (a *authService) Dispose() {
	a.mu.Lock()
	a.disposed = true
	a.mu.Unlock()

	a.timer.Close()
}

func (a *authService) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (a *authService) SignIn(ctx context.Context, identifier, password string) (*SignInResult, error) {
	resp, err := a.api.Login(ctx, models.Credentials{Identifier: identifier, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}
	if resp.Requires2FA {
		return &SignInResult{Requires2FA: true, Email: resp.Email}, nil
	}

	user, err := a.establish(ctx, resp)
	if err != nil {
		return nil, err
	}
	return &SignInResult{User: user}, nil
}

func (a *authService) Verify2FA(ctx context.Context, email, code string) (*models.User, error) {
	resp, err := a.api.Verify2FA(ctx, models.TwoFactorCode{Email: email, Code: code})
	if err != nil {
		return nil, fmt.Errorf("verification error: %w", err)
	}
	return a.establish(ctx, resp)
}

func (a *authService) Register(ctx context.Context, in models.Registration) (string, error) {
	msg, err := a.api.Register(ctx, in)
	if err != nil {
		return "", fmt.Errorf("register error: %w", err)
	}
	return msg, nil
}

func (a *authService) VerifyRegistration(ctx context.Context, email, code string) (*models.User, error) {
	resp, err := a.api.VerifyRegistration(ctx, models.TwoFactorCode{Email: email, Code: code})
	if err != nil {
		return nil, fmt.Errorf("verification error: %w", err)
	}
	return a.establish(ctx, resp)
}

func (a *authService) establish(ctx context.Context, resp *models.AuthResponse) (*models.User, error) {
	if resp.User == nil {
		return nil, errors.New("server response carries no user")
	}
	a.Login(ctx, *resp.User, resp.ExpiresAt())
	u := *resp.User
	return &u, nil
}

// Login records user as authenticated. A zero expiresAt leaves the timer
// untouched.
func (a *authService) Login(ctx context.Context, user models.User, expiresAt time.Time) {
	a.mu.Lock()
	a.state = State{User: &user, IsAuthenticated: true}
	a.sessionEnded = false
	a.mu.Unlock()

	a.forget(ctx, common.GuestKey)

	if expiresAt.IsZero() {
		return
	}
	if err := a.timer.Start(ctx, expiresAt); err != nil {
		a.log.Warn(ctx, "session timer start failed", "error", err)
	}
}

func (a *authService) ContinueAsGuest(ctx context.Context) error {
	a.mu.Lock()
	if a.state.IsAuthenticated {
		a.mu.Unlock()
		return errors.New("already logged in")
	}
	a.state = State{IsGuest: true}
	a.sessionEnded = false
	a.mu.Unlock()

	if err := a.store.Set(ctx, common.GuestKey, []byte("true")); err != nil {
		return fmt.Errorf("failed to persist guest mode: %w", err)
	}
	return nil
}

func (a *authService) Logout(ctx context.Context, skipRedirect bool) {
	target := nav.LoggedOut(a.landing)
	if skipRedirect {
		target = ""
	}
	a.end(ctx, true, target)
}

func (a *authService) HandleUnauthorized(ctx context.Context) {
	a.mu.Lock()
	if a.sessionEnded {
		a.mu.Unlock()
		return
	}
	a.sessionEnded = true
	authenticated := a.state.IsAuthenticated
	a.mu.Unlock()

	if authenticated {
		a.log.Info(ctx, "server rejected the session")
		a.end(ctx, false, nav.SessionExpired(a.landing))
		return
	}
	a.nav.Navigate(nav.LoginPrompt(a.landing, nav.LoginPromptMessage))
}

func (a *authService) Revalidate(ctx context.Context) error {
	if !a.State().IsAuthenticated {
		return nil
	}

	if err := a.timer.Sync(ctx); err != nil {
		a.log.Warn(ctx, "session sync failed", "error", err)
	}
	if !a.State().IsAuthenticated {
		return nil
	}

	user, err := a.api.Profile(ctx)
	switch {
	case err == nil:
		a.UpdateUser(*user)
		return nil
	case errors.Is(err, client.ErrUnauthorized):
		a.HandleUnauthorized(ctx)
		return client.ErrSessionExpired
	default:
		return fmt.Errorf("revalidate error: %w", err)
	}
}

func (a *authService) ExtendSession(ctx context.Context) (time.Time, error) {
	resp, err := a.api.ExtendSession(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("extend session error: %w", err)
	}
	exp := resp.ExpiresAt()
	if exp.IsZero() {
		return time.Time{}, ErrNoSessionExpiry
	}
	if err := a.timer.Start(ctx, exp); err != nil {
		a.log.Warn(ctx, "session timer restart failed", "error", err)
	}
	return exp, nil
}

func (a *authService) UpdateUser(user models.User) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state.IsAuthenticated {
		a.state.User = &user
	}
}

func (a *authService) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*models.User, error) {
	if err := a.api.UpdateProfile(ctx, in); err != nil {
		return nil, fmt.Errorf("profile update error: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.state.IsAuthenticated || a.state.User == nil {
		return nil, client.ErrSessionExpired
	}
	u := *a.state.User
	u.Username = in.Username
	u.Email = in.Email
	a.state.User = &u
	out := u
	return &out, nil
}

func (a *authService) DeleteAccount(ctx context.Context) error {
	if err := a.api.DeleteProfile(ctx); err != nil {
		return fmt.Errorf("delete account error: %w", err)
	}
	a.end(ctx, false, nav.LoggedOut(a.landing))
	return nil
}

func (a *authService) ChangePassword(ctx context.Context, current, next string) error {
	if _, err := a.api.ChangePassword(ctx, models.PasswordChange{CurrentPassword: current, NewPassword: next}); err != nil {
		return fmt.Errorf("change password error: %w", err)
	}
	a.log.Info(ctx, "password changed, session ended")
	a.end(ctx, false, nav.LoginPrompt(a.landing, nav.PasswordChangedMessage))
	return nil
}

func (a *authService) SetTwoFactor(ctx context.Context, enable bool) (bool, error) {
	status, err := a.api.SetTwoFactor(ctx, enable)
	if err != nil {
		return false, fmt.Errorf("two-factor error: %w", err)
	}

	a.mu.Lock()
	if a.state.IsAuthenticated && a.state.User != nil {
		u := *a.state.User
		on := status.Enabled
		u.TwoFAEnabled = &on
		a.state.User = &u
	}
	a.mu.Unlock()
	return status.Enabled, nil
}

func (a *authService) ResendVerification(ctx context.Context, identifier string) (string, error) {
	msg, err := a.api.ResendVerification(ctx, identifier)
	if err != nil {
		return "", fmt.Errorf("resend verification error: %w", err)
	}
	return msg, nil
}

func (a *authService) ForgotPassword(ctx context.Context, email string) (string, error) {
	msg, err := a.api.ForgotPassword(ctx, email)
	if err != nil {
		return "", fmt.Errorf("forgot password error: %w", err)
	}
	return msg, nil
}

func (a *authService) ResetPassword(ctx context.Context, token, password string) (string, error) {
	msg, err := a.api.ResetPassword(ctx, models.PasswordReset{Token: token, Password: password})
	if err != nil {
		return "", fmt.Errorf("reset password error: %w", err)
	}
	return msg, nil
}

func (a *authService) Session() session.Snapshot {
	return a.timer.Snapshot()
}

func (a *authService) OnSessionWarning(fn func(remaining time.Duration)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onWarning = fn
}

func (a *authService) Ping(ctx context.Context) error {
	return a.api.Ping(ctx)
}

// end moves to LoggedOut. Only the caller that observes an active session
// talks to the server and navigates; later callers just make sure nothing
// is left behind locally.
func (a *authService) end(ctx context.Context, callServer bool, target string) {
	a.mu.Lock()
	wasAuthenticated := a.state.IsAuthenticated
	wasActive := wasAuthenticated || a.state.IsGuest
	a.state = State{}
	a.sessionEnded = true
	a.mu.Unlock()

	if err := a.timer.Clear(ctx); err != nil {
		a.log.Warn(ctx, "failed to clear session timer", "error", err)
	}

	if callServer && wasAuthenticated {
		if err := a.api.Logout(ctx); err != nil {
			a.log.Debug(ctx, "server logout failed, ignoring", "error", err)
		}
	}

	if err := a.creds.Forget(ctx); err != nil {
		a.log.Warn(ctx, "failed to clear credentials", "error", err)
	}
	a.forget(ctx, common.GuestKey)

	if wasActive && target != "" {
		a.nav.Navigate(target)
	}
}

func (a *authService) handleWarning(remaining time.Duration) {
	a.mu.Lock()
	fn := a.onWarning
	active := a.state.IsAuthenticated
	a.mu.Unlock()

	if active && fn != nil {
		fn(remaining)
	}
}

func (a *authService) handleExpire() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	a.log.Info(ctx, "session expired")
	a.end(ctx, true, nav.SessionExpired(a.landing))
}

func (a *authService) handlePeerClear() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	a.log.Info(ctx, "session ended in another client")
	a.end(ctx, false, nav.LoggedOut(a.landing))
}

func (a *authService) guestFlag(ctx context.Context) bool {
	v, err := a.store.Get(ctx, common.GuestKey)
	if err != nil {
		a.log.Warn(ctx, "failed to read guest flag", "error", err)
		return false
	}
	return string(v) == "true"
}

func (a *authService) dropLegacyKeys(ctx context.Context) {
	keys := []string{common.LegacyUsernameKey, common.LegacyUserIDKey}
	if a.creds.Mode() == client.ModeCookie {
		keys = append(keys, common.TokenKey)
	}
	a.forget(ctx, keys...)
}

func (a *authService) forget(ctx context.Context, keys ...string) {
	if err := a.store.Delete(ctx, keys...); err != nil {
		a.log.Warn(ctx, "failed to delete local keys", "keys", keys, "error", err)
	}
}
