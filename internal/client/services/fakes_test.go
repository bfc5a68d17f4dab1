package services

import (
	"bytes"
	"context"
	"net/http"
	"sync"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/client"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/client/models"
)

/*************
 * Fake AuthAPI
 *************/

type fakeAuthAPI struct {
	mu sync.Mutex

	profileUser  *models.User
	profileErr   error
	profileGate  chan struct{}
	profileCalls int

	loginResp *models.AuthResponse
	loginErr  error
	lastLogin models.Credentials

	verifyResp *models.AuthResponse
	verifyErr  error
	lastVerify models.TwoFactorCode

	registerMsg string
	registerErr error

	logoutErr   error
	logoutCalls int

	updateErr  error
	lastUpdate models.ProfileUpdate

	deleteErr   error
	deleteCalls int

	extendResp *models.AuthResponse
	extendErr  error

	pingErr error

	changeErr     error
	lastChange    models.PasswordChange
	twoFAErr      error
	accountMsg    string
	accountErr    error
	lastAccountIn any
}

func (f *fakeAuthAPI) Login(_ context.Context, in models.Credentials) (*models.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLogin = in
	return f.loginResp, f.loginErr
}

func (f *fakeAuthAPI) Verify2FA(_ context.Context, in models.TwoFactorCode) (*models.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastVerify = in
	return f.verifyResp, f.verifyErr
}

func (f *fakeAuthAPI) Register(context.Context, models.Registration) (string, error) {
	return f.registerMsg, f.registerErr
}

func (f *fakeAuthAPI) VerifyRegistration(ctx context.Context, in models.TwoFactorCode) (*models.AuthResponse, error) {
	return f.Verify2FA(ctx, in)
}

func (f *fakeAuthAPI) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuthAPI) Profile(context.Context) (*models.User, error) {
	f.mu.Lock()
	gate := f.profileGate
	f.profileCalls++
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	u := *f.profileUser
	return &u, nil
}

func (f *fakeAuthAPI) UpdateProfile(_ context.Context, in models.ProfileUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUpdate = in
	return f.updateErr
}

func (f *fakeAuthAPI) DeleteProfile(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeAuthAPI) ExtendSession(context.Context) (*models.AuthResponse, error) {
	return f.extendResp, f.extendErr
}

func (f *fakeAuthAPI) Ping(context.Context) error { return f.pingErr }

func (f *fakeAuthAPI) ChangePassword(_ context.Context, in models.PasswordChange) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastChange = in
	if f.changeErr != nil {
		return "", f.changeErr
	}
	return "Password changed successfully", nil
}

func (f *fakeAuthAPI) SetTwoFactor(_ context.Context, enable bool) (*models.TwoFactorStatus, error) {
	if f.twoFAErr != nil {
		return nil, f.twoFAErr
	}
	return &models.TwoFactorStatus{Message: "ok", Enabled: enable}, nil
}

func (f *fakeAuthAPI) account(in any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAccountIn = in
	return f.accountMsg, f.accountErr
}

func (f *fakeAuthAPI) ResendVerification(_ context.Context, identifier string) (string, error) {
	return f.account(identifier)
}

func (f *fakeAuthAPI) ForgotPassword(_ context.Context, email string) (string, error) {
	return f.account(email)
}

func (f *fakeAuthAPI) ResetPassword(_ context.Context, in models.PasswordReset) (string, error) {
	return f.account(in)
}

func (f *fakeAuthAPI) logouts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logoutCalls
}

func (f *fakeAuthAPI) profiles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileCalls
}

/*************
 * Fake credentials, store, navigator, log sink
 *************/

type fakeCreds struct {
	mu      sync.Mutex
	mode    client.Mode
	forgets int
}

func (c *fakeCreds) Mode() client.Mode                      { return c.mode }
func (c *fakeCreds) Reload(context.Context) error           { return nil }
func (c *fakeCreds) Apply(*http.Request) string             { return "" }
func (c *fakeCreds) Capture(*http.Response)                 {}
func (c *fakeCreds) Remember(context.Context, string) error { return nil }
func (c *fakeCreds) Invalidate(ctx context.Context, _ string) (bool, error) {
	return true, c.Forget(ctx)
}
func (c *fakeCreds) Forget(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgets++
	return nil
}

func (c *fakeCreds) forgotten() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forgets
}

type memStore struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newMemStore() *memStore { return &memStore{m: map[string][]byte{}} }

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[key], nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

func (s *memStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.m, k)
	}
	return nil
}

func (s *memStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[key]
	return ok
}

type recordingNav struct {
	mu      sync.Mutex
	targets []string
}

func (n *recordingNav) Navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.targets = append(n.targets, target)
}

func (n *recordingNav) got() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.targets...)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
