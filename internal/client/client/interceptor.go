package client

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
)

const maxDrain = 64 << 10

// route identifies an endpoint relative to the API base path.
type route struct {
	method string
	path   string
}

// passThrough lists the endpoints whose 401 is an ordinary answer rather
// than a sign of a dead session: the profile check (logged-out users get
// 401 there), wrong credentials and codes, and logout of an already dead
// session.
var passThrough = map[route]bool{
	{http.MethodGet, "/profile"}:              true,
	{http.MethodPost, "/login"}:               true,
	{http.MethodPost, "/verify-2fa"}:          true,
	{http.MethodPost, "/verify-registration"}: true,
	{http.MethodPost, "/logout"}:              true,
}

// Interceptor is the single http.RoundTripper all API requests use.
type Interceptor struct {
	next     http.RoundTripper
	creds    Credentials
	basePath string

	mu             sync.RWMutex
	onUnauthorized func(ctx context.Context)
}

// NewInterceptor wraps next. basePath is the path prefix of the API base
// URL, e.g. "/api"; it is stripped before matching pass-through routes.
func NewInterceptor(next http.RoundTripper, creds Credentials, basePath string) *Interceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Interceptor{
		next:     next,
		creds:    creds,
		basePath: strings.TrimSuffix(basePath, "/"),
	}
}

func (i *Interceptor) OnUnauthorized(fn func(ctx context.Context)) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.onUnauthorized = fn
}

func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, stamp, err := i.send(req, attempt)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized || i.passesThrough(resp.Request) {
			return resp, nil
		}

		_, _ = io.CopyN(io.Discard, resp.Body, maxDrain)
		_ = resp.Body.Close()

		// Only the credential that was actually rejected is dropped. If
		// another process stored a newer one meanwhile, the session lives on.
		dropped, ierr := i.creds.Invalidate(req.Context(), stamp)
		if ierr == nil && !dropped {
			if attempt == 0 && replayable(req) {
				continue
			}
			return nil, ErrCredentialsReplaced
		}

		i.mu.RLock()
		fn := i.onUnauthorized
		i.mu.RUnlock()
		if fn != nil {
			fn(req.Context())
		}
		return nil, ErrSessionExpired
	}
}

// send applies the current credentials to a clone of req. The stored
// credential is re-read first so that a session renewed by another process
// is picked up; on a read error the in-memory one is used.
func (i *Interceptor) send(req *http.Request, attempt int) (*http.Response, string, error) {
	_ = i.creds.Reload(req.Context())

	out := req.Clone(req.Context())
	if attempt > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, "", err
		}
		out.Body = body
	}
	stamp := i.creds.Apply(out)

	resp, err := i.next.RoundTrip(out)
	if err != nil {
		return nil, "", err
	}
	if resp.Request == nil {
		resp.Request = out
	}
	i.creds.Capture(resp)
	return resp, stamp, nil
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func (i *Interceptor) passesThrough(req *http.Request) bool {
	p := strings.TrimPrefix(req.URL.Path, i.basePath)
	if p == "" {
		p = "/"
	}
	return passThrough[route{req.Method, strings.TrimSuffix(p, "/")}] || passThrough[route{req.Method, p}]
}
