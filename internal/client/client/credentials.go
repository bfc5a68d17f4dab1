package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
)

// Mode selects how requests are credentialed.
type Mode string

const (
	ModeCookie Mode = "cookie"
	ModeBearer Mode = "bearer"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCookie, "":
		return ModeCookie, nil
	case ModeBearer:
		return ModeBearer, nil
	default:
		return "", fmt.Errorf("unknown credentials mode %q (want cookie or bearer)", s)
	}
}

// KVStore is the durable store credentials are kept in.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Credentials applies one authentication scheme to every request. The
// stored credential is shared with other processes on the same store.
type Credentials interface {
	Mode() Mode
	// Reload adopts the stored credential when another process changed it.
	Reload(ctx context.Context) error
	// Apply adds the credentials to an outgoing request and returns a stamp
	// identifying what was sent.
	Apply(req *http.Request) string
	// Capture learns from a response, e.g. Set-Cookie headers.
	Capture(resp *http.Response)
	// Remember stores a token handed out in a response body. Schemes that
	// do not use body tokens ignore it.
	Remember(ctx context.Context, token string) error
	// Invalidate drops the stored credential only if it is still the one
	// identified by stamp and reports whether it did. A newer credential
	// stored by another process is adopted and kept.
	Invalidate(ctx context.Context, stamp string) (bool, error)
	// Forget drops all stored credentials.
	Forget(ctx context.Context) error
}

// CookieCredentials relies on the httpOnly cookie set by the server.
type CookieCredentials struct {
	jar *PersistentJar
}

func NewCookieCredentials(jar *PersistentJar) *CookieCredentials {
	return &CookieCredentials{jar: jar}
}

func (c *CookieCredentials) Mode() Mode { return ModeCookie }

func (c *CookieCredentials) Reload(ctx context.Context) error {
	return c.jar.Reload(ctx)
}

func (c *CookieCredentials) Apply(req *http.Request) string {
	cookies, stamp := c.jar.snapshot(req.URL)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return stamp
}

func (c *CookieCredentials) Capture(resp *http.Response) {
	if rc := resp.Cookies(); len(rc) > 0 {
		c.jar.SetCookies(resp.Request.URL, rc)
	}
}

func (c *CookieCredentials) Remember(context.Context, string) error { return nil }

func (c *CookieCredentials) Invalidate(ctx context.Context, stamp string) (bool, error) {
	return c.jar.Invalidate(ctx, stamp)
}

func (c *CookieCredentials) Forget(ctx context.Context) error {
	return c.jar.Clear(ctx)
}

// BearerCredentials sends the access token in the Authorization header.
type BearerCredentials struct {
	store KVStore

	mu     sync.RWMutex
	token  string
	// synced is the stored token the in-memory one corresponds to.
	synced string
}

// NewBearerCredentials loads a previously remembered token from store.
func NewBearerCredentials(ctx context.Context, store KVStore) (*BearerCredentials, error) {
	raw, err := store.Get(ctx, common.TokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	return &BearerCredentials{store: store, token: string(raw), synced: string(raw)}, nil
}

func (b *BearerCredentials) Mode() Mode { return ModeBearer }

func (b *BearerCredentials) Reload(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	raw, err := b.store.Get(ctx, common.TokenKey)
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}
	if string(raw) != b.synced {
		b.token = string(raw)
		b.synced = b.token
	}
	return nil
}

func (b *BearerCredentials) Apply(req *http.Request) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+b.token)
	}
	return b.token
}

func (b *BearerCredentials) Capture(*http.Response) {}

func (b *BearerCredentials) Remember(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token

	if err := b.store.Set(ctx, common.TokenKey, []byte(token)); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	b.synced = token
	return nil
}

func (b *BearerCredentials) Invalidate(ctx context.Context, stamp string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	raw, err := b.store.Get(ctx, common.TokenKey)
	if err != nil {
		return false, fmt.Errorf("failed to load token: %w", err)
	}
	if len(raw) > 0 && string(raw) != stamp {
		b.token = string(raw)
		b.synced = b.token
		return false, nil
	}

	b.token = ""
	b.synced = ""
	if err := b.store.Delete(ctx, common.TokenKey); err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}
	return true, nil
}

func (b *BearerCredentials) Forget(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = ""
	b.synced = ""

	if err := b.store.Delete(ctx, common.TokenKey); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// HasToken reports whether a token is currently held.
func (b *BearerCredentials) HasToken() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.token != ""
}
