package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/logging"
)

const persistTimeout = 3 * time.Second

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PersistentJar is an http.CookieJar for a single backend whose cookies
// survive restarts and are shared with other processes on the same store.
// After every change the cookies the jar would send to the backend are
// written to the store under one key.
type PersistentJar struct {
	base  *url.URL
	store KVStore
	log   logging.Logger

	mu     sync.Mutex
	jar    *cookiejar.Jar
	// synced is the stored value the in-memory jar corresponds to.
	synced []byte
}

// NewPersistentJar restores the cookies previously saved for base.
func NewPersistentJar(ctx context.Context, base *url.URL, store KVStore, log logging.Logger) (*PersistentJar, error) {
	j := &PersistentJar{base: base, store: store, log: log.With("module", "cookiejar")}

	raw, err := store.Get(ctx, common.CookiesKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}

	inner, err := j.decode(raw)
	if err != nil {
		j.log.Warn(ctx, "discarding malformed persisted cookies", "error", err)
		if err := store.Delete(ctx, common.CookiesKey); err != nil {
			return nil, fmt.Errorf("failed to delete cookies: %w", err)
		}
		raw = nil
		if inner, err = cookiejar.New(nil); err != nil {
			return nil, err
		}
	}
	j.jar = inner
	j.synced = raw
	return j, nil
}

func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}

// snapshot returns the cookies for u together with the stored value they
// came from.
func (j *PersistentJar) snapshot(u *url.URL) ([]*http.Cookie, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u), string(j.synced)
}

func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)
	if err := j.persist(ctx, j.jar.Cookies(j.base)); err != nil {
		j.log.Warn(ctx, "failed to persist cookies", "error", err)
	}
}

// Reload adopts the stored cookies when another process changed them.
// On a read or decode error the in-memory cookies are kept.
func (j *PersistentJar) Reload(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	raw, err := j.store.Get(ctx, common.CookiesKey)
	if err != nil {
		return fmt.Errorf("failed to load cookies: %w", err)
	}
	if bytes.Equal(raw, j.synced) {
		return nil
	}
	inner, err := j.decode(raw)
	if err != nil {
		return fmt.Errorf("failed to decode cookies: %w", err)
	}
	j.jar = inner
	j.synced = raw
	return nil
}

// Invalidate drops the stored cookies if they are still the ones identified
// by stamp and reports true. When another process has stored different
// cookies since, those are adopted instead and Invalidate reports false.
func (j *PersistentJar) Invalidate(ctx context.Context, stamp string) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	raw, err := j.store.Get(ctx, common.CookiesKey)
	if err != nil {
		return false, fmt.Errorf("failed to load cookies: %w", err)
	}
	if raw != nil && string(raw) != stamp {
		if inner, err := j.decode(raw); err == nil {
			j.jar = inner
			j.synced = raw
			return false, nil
		}
	}

	if err := j.reset(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Clear drops every cookie, in memory and in the store.
func (j *PersistentJar) Clear(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.reset(ctx)
}

func (j *PersistentJar) reset(ctx context.Context) error {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	j.jar = inner
	j.synced = nil

	if err := j.store.Delete(ctx, common.CookiesKey); err != nil {
		return fmt.Errorf("failed to delete cookies: %w", err)
	}
	return nil
}

func (j *PersistentJar) decode(raw []byte) (*cookiejar.Jar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return inner, nil
	}

	var saved []storedCookie
	if err := json.Unmarshal(raw, &saved); err != nil {
		return nil, err
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, s := range saved {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	inner.SetCookies(j.base, cookies)
	return inner, nil
}

func (j *PersistentJar) persist(ctx context.Context, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		if err := j.store.Delete(ctx, common.CookiesKey); err != nil {
			return err
		}
		j.synced = nil
		return nil
	}

	saved := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		saved = append(saved, storedCookie{Name: c.Name, Value: c.Value})
	}
	b, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	if err := j.store.Set(ctx, common.CookiesKey, b); err != nil {
		return err
	}
	j.synced = b
	return nil
}
