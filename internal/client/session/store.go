package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/common"
)

// Store is the subset of the local key/value store the timer needs.
// Get returns (nil, nil) for an absent key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Key is where the expiry lives in the store.
const Key = common.SessionExpiresAtKey

func encodeExpiry(t time.Time) []byte {
	return []byte(strconv.FormatInt(t.UnixMilli(), 10))
}

func decodeExpiry(b []byte) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed session expiry %q: %w", b, err)
	}
	if ms <= 0 {
		return time.Time{}, fmt.Errorf("malformed session expiry %q", b)
	}
	return time.UnixMilli(ms), nil
}

// load reads the persisted expiry. A missing value yields the zero time. A
// malformed one is deleted and also yields the zero time.
func (t *Timer) load(ctx context.Context) (time.Time, error) {
	raw, err := t.store.Get(ctx, Key)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read session expiry: %w", err)
	}
	if raw == nil {
		return time.Time{}, nil
	}

	exp, err := decodeExpiry(raw)
	if err != nil {
		t.log.Warn(ctx, "discarding persisted session expiry", "error", err)
		if derr := t.store.Delete(ctx, Key); derr != nil {
			return time.Time{}, fmt.Errorf("failed to delete session expiry: %w", derr)
		}
		return time.Time{}, nil
	}
	return exp, nil
}
