package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/logging"
)

const (
	DefaultWarningBefore = 5 * time.Minute
	DefaultCheckInterval = time.Minute

	syncTimeout = 5 * time.Second
)

var ErrClosed = errors.New("session timer closed")

// Callbacks are invoked without any timer lock held, either from the
// goroutine that caused them (Start, Recover, Sync) or from a timer
// goroutine.
type Callbacks struct {
	// OnWarning fires once per schedule when the expiry is near.
	OnWarning func(remaining time.Duration)
	// OnExpire fires once per schedule when the expiry is reached.
	OnExpire func()
	// OnPeerClear fires when another process removed the shared expiry
	// while this timer was still counting down.
	OnPeerClear func()
}

type Option func(*Timer)

func WithClock(c clockwork.Clock) Option {
	return func(t *Timer) { t.clock = c }
}

func WithLogger(l logging.Logger) Option {
	return func(t *Timer) { t.log = l }
}

func WithWarningBefore(d time.Duration) Option {
	return func(t *Timer) {
		if d >= 0 {
			t.warningBefore = d
		}
	}
}

// WithCheckInterval sets the drift check period. Zero disables the check.
func WithCheckInterval(d time.Duration) Option {
	return func(t *Timer) {
		if d >= 0 {
			t.checkInterval = d
		}
	}
}

type Timer struct {
	store         Store
	clock         clockwork.Clock
	log           logging.Logger
	warningBefore time.Duration
	checkInterval time.Duration

	mu           sync.Mutex
	cb           Callbacks
	expiresAt    time.Time
	warningFired bool
	expired      bool
	gen          uint64
	warnT        clockwork.Timer
	expT         clockwork.Timer
	stopCheck    chan struct{}
	closed       bool
}

// Snapshot is a consistent view of the timer state.
type Snapshot struct {
	ExpiresAt    time.Time
	Remaining    time.Duration
	WarningFired bool
	Expired      bool
}

// Active reports whether a session expiry is being tracked and has not
// been reached.
func (s Snapshot) Active() bool {
	return !s.ExpiresAt.IsZero() && !s.Expired
}

func NewTimer(store Store, opts ...Option) *Timer {
	t := &Timer{
		store:         store,
		clock:         clockwork.NewRealClock(),
		log:           logging.Discard(),
		warningBefore: DefaultWarningBefore,
		checkInterval: DefaultCheckInterval,
	}
	for _, o := range opts {
		o(t)
	}
	t.log = t.log.With("module", "session")
	return t
}

func (t *Timer) SetCallbacks(cb Callbacks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cb = cb
}

// Start persists expiresAt and schedules the warning and the expiry against
// it, replacing any previous schedule. A warning or expiry that is already
// due fires before Start returns.
//
// A persistence failure is returned, but the in-memory schedule is still
// installed.
func (t *Timer) Start(ctx context.Context, expiresAt time.Time) error {
	if expiresAt.IsZero() {
		return errors.New("session expiry is required")
	}
	// the store keeps millisecond precision
	expiresAt = time.UnixMilli(expiresAt.UnixMilli())

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}

	var persistErr error
	if err := t.store.Set(ctx, Key, encodeExpiry(expiresAt)); err != nil {
		persistErr = fmt.Errorf("failed to persist session expiry: %w", err)
	}
	fire := t.scheduleLocked(expiresAt)
	t.mu.Unlock()

	t.log.Debug(ctx, "session timer started", "expires_at", expiresAt)
	fire()
	return persistErr
}

// Recover reschedules from the persisted expiry. It reports whether a
// persisted expiry was found. An expiry in the past fires OnExpire
// immediately.
func (t *Timer) Recover(ctx context.Context) (bool, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return false, ErrClosed
	}

	exp, err := t.load(ctx)
	if err != nil || exp.IsZero() {
		t.mu.Unlock()
		return false, err
	}
	fire := t.scheduleLocked(exp)
	t.mu.Unlock()

	t.log.Debug(ctx, "session timer recovered", "expires_at", exp)
	fire()
	return true, nil
}

// Clear cancels both handles and removes the persisted expiry.
func (t *Timer) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetLocked()
	if err := t.store.Delete(ctx, Key); err != nil {
		return fmt.Errorf("failed to delete session expiry: %w", err)
	}
	return nil
}

// Sync reconciles the in-memory schedule with the store and the wall clock.
//
// While a schedule is active: a removed value means another process ended
// the session (OnPeerClear), a different value is adopted as the new
// expiry, and an unchanged value is checked against the current time so a
// warning or expiry missed during a suspend fires now. Without an active
// schedule Sync does nothing.
func (t *Timer) Sync(ctx context.Context) error {
	t.mu.Lock()
	if t.closed || t.expiresAt.IsZero() || t.expired {
		t.mu.Unlock()
		return nil
	}

	stored, err := t.load(ctx)
	if err != nil {
		// fall back to the wall-clock check
		stored = t.expiresAt
	}

	var fire func()
	switch {
	case stored.IsZero():
		t.resetLocked()
		fire = t.cb.OnPeerClear
		t.log.Info(ctx, "session cleared by another client")
	case !stored.Equal(t.expiresAt):
		t.log.Info(ctx, "session expiry changed by another client", "expires_at", stored)
		fire = t.scheduleLocked(stored)
	default:
		fire = t.dueLocked()
	}
	t.mu.Unlock()

	if fire != nil {
		fire()
	}
	return err
}

// RemainingSeconds is the whole number of seconds left, never negative.
func (t *Timer) RemainingSeconds() int64 {
	return int64(t.Snapshot().Remaining / time.Second)
}

// ExpiresAt returns the tracked expiry, if any.
func (t *Timer) ExpiresAt() (time.Time, bool) {
	s := t.Snapshot()
	return s.ExpiresAt, s.Active()
}

func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		ExpiresAt:    t.expiresAt,
		WarningFired: t.warningFired,
		Expired:      t.expired,
	}
	if !t.expiresAt.IsZero() && !t.expired {
		if d := t.expiresAt.Sub(t.clock.Now()); d > 0 {
			s.Remaining = d
		}
	}
	return s
}

// Close stops the timer. Pending callbacks become no-ops and later calls to
// Start or Recover fail with ErrClosed. The persisted expiry is kept.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetLocked()
	t.closed = true
}

// scheduleLocked replaces the current schedule. It returns the callbacks
// that are already due; the caller runs them after unlocking.
func (t *Timer) scheduleLocked(expiresAt time.Time) func() {
	t.stopHandlesLocked()
	t.gen++
	t.expiresAt = expiresAt
	t.warningFired = false
	t.expired = false

	now := t.clock.Now()
	if !now.Before(expiresAt) {
		t.stopCheckLocked()
		return t.dueLocked()
	}

	gen := t.gen
	if warnAt := expiresAt.Add(-t.warningBefore); now.Before(warnAt) {
		t.warnT = t.clock.AfterFunc(warnAt.Sub(now), func() { t.fireWarning(gen) })
	}
	t.expT = t.clock.AfterFunc(expiresAt.Sub(now), func() { t.fireExpire(gen) })
	t.startCheckLocked()

	return t.dueLocked()
}

// dueLocked marks whatever is due at the current time as fired and returns
// a function delivering it, or a no-op.
func (t *Timer) dueLocked() func() {
	now := t.clock.Now()

	if !now.Before(t.expiresAt) {
		if t.expired {
			return func() {}
		}
		t.expired = true
		t.warningFired = true
		t.stopHandlesLocked()
		t.stopCheckLocked()
		return t.expireCallbackLocked()
	}

	if !t.warningFired && !now.Before(t.expiresAt.Add(-t.warningBefore)) {
		t.warningFired = true
		if t.warnT != nil {
			t.warnT.Stop()
			t.warnT = nil
		}
		return t.warningCallbackLocked(t.expiresAt.Sub(now))
	}

	return func() {}
}

func (t *Timer) fireWarning(gen uint64) {
	t.mu.Lock()
	if t.closed || gen != t.gen || t.warningFired || t.expired {
		t.mu.Unlock()
		return
	}
	t.warningFired = true
	t.warnT = nil
	remaining := t.expiresAt.Sub(t.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	fire := t.warningCallbackLocked(remaining)
	t.mu.Unlock()

	fire()
}

func (t *Timer) fireExpire(gen uint64) {
	t.mu.Lock()
	if t.closed || gen != t.gen || t.expired {
		t.mu.Unlock()
		return
	}
	t.expired = true
	t.warningFired = true
	t.expT = nil
	t.stopHandlesLocked()
	t.stopCheckLocked()
	fire := t.expireCallbackLocked()
	t.mu.Unlock()

	t.log.Info(context.Background(), "session expired")
	fire()
}

func (t *Timer) warningCallbackLocked(remaining time.Duration) func() {
	cb := t.cb.OnWarning
	if cb == nil {
		return func() {}
	}
	return func() { cb(remaining) }
}

func (t *Timer) expireCallbackLocked() func() {
	cb := t.cb.OnExpire
	if cb == nil {
		return func() {}
	}
	return cb
}

func (t *Timer) resetLocked() {
	t.stopHandlesLocked()
	t.stopCheckLocked()
	t.gen++
	t.expiresAt = time.Time{}
	t.warningFired = false
	t.expired = false
}

func (t *Timer) stopHandlesLocked() {
	if t.warnT != nil {
		t.warnT.Stop()
		t.warnT = nil
	}
	if t.expT != nil {
		t.expT.Stop()
		t.expT = nil
	}
}

func (t *Timer) startCheckLocked() {
	if t.checkInterval <= 0 || t.stopCheck != nil {
		return
	}
	stop := make(chan struct{})
	t.stopCheck = stop
	ticker := t.clock.NewTicker(t.checkInterval)
	go t.runDriftCheck(ticker, stop)
}

func (t *Timer) stopCheckLocked() {
	if t.stopCheck != nil {
		close(t.stopCheck)
		t.stopCheck = nil
	}
}

func (t *Timer) runDriftCheck(ticker clockwork.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
			if err := t.Sync(ctx); err != nil {
				t.log.Warn(ctx, "session drift check failed", "error", err)
			}
			cancel()
		}
	}
}
